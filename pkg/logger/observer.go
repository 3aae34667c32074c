package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/user/scraper-service/internal/entity"
)

// Observer forwards scrape diagnostics to a zap logger.
type Observer struct {
	logger *zap.Logger
}

func NewObserver(l *zap.Logger) *Observer {
	return &Observer{logger: l}
}

func (o *Observer) Observe(d entity.Diagnostic) {
	fields := make([]zap.Field, 0, len(d.Fields)+1)
	fields = append(fields, zap.String("component", d.Component))
	for k, v := range d.Fields {
		fields = append(fields, zap.Any(k, v))
	}
	if ce := o.logger.Check(level(d.Severity), d.Message); ce != nil {
		ce.Write(fields...)
	}
}

func level(s entity.Severity) zapcore.Level {
	switch s {
	case entity.SeverityDebug:
		return zapcore.DebugLevel
	case entity.SeverityWarn:
		return zapcore.WarnLevel
	case entity.SeverityError:
		return zapcore.ErrorLevel
	}
	return zapcore.InfoLevel
}
