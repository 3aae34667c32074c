package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/user/scraper-service/internal/entity"
)

func TestNew(t *testing.T) {
	l, err := New("debug", "json")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = New("warn", "console")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = New("loud", "json")
	assert.Error(t, err)

	_, err = New("info", "xml")
	assert.Error(t, err)
}

func TestObserverMapsSeverity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	obs := NewObserver(zap.New(core))

	obs.Observe(entity.Diagnostic{
		Severity:  entity.SeverityWarn,
		Component: "pagination",
		Message:   "pagination detection failed",
		Fields:    map[string]any{"selector": ".pager"},
	})
	obs.Observe(entity.Diagnostic{Severity: entity.SeverityDebug, Component: "orchestrator", Message: "visiting page"})

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "pagination", entries[0].ContextMap()["component"])
	assert.Equal(t, ".pager", entries[0].ContextMap()["selector"])
	assert.Equal(t, zapcore.DebugLevel, entries[1].Level)
}
