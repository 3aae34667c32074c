package entity

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	}
	return "unknown"
}

// Diagnostic is a structured event emitted by the scrape core.
type Diagnostic struct {
	Severity  Severity
	Component string // "pagination", "extractor", "orchestrator"
	Message   string
	Fields    map[string]any
}
