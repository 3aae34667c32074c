package usecase

import (
	"sync"

	"github.com/user/scraper-service/internal/entity"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []entity.Diagnostic
}

func (r *recordingObserver) Observe(d entity.Diagnostic) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, d)
}

func (r *recordingObserver) filter(sev entity.Severity, msg string) []entity.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Diagnostic
	for _, e := range r.events {
		if e.Severity == sev && e.Message == msg {
			out = append(out, e)
		}
	}
	return out
}

func (r *recordingObserver) bySeverity(sev entity.Severity) []entity.Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.Diagnostic
	for _, e := range r.events {
		if e.Severity == sev {
			out = append(out, e)
		}
	}
	return out
}
