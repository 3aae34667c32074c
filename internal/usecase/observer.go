package usecase

import "github.com/user/scraper-service/internal/entity"

// Observer receives the diagnostics emitted while scraping.
type Observer interface {
	Observe(d entity.Diagnostic)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(d entity.Diagnostic)

func (f ObserverFunc) Observe(d entity.Diagnostic) { f(d) }

var nopObserver = ObserverFunc(func(entity.Diagnostic) {})

func observerOrNop(o Observer) Observer {
	if o == nil {
		return nopObserver
	}
	return o
}
