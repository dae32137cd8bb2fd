package summary

import "log/slog"

type Option func(a *Aggregator)

// WithLogger specifies the logger for the aggregator
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// WithExcludeZero drops rates equal to exactly 0 before min / max tracking.
// Disabled by default
func WithExcludeZero(exclude bool) Option {
	return func(a *Aggregator) {
		a.excludeZero = exclude
	}
}

// WithObserver specifies the observer notified of every token outcome
func WithObserver(o Observer) Option {
	return func(a *Aggregator) {
		a.observer = o
	}
}
