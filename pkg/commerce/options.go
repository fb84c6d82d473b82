package commerce

import (
	"log/slog"
	"time"
)

type options struct {
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a container.
type Option func(*options)

// WithLogger sets the logger used to report restore and persistence
// problems.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides time.Now, used to stamp recently-viewed entries.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
