package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fanoutHandler duplicates each record across several destinations, so one
// module logger can feed stdout, the journal and the ring buffer at once.
type fanoutHandler struct {
	targets []slog.Handler
}

// NewFanoutHandler combines handlers into a single slog.Handler. Each target
// keeps its own level gate.
func NewFanoutHandler(targets ...slog.Handler) slog.Handler {
	return &fanoutHandler{targets: targets}
}

// Enabled reports whether at least one target wants records at this level.
func (f *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, target := range f.targets {
		if target.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every interested target. One failing target
// never blocks the others; their errors are joined.
func (f *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, target := range f.targets {
		if !target.Enabled(ctx, r.Level) {
			continue
		}
		if err := target.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WithAttrs implements slog.Handler.
func (f *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.fork(func(target slog.Handler) slog.Handler {
		return target.WithAttrs(attrs)
	})
}

// WithGroup implements slog.Handler.
func (f *fanoutHandler) WithGroup(name string) slog.Handler {
	return f.fork(func(target slog.Handler) slog.Handler {
		return target.WithGroup(name)
	})
}

func (f *fanoutHandler) fork(derive func(slog.Handler) slog.Handler) slog.Handler {
	next := make([]slog.Handler, len(f.targets))
	for i, target := range f.targets {
		next[i] = derive(target)
	}
	return &fanoutHandler{targets: next}
}
