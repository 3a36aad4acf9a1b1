// Package notify delivers user-facing notifications and maintains the
// outdated-package badge.
//
// Delivery is best-effort: a Sink reports errors so callers can log them,
// but nothing waits for the user to see a notification.
package notify

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Sink delivers a notification to the user.
type Sink interface {
	Send(ctx context.Context, title, subtitle string) error
}

// Badge shows a short label (an outdated count) somewhere persistent. An
// empty label clears the badge.
type Badge interface {
	SetBadge(label string) error
}

// MultiSink fans a notification out to several sinks. Every sink is tried.
// The notification counts as delivered when at least one sink succeeds;
// only when all of them fail is the joined error returned.
type MultiSink []Sink

// Send delivers to every sink in order.
func (m MultiSink) Send(ctx context.Context, title, subtitle string) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, title, subtitle); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) < len(m) {
		return nil
	}
	return errors.Join(errs...)
}

// LogSink writes notifications to a logger. It is used when no desktop
// notifier is available and in the daemon log alongside the real one.
type LogSink struct {
	Logger zerolog.Logger
}

// Send logs the notification at info level.
func (s LogSink) Send(ctx context.Context, title, subtitle string) error {
	s.Logger.Info().Str("title", title).Str("subtitle", subtitle).Msg("notification")
	return nil
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, title, subtitle string) error

// Send calls f.
func (f SinkFunc) Send(ctx context.Context, title, subtitle string) error {
	return f(ctx, title, subtitle)
}
