// Package ratelimit enforces a per-user cooldown between narrative generations.
package ratelimit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
)

// DefaultWindow is the cooldown used when none is configured.
const DefaultWindow = 60 * time.Second

// Store persists the most recent generation timestamp per user.
// LastTimestamp returns ok=false when the user has no record.
type Store interface {
	LastTimestamp(ctx context.Context, userID string) (ts time.Time, ok bool, err error)
	Record(ctx context.Context, userID string, ts time.Time) error
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed          bool
	RemainingSeconds int
}

// Limiter decides whether a user may start another generation.
//
// Check and Record are separate calls, so two concurrent requests from the same
// user can both pass Check before either records. At most one extra generation
// slips through.
type Limiter struct {
	store  Store
	window time.Duration
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the logger used for fail-open warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a Limiter. A non-positive window falls back to DefaultWindow.
func New(store Store, window time.Duration, opts ...Option) (*Limiter, error) {
	if store == nil {
		return nil, errors.New("ratelimit: store must not be nil")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	l := &Limiter{
		store:  store,
		window: window,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Window returns the configured cooldown.
func (l *Limiter) Window() time.Duration {
	return l.window
}

// Check never writes. If the store cannot be read the request is allowed.
func (l *Limiter) Check(ctx context.Context, userID string) Decision {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Decision{Allowed: true}
	}
	last, ok, err := l.store.LastTimestamp(ctx, userID)
	if err != nil {
		l.logger.WarnContext(ctx, "rate limit store unavailable, allowing request", "user_id", userID, "err", err)
		return Decision{Allowed: true}
	}
	if !ok {
		return Decision{Allowed: true}
	}
	elapsed := l.now().Sub(last)
	if elapsed >= l.window {
		return Decision{Allowed: true}
	}
	return Decision{Allowed: false, RemainingSeconds: ceilSeconds(l.window - elapsed)}
}

// Record stores the current time as the user's latest generation.
func (l *Limiter) Record(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return errors.New("ratelimit: user id is required")
	}
	return l.store.Record(ctx, userID, l.now().UTC())
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
