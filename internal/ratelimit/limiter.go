// Package ratelimit bounds verification attempts per (subject, method) with a
// fixed one-hour window.
package ratelimit

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"realname/internal/method"
	dErrors "realname/pkg/domain-errors"
)

const (
	// DefaultLimit is the attempt cap per subject and method within one window.
	DefaultLimit = 10

	// DefaultWindow is the fixed window length.
	DefaultWindow = time.Hour

	keyPrefix = "realname:attempts:"
)

// CounterStore is the atomic increment-with-TTL primitive. One call both
// increments the counter and applies the window expiry when the counter is
// first created, so concurrent submissions cannot under-count the limit.
type CounterStore interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// Limiter answers allow/deny for verification attempts.
type Limiter struct {
	store  CounterStore
	limit  int64
	window time.Duration
	logger *slog.Logger
}

type Option func(*Limiter)

func WithLimit(limit int64) Option {
	return func(l *Limiter) { l.limit = limit }
}

func WithWindow(window time.Duration) Option {
	return func(l *Limiter) { l.window = window }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

func New(store CounterStore, opts ...Option) *Limiter {
	l := &Limiter{
		store:  store,
		limit:  DefaultLimit,
		window: DefaultWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}
	return l
}

// Allow consumes one attempt for (subject, method). It returns a
// CodeRateLimited error once the window quota is exhausted; callers may retry
// after the window resets.
func (l *Limiter) Allow(ctx context.Context, subject string, m method.Method) error {
	key := keyPrefix + sanitizeSegment(subject) + ":" + string(m)

	count, err := l.store.Incr(ctx, key, l.window)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "rate limit counter unavailable")
	}

	if count > l.limit {
		l.logger.WarnContext(ctx, "verification rate limit exceeded",
			"method", m,
			"count", count,
			"limit", l.limit,
		)
		return dErrors.Newf(dErrors.CodeRateLimited,
			"attempt limit of %d per %s exceeded, retry after the window resets", l.limit, l.window)
	}
	return nil
}

// sanitizeSegment escapes the delimiter in key segments so a subject
// containing ':' cannot collide with an adjacent counter.
func sanitizeSegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}
