package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultMaxPerMinute is the sliding one-minute action quota.
	DefaultMaxPerMinute = 45
	// DefaultMinInterval is the minimum spacing between any two actions.
	DefaultMinInterval = 80 * time.Millisecond

	limiterWindow   = 60 * time.Second
	quotaSleepFloor = 200 * time.Millisecond
)

// ActionLimiter paces action dispatch so the external control surface is
// never driven faster than it can respond. Two constraints are enforced
// across all actions: a minimum inter-action interval and a trailing
// one-minute quota. The limiter only delays, it never rejects; the sole
// error it can return is context cancellation during a wait.
//
// The limiter is safe to share; the lock is held through quota sleeps so
// shared callers stay one-at-a-time, matching the sequential dispatch model.
type ActionLimiter struct {
	logger       *slog.Logger
	maxPerMinute int
	minInterval  time.Duration

	mu         sync.Mutex
	recent     []time.Time
	lastAction time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewActionLimiter creates a limiter. Non-positive maxPerMinute or negative
// minInterval fall back to the defaults.
func NewActionLimiter(logger *slog.Logger, maxPerMinute int, minInterval time.Duration) *ActionLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	if maxPerMinute <= 0 {
		maxPerMinute = DefaultMaxPerMinute
	}
	if minInterval < 0 {
		minInterval = DefaultMinInterval
	}
	return &ActionLimiter{
		logger:       logger,
		maxPerMinute: maxPerMinute,
		minInterval:  minInterval,
		now:          time.Now,
		sleep:        WaitForRetry,
	}
}

// BeforeAction blocks until both pacing constraints hold, then records the
// call's timestamp. Every call is recorded regardless of whether the action
// it gates later succeeds.
func (l *ActionLimiter) BeforeAction(ctx context.Context, actionName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if !l.lastAction.IsZero() {
		if since := now.Sub(l.lastAction); since < l.minInterval {
			if err := l.sleep(ctx, l.minInterval-since); err != nil {
				return err
			}
			now = l.now()
		}
	}

	l.prune(now)
	if len(l.recent) >= l.maxPerMinute {
		delay := l.recent[0].Add(limiterWindow).Sub(now)
		if delay < quotaSleepFloor {
			delay = quotaSleepFloor
		}
		l.logger.Debug("rate limiter active",
			slog.String("action", actionName),
			slog.Duration("delay", delay))
		if err := l.sleep(ctx, delay); err != nil {
			return err
		}
		now = l.now()
		l.prune(now)
	}

	l.recent = append(l.recent, now)
	l.lastAction = now
	return nil
}

// prune drops timestamps that fell out of the trailing window. Caller holds
// the lock.
func (l *ActionLimiter) prune(now time.Time) {
	cutoff := now.Add(-limiterWindow)
	kept := l.recent[:0]
	for _, ts := range l.recent {
		if !ts.Before(cutoff) {
			kept = append(kept, ts)
		}
	}
	l.recent = kept
}
