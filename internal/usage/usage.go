// Package usage enforces the hourly image extraction allowance.
package usage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/verte-zerg/zonecalc/internal/store"
)

const windowName = "image_processing"

// Defaults for the extraction allowance.
const (
	DefaultMaxUses = 3
	DefaultWindow  = time.Hour
)

// Backend persists the usage window.
type Backend interface {
	GetUsage(ctx context.Context, name string) (store.Usage, error)
	SaveUsage(ctx context.Context, name string, usage store.Usage) error
}

// Status describes the current allowance.
type Status struct {
	Used      int
	Max       int
	Remaining int
	ResetAt   time.Time
	Limited   bool
}

// MinutesUntilReset rounds the time left in the window up to whole minutes.
func (s Status) MinutesUntilReset(now time.Time) int {
	remaining := s.ResetAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int(math.Ceil(remaining.Minutes()))
}

// LimitError is returned by Acquire when the allowance is used up.
type LimitError struct {
	Minutes int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("usage limit reached; resets in %d minutes", e.Minutes)
}

// UserMessage is the text shown to a limited user.
func (e *LimitError) UserMessage() string {
	return fmt.Sprintf("使用制限に達しました。あと%d分後にリセットされます。", e.Minutes)
}

// Limiter counts extractions in a fixed window that starts on first use
// after the previous window expired.
type Limiter struct {
	backend Backend
	max     int
	window  time.Duration
	now     func() time.Time
}

// NewLimiter returns a Limiter. Non-positive maxUses or window fall back to defaults.
func NewLimiter(backend Backend, maxUses int, window time.Duration) *Limiter {
	if maxUses <= 0 {
		maxUses = DefaultMaxUses
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{backend: backend, max: maxUses, window: window, now: time.Now}
}

// Status returns the allowance, starting a fresh window when the stored one expired.
func (l *Limiter) Status(ctx context.Context) (Status, error) {
	u, err := l.current(ctx)
	if err != nil {
		return Status{}, err
	}
	return l.status(u), nil
}

// Acquire fails with *LimitError when no uses remain.
func (l *Limiter) Acquire(ctx context.Context) (Status, error) {
	st, err := l.Status(ctx)
	if err != nil {
		return Status{}, err
	}
	if st.Limited {
		return st, &LimitError{Minutes: st.MinutesUntilReset(l.now())}
	}
	return st, nil
}

// Record consumes one use.
func (l *Limiter) Record(ctx context.Context) (Status, error) {
	u, err := l.current(ctx)
	if err != nil {
		return Status{}, err
	}
	u.Count++
	if err := l.backend.SaveUsage(ctx, windowName, u); err != nil {
		return Status{}, fmt.Errorf("failed to save usage: %w", err)
	}
	return l.status(u), nil
}

// Run acquires a use, calls fn and records the use when counts(err) holds
// for fn's result. The error from fn is returned unchanged.
func (l *Limiter) Run(ctx context.Context, fn func(context.Context) error, counts func(error) bool) error {
	if _, err := l.Acquire(ctx); err != nil {
		return err
	}
	runErr := fn(ctx)
	if counts(runErr) {
		if _, err := l.Record(ctx); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func (l *Limiter) current(ctx context.Context) (store.Usage, error) {
	u, err := l.backend.GetUsage(ctx, windowName)
	if err != nil {
		return store.Usage{}, fmt.Errorf("failed to load usage: %w", err)
	}
	now := l.now()
	if u.ResetAt.IsZero() || !now.Before(u.ResetAt) {
		u = store.Usage{Count: 0, ResetAt: now.Add(l.window)}
		if err := l.backend.SaveUsage(ctx, windowName, u); err != nil {
			return store.Usage{}, fmt.Errorf("failed to reset usage: %w", err)
		}
	}
	return u, nil
}

func (l *Limiter) status(u store.Usage) Status {
	remaining := l.max - u.Count
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Used:      u.Count,
		Max:       l.max,
		Remaining: remaining,
		ResetAt:   u.ResetAt,
		Limited:   u.Count >= l.max,
	}
}
