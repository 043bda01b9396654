package usage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/zonecalc/internal/store"
)

type memBackend struct {
	usage map[string]store.Usage
}

func (m *memBackend) GetUsage(_ context.Context, name string) (store.Usage, error) {
	return m.usage[name], nil
}

func (m *memBackend) SaveUsage(_ context.Context, name string, u store.Usage) error {
	if m.usage == nil {
		m.usage = map[string]store.Usage{}
	}
	m.usage[name] = u
	return nil
}

func newTestLimiter(now *time.Time) *Limiter {
	l := NewLimiter(&memBackend{}, 3, time.Hour)
	l.now = func() time.Time { return *now }
	return l
}

func TestLimiterCountsUses(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	st, err := l.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Remaining)
	assert.False(t, st.Limited)

	for i := 0; i < 3; i++ {
		_, err := l.Acquire(ctx)
		require.NoError(t, err)
		_, err = l.Record(ctx)
		require.NoError(t, err)
	}

	now = now.Add(20*time.Minute + 10*time.Second)
	st, err = l.Acquire(ctx)
	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 40, limitErr.Minutes)
	assert.True(t, st.Limited)
	assert.Equal(t, 0, st.Remaining)
}

func TestLimiterResetsAfterWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)

	for i := 0; i < 3; i++ {
		_, err := l.Record(ctx)
		require.NoError(t, err)
	}
	now = now.Add(time.Hour)
	st, err := l.Acquire(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Remaining)
	assert.Equal(t, now.Add(time.Hour), st.ResetAt)
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	l := newTestLimiter(&now)
	failed := errors.New("boom")
	counts := func(err error) bool { return err == nil }

	require.ErrorIs(t, l.Run(ctx, func(context.Context) error { return failed }, counts), failed)
	st, err := l.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Used)

	calls := 0
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Run(ctx, func(context.Context) error {
			calls++
			return nil
		}, counts))
	}
	err = l.Run(ctx, func(context.Context) error {
		calls++
		return nil
	}, counts)
	var limitErr *LimitError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, 3, calls)
}

func TestNewLimiterDefaults(t *testing.T) {
	l := NewLimiter(&memBackend{}, 0, 0)
	assert.Equal(t, DefaultMaxUses, l.max)
	assert.Equal(t, DefaultWindow, l.window)
}

func TestMinutesUntilReset(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	st := Status{ResetAt: now.Add(90 * time.Second)}
	assert.Equal(t, 2, st.MinutesUntilReset(now))
	assert.Equal(t, 0, st.MinutesUntilReset(now.Add(time.Hour)))
}
