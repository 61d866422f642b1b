package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuotaStore struct {
	counts map[string]int
	err    error
}

func (f *fakeQuotaStore) IncrementAndGetDailyCount(_ context.Context, chatID int64, date string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	key := fmt.Sprintf("%d/%s", chatID, date)
	f.counts[key]++
	return f.counts[key], nil
}

func TestAcquire_EleventhRequestRejected(t *testing.T) {
	store := &fakeQuotaStore{}
	limiter := NewLimiter(store, 10, zerolog.Nop())
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	for i := 1; i <= 10; i++ {
		res, err := limiter.Acquire(context.Background(), 42, now)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should be allowed", i)
		assert.Equal(t, 10-i, res.Remaining)
	}

	res, err := limiter.Acquire(context.Background(), 42, now)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 10, res.Used)
}

func TestAcquire_QuotaIsPerChat(t *testing.T) {
	store := &fakeQuotaStore{}
	limiter := NewLimiter(store, 1, zerolog.Nop())
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	res, err := limiter.Acquire(context.Background(), 1, now)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Acquire(context.Background(), 2, now)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "a different chat has its own counter")
}

func TestAcquire_NewCalendarDayResets(t *testing.T) {
	store := &fakeQuotaStore{}
	limiter := NewLimiter(store, 1, zerolog.Nop())

	day1 := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 16, 0, 1, 0, 0, time.UTC)

	res, err := limiter.Acquire(context.Background(), 42, day1)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = limiter.Acquire(context.Background(), 42, day1)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	res, err = limiter.Acquire(context.Background(), 42, day2)
	require.NoError(t, err)
	assert.True(t, res.Allowed, "each calendar day is a new row")
}

func TestAcquire_StorageErrorPropagates(t *testing.T) {
	store := &fakeQuotaStore{err: fmt.Errorf("connection refused")}
	limiter := NewLimiter(store, 10, zerolog.Nop())

	_, err := limiter.Acquire(context.Background(), 42, time.Now())

	require.Error(t, err)
}
