// Package ratelimit enforces the per-chat daily summary ceiling.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// QuotaStore is the storage capability the limiter consumes. The increment
// must be a single atomic upsert-and-increment per (chat, date).
type QuotaStore interface {
	IncrementAndGetDailyCount(ctx context.Context, chatID int64, date string) (int, error)
}

// Result reports whether a request may proceed and how much quota remains.
type Result struct {
	Allowed   bool
	Used      int
	Limit     int
	Remaining int
}

// Limiter manages daily summary quotas per chat. Quota rows are keyed by
// calendar day, so counters reset implicitly at each midnight.
type Limiter struct {
	store  QuotaStore
	limit  int
	logger zerolog.Logger
}

// NewLimiter creates a new rate limiter with the given daily ceiling.
func NewLimiter(store QuotaStore, limit int, logger zerolog.Logger) *Limiter {
	return &Limiter{
		store:  store,
		limit:  limit,
		logger: logger.With().Str("component", "ratelimit").Logger(),
	}
}

// Acquire consumes one unit of the chat's daily quota and reports whether the
// request may proceed. The counter is incremented before generation is ever
// attempted; a rejected request never reaches the model. The calendar day is
// taken from now, which the caller passes already shifted into the chat's
// timezone.
func (l *Limiter) Acquire(ctx context.Context, chatID int64, now time.Time) (*Result, error) {
	date := now.Format("2006-01-02")

	count, err := l.store.IncrementAndGetDailyCount(ctx, chatID, date)
	if err != nil {
		l.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Str("date", date).
			Msg("Failed to increment daily count")
		return nil, fmt.Errorf("failed to check daily quota: %w", err)
	}

	used := count
	if used > l.limit {
		used = l.limit
	}
	result := &Result{
		Allowed:   count <= l.limit,
		Used:      used,
		Limit:     l.limit,
		Remaining: l.limit - used,
	}

	l.logger.Debug().
		Int64("chat_id", chatID).
		Str("date", date).
		Int("count", count).
		Bool("allowed", result.Allowed).
		Msg("Daily quota checked")

	return result, nil
}
