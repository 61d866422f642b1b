package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IncrementAndGetDailyCount atomically increments the summary counter for
// (chat, date) and returns the new count. Backed by a Postgres function so
// concurrent requests can never slip past the ceiling through a
// read-then-write race:
//
//	create function increment_summary_quota(p_chat_id bigint, p_date date)
//	returns integer ... insert on conflict (chat_id, date)
//	do update set count = summary_quotas.count + 1 returning count;
func (c *Client) IncrementAndGetDailyCount(ctx context.Context, chatID int64, date string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var count int

	err := c.withRetry(ctx, "increment_summary_quota", func() error {
		params := map[string]interface{}{
			"p_chat_id": chatID,
			"p_date":    date,
		}

		data := c.client.Rpc("increment_summary_quota", "", params)
		if data == "" {
			return fmt.Errorf("failed to increment summary quota: RPC returned empty")
		}

		parsed, err := parseRPCCount(data)
		if err != nil {
			return fmt.Errorf("failed to parse quota count: %w", err)
		}

		count = parsed
		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Str("date", date).
			Msg("Failed to increment daily count")
		return 0, err
	}

	c.logger.Debug().
		Int64("chat_id", chatID).
		Str("date", date).
		Int("count", count).
		Msg("Daily count incremented")

	return count, nil
}

// parseRPCCount accepts the two shapes postgrest returns for an integer
// function: a bare number or a one-element array of rows.
func parseRPCCount(data string) (int, error) {
	data = strings.TrimSpace(data)

	if n, err := strconv.Atoi(data); err == nil {
		return n, nil
	}

	var rows []struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("empty RPC result")
	}
	return rows[0].Count, nil
}
