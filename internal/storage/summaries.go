package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/telegram-summary-bot/internal/models"
)

// SaveSummary stores a generated summary for audit.
func (c *Client) SaveSummary(ctx context.Context, record *models.SummaryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	err := c.withRetry(ctx, "save_summary", func() error {
		data := map[string]interface{}{
			"chat_id":       record.ChatID,
			"period_start":  record.PeriodStart,
			"period_end":    record.PeriodEnd,
			"description":   record.Description,
			"summary_text":  record.SummaryText,
			"message_count": record.MessageCount,
			"created_at":    record.CreatedAt,
		}

		_, _, err := c.client.From("summaries").
			Insert(data, false, "", "", "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to insert summary: %w", err)
		}

		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("chat_id", record.ChatID).
			Msg("Failed to save summary")
		return err
	}

	c.logger.Info().
		Int64("chat_id", record.ChatID).
		Str("period", record.Description).
		Int("message_count", record.MessageCount).
		Msg("Summary saved")

	return nil
}
