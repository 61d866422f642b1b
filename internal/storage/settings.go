package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/telegram-summary-bot/internal/models"
)

// GetChatSettings retrieves per-chat configuration, returning defaults when
// no row exists or storage is unreachable. Never fails: summarization should
// proceed on defaults rather than break over a settings lookup.
func (c *Client) GetChatSettings(ctx context.Context, chatID int64) models.ChatSettings {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rows []models.ChatSettings

	err := c.withRetry(ctx, "get_chat_settings", func() error {
		data, _, err := c.client.From("chat_settings").
			Select("chat_id,language,summary_length,timezone", "exact", false).
			Eq("chat_id", fmt.Sprintf("%d", chatID)).
			Limit(1, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch chat settings: %w", err)
		}

		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("failed to unmarshal chat settings: %w", err)
		}

		return nil
	})

	if err != nil {
		c.logger.Warn().
			Err(err).
			Int64("chat_id", chatID).
			Msg("Falling back to default chat settings")
		return models.DefaultChatSettings(chatID)
	}

	if len(rows) == 0 {
		return models.DefaultChatSettings(chatID)
	}

	settings := rows[0]
	if settings.Language == "" {
		settings.Language = models.DefaultLanguage
	}
	if settings.SummaryLength == 0 {
		settings.SummaryLength = models.DefaultSummaryLength
	}
	if settings.Timezone == "" {
		settings.Timezone = models.DefaultTimezone
	}
	return settings
}

// SetChatLanguage updates only the language field.
func (c *Client) SetChatLanguage(ctx context.Context, chatID int64, language string) error {
	return c.setSetting(ctx, chatID, "language", language)
}

// SetSummaryLength updates only the summary length field.
func (c *Client) SetSummaryLength(ctx context.Context, chatID int64, length int) error {
	return c.setSetting(ctx, chatID, "summary_length", length)
}

// SetChatTimezone updates only the timezone field.
func (c *Client) SetChatTimezone(ctx context.Context, chatID int64, timezone string) error {
	return c.setSetting(ctx, chatID, "timezone", timezone)
}

// setSetting updates a single settings column, creating the row lazily with
// defaults first. The two-step shape keeps partial updates from clobbering
// unrelated fields.
func (c *Client) setSetting(ctx context.Context, chatID int64, column string, value interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	operation := fmt.Sprintf("set_%s", column)
	err := c.withRetry(ctx, operation, func() error {
		defaults := models.DefaultChatSettings(chatID)
		row := map[string]interface{}{
			"chat_id":        defaults.ChatID,
			"language":       defaults.Language,
			"summary_length": defaults.SummaryLength,
			"timezone":       defaults.Timezone,
		}

		// Ensure the row exists; a duplicate means it already does.
		_, _, err := c.client.From("chat_settings").
			Insert(row, false, "", "", "").
			Execute()
		if err != nil && !isDuplicateError(err) {
			return fmt.Errorf("failed to ensure chat settings row: %w", err)
		}

		_, _, err = c.client.From("chat_settings").
			Update(map[string]interface{}{column: value}, "", "").
			Eq("chat_id", fmt.Sprintf("%d", chatID)).
			Execute()
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", column, err)
		}

		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Str("field", column).
			Msg("Failed to update chat settings")
		return err
	}

	c.logger.Info().
		Int64("chat_id", chatID).
		Str("field", column).
		Interface("value", value).
		Msg("Chat settings updated")

	return nil
}
