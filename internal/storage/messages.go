package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/telegram-summary-bot/internal/models"
)

// SaveMessage stores an incoming chat message. Inserts are duplicate-tolerant:
// the (chat_id, message_id) unique constraint makes redelivered updates a no-op.
func (c *Client) SaveMessage(ctx context.Context, msg *models.Message) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.withRetry(ctx, "save_message", func() error {
		data := map[string]interface{}{
			"message_id":   msg.MessageID,
			"chat_id":      msg.ChatID,
			"sender_id":    msg.SenderID,
			"display_name": msg.DisplayName,
			"text":         msg.Text,
			"timestamp":    msg.Timestamp,
			"kind":         msg.Kind,
		}

		_, _, err := c.client.From("messages").
			Insert(data, false, "", "", "").
			Execute()

		if err != nil {
			if isDuplicateError(err) {
				c.logger.Debug().
					Int64("message_id", msg.MessageID).
					Int64("chat_id", msg.ChatID).
					Msg("Message already exists, skipping")
				return nil
			}
			return fmt.Errorf("failed to insert message: %w", err)
		}

		c.logger.Debug().
			Int64("message_id", msg.MessageID).
			Int64("chat_id", msg.ChatID).
			Msg("Message saved")

		return nil
	})
}

// GetMessages retrieves messages for a chat within [start, end] (unix
// seconds, inclusive), ascending by timestamp, bounded by the client's row cap.
func (c *Client) GetMessages(ctx context.Context, chatID, start, end int64) ([]models.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var messages []models.Message

	err := c.withRetry(ctx, "get_messages", func() error {
		data, _, err := c.client.From("messages").
			Select("id,message_id,chat_id,sender_id,display_name,text,timestamp,kind", "exact", false).
			Eq("chat_id", fmt.Sprintf("%d", chatID)).
			Gte("timestamp", fmt.Sprintf("%d", start)).
			Lte("timestamp", fmt.Sprintf("%d", end)).
			Order("timestamp", nil).
			Limit(c.maxFetch, "").
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch messages: %w", err)
		}

		if err := json.Unmarshal(data, &messages); err != nil {
			return fmt.Errorf("failed to unmarshal messages: %w", err)
		}

		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Int64("start", start).
			Int64("end", end).
			Msg("Failed to get messages")
		return nil, err
	}

	c.logger.Debug().
		Int64("chat_id", chatID).
		Int("count", len(messages)).
		Msg("Retrieved messages")

	return messages, nil
}

// isDuplicateError checks if error is a unique-constraint violation
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
