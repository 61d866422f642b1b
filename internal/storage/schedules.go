package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/telegram-summary-bot/internal/models"
)

// CreateSchedule creates a recurring summary job for a chat. Any prior
// schedule for the chat is deleted first, keeping the at-most-one-active-
// schedule-per-chat invariant.
func (c *Client) CreateSchedule(ctx context.Context, chatID int64, scheduleType models.ScheduleType, intervalHours int, nextRun int64) (*models.Schedule, error) {
	if err := c.DeleteSchedule(ctx, chatID); err != nil {
		return nil, fmt.Errorf("failed to remove prior schedule: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var rows []models.Schedule

	err := c.withRetry(ctx, "create_schedule", func() error {
		data := map[string]interface{}{
			"chat_id":        chatID,
			"schedule_type":  string(scheduleType),
			"interval_hours": intervalHours,
			"next_run":       nextRun,
			"is_active":      true,
		}

		raw, _, err := c.client.From("schedules").
			Insert(data, false, "", "representation", "").
			Execute()
		if err != nil {
			return fmt.Errorf("failed to insert schedule: %w", err)
		}

		if err := json.Unmarshal(raw, &rows); err != nil {
			return fmt.Errorf("failed to unmarshal created schedule: %w", err)
		}

		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Str("type", string(scheduleType)).
			Msg("Failed to create schedule")
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("schedule insert returned no rows")
	}

	c.logger.Info().
		Int64("chat_id", chatID).
		Str("type", string(scheduleType)).
		Int64("next_run", nextRun).
		Msg("Schedule created")

	return &rows[0], nil
}

// GetActiveSchedules returns active schedules, for one chat when chatID is
// non-zero or for all chats otherwise.
func (c *Client) GetActiveSchedules(ctx context.Context, chatID int64) ([]models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var schedules []models.Schedule

	err := c.withRetry(ctx, "get_active_schedules", func() error {
		query := c.client.From("schedules").
			Select("id,chat_id,schedule_type,interval_hours,next_run,is_active", "exact", false).
			Eq("is_active", "true")

		if chatID != 0 {
			query = query.Eq("chat_id", fmt.Sprintf("%d", chatID))
		}

		data, _, err := query.Order("next_run", nil).Execute()
		if err != nil {
			return fmt.Errorf("failed to fetch active schedules: %w", err)
		}

		if err := json.Unmarshal(data, &schedules); err != nil {
			return fmt.Errorf("failed to unmarshal schedules: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return schedules, nil
}

// GetDueSchedules returns all active schedules whose next_run is at or before now.
func (c *Client) GetDueSchedules(ctx context.Context, now int64) ([]models.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var schedules []models.Schedule

	err := c.withRetry(ctx, "get_due_schedules", func() error {
		data, _, err := c.client.From("schedules").
			Select("id,chat_id,schedule_type,interval_hours,next_run,is_active", "exact", false).
			Eq("is_active", "true").
			Lte("next_run", fmt.Sprintf("%d", now)).
			Order("next_run", nil).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to fetch due schedules: %w", err)
		}

		if err := json.Unmarshal(data, &schedules); err != nil {
			return fmt.Errorf("failed to unmarshal schedules: %w", err)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("count", len(schedules)).
		Int64("now", now).
		Msg("Retrieved due schedules")

	return schedules, nil
}

// UpdateNextRun advances a schedule's next firing time.
func (c *Client) UpdateNextRun(ctx context.Context, scheduleID, ts int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.withRetry(ctx, "update_next_run", func() error {
		_, _, err := c.client.From("schedules").
			Update(map[string]interface{}{"next_run": ts}, "", "").
			Eq("id", fmt.Sprintf("%d", scheduleID)).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to update next_run: %w", err)
		}

		return nil
	})
}

// DeactivateSchedule marks a schedule inactive, preserving the row for audit.
func (c *Client) DeactivateSchedule(ctx context.Context, scheduleID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.withRetry(ctx, "deactivate_schedule", func() error {
		_, _, err := c.client.From("schedules").
			Update(map[string]interface{}{"is_active": false}, "", "").
			Eq("id", fmt.Sprintf("%d", scheduleID)).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to deactivate schedule: %w", err)
		}

		return nil
	})

	if err != nil {
		return err
	}

	c.logger.Info().
		Int64("schedule_id", scheduleID).
		Msg("Schedule deactivated")

	return nil
}

// DeleteSchedule removes every schedule row for a chat (explicit cancellation).
func (c *Client) DeleteSchedule(ctx context.Context, chatID int64) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.withRetry(ctx, "delete_schedule", func() error {
		_, _, err := c.client.From("schedules").
			Delete("", "").
			Eq("chat_id", fmt.Sprintf("%d", chatID)).
			Execute()

		if err != nil {
			return fmt.Errorf("failed to delete schedule: %w", err)
		}

		return nil
	})
}
