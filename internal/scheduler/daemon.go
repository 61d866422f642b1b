// Package scheduler runs the recurring-summary polling loop.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/telegram-summary-bot/internal/models"
	"github.com/telegram-summary-bot/internal/schedule"
	"github.com/telegram-summary-bot/internal/summary"
	"github.com/telegram-summary-bot/internal/timewindow"
)

// tickSpec is the polling cadence for due schedules.
const tickSpec = "@every 5m"

// Store is the persistence capability the daemon consumes.
type Store interface {
	GetDueSchedules(ctx context.Context, now int64) ([]models.Schedule, error)
	GetMessages(ctx context.Context, chatID, start, end int64) ([]models.Message, error)
	GetChatSettings(ctx context.Context, chatID int64) models.ChatSettings
	UpdateNextRun(ctx context.Context, scheduleID, ts int64) error
	DeactivateSchedule(ctx context.Context, scheduleID int64) error
}

// Messenger delivers generated summaries. Permanent delivery failures must
// come back wrapped in models.ErrChatUnreachable.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Generator produces summaries from message sets.
type Generator interface {
	Generate(ctx context.Context, messages []models.Message, opts summary.Options) (*summary.Result, error)
}

// Daemon polls for due schedules on a fixed tick, generates and delivers
// their summaries, and advances their next-run times. Jobs within a tick run
// sequentially to bound load on the model; one job's failure never blocks the
// rest of the tick.
type Daemon struct {
	store     Store
	messenger Messenger
	generator Generator
	logger    zerolog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
	ticking atomic.Bool // re-entrancy guard: a slow tick must not overlap the next

	now func() time.Time
}

// NewDaemon creates a scheduler daemon.
func NewDaemon(store Store, messenger Messenger, generator Generator, logger zerolog.Logger) *Daemon {
	return &Daemon{
		store:     store,
		messenger: messenger,
		generator: generator,
		logger:    logger.With().Str("component", "scheduler").Logger(),
		now:       time.Now,
	}
}

// Start begins polling. Idempotent: starting a running daemon is a no-op.
// One tick runs immediately, then every five minutes.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		d.logger.Debug().Msg("Daemon already running, ignoring start")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(tickSpec, func() { d.tick(ctx) }); err != nil {
		return err
	}
	c.Start()

	d.cron = c
	d.running = true
	d.logger.Info().Str("tick", tickSpec).Msg("Scheduler daemon started")

	go d.tick(ctx)
	return nil
}

// Stop halts polling. Idempotent: stopping a stopped daemon is a no-op.
func (d *Daemon) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.running {
		return
	}

	d.cron.Stop()
	d.cron = nil
	d.running = false
	d.logger.Info().Msg("Scheduler daemon stopped")
}

// tick processes all schedules that are due.
func (d *Daemon) tick(ctx context.Context) {
	if !d.ticking.CompareAndSwap(false, true) {
		d.logger.Warn().Msg("Previous tick still in progress, skipping")
		return
	}
	defer d.ticking.Store(false)

	now := d.now()
	due, err := d.store.GetDueSchedules(ctx, now.Unix())
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to fetch due schedules")
		return
	}
	if len(due) == 0 {
		return
	}

	d.logger.Info().Int("due_count", len(due)).Msg("Processing due schedules")

	for _, job := range due {
		d.processJob(ctx, job, now)
	}
}

// processJob generates, delivers and reschedules one due job. Never
// propagates errors: anything short of a permanently unreachable chat is
// logged and the job is rescheduled.
func (d *Daemon) processJob(ctx context.Context, job models.Schedule, now time.Time) {
	logger := d.logger.With().
		Int64("schedule_id", job.ID).
		Int64("chat_id", job.ChatID).
		Str("type", string(job.ScheduleType)).
		Logger()

	settings := d.store.GetChatSettings(ctx, job.ChatID)
	loc := settings.Location()
	window := timewindow.Resolve(job.PeriodToken(), now.In(loc))

	messages, err := d.store.GetMessages(ctx, job.ChatID, window.Start, window.End)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to fetch messages, rescheduling")
		d.reschedule(ctx, job, settings, now, logger)
		return
	}

	result, err := d.generator.Generate(ctx, messages, summary.Options{
		MaxLength: settings.SummaryLength,
		Language:  settings.Language,
		Timezone:  settings.Timezone,
	})
	switch {
	case errors.Is(err, models.ErrNoContent):
		logger.Debug().Str("window", window.Description).Msg("No content, skipping delivery")
	case errors.Is(err, models.ErrCapacity):
		// Leave next_run untouched so the job is still due on the next tick.
		logger.Warn().Err(err).Msg("Model capacity exhausted, retrying next tick")
		return
	case err != nil:
		logger.Error().Err(err).Msg("Summary generation failed, rescheduling")
	default:
		text := job.ScheduleType.Label() + " (" + window.Description + ")\n\n" + result.Text
		if err := d.messenger.SendMessage(ctx, job.ChatID, text); err != nil {
			if errors.Is(err, models.ErrChatUnreachable) {
				logger.Warn().Err(err).Msg("Chat unreachable, deactivating schedule")
				if derr := d.store.DeactivateSchedule(ctx, job.ID); derr != nil {
					logger.Error().Err(derr).Msg("Failed to deactivate schedule")
				}
				return
			}
			logger.Error().Err(err).Msg("Delivery failed, rescheduling")
		} else {
			logger.Info().Int("message_count", len(messages)).Msg("Scheduled summary delivered")
		}
	}

	d.reschedule(ctx, job, settings, now, logger)
}

func (d *Daemon) reschedule(ctx context.Context, job models.Schedule, settings models.ChatSettings, now time.Time, logger zerolog.Logger) {
	next := schedule.Next(job.ScheduleType, settings.Timezone, now, job.IntervalHours)
	if err := d.store.UpdateNextRun(ctx, job.ID, next); err != nil {
		logger.Error().Err(err).Int64("next_run", next).Msg("Failed to persist next run")
		return
	}
	logger.Debug().Time("next_run", time.Unix(next, 0)).Msg("Schedule advanced")
}
