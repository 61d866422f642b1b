package scheduler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telegram-summary-bot/internal/models"
	"github.com/telegram-summary-bot/internal/summary"
)

type fakeStore struct {
	due         []models.Schedule
	dueErr      error
	messages    map[int64][]models.Message
	messagesErr map[int64]error
	settings    map[int64]models.ChatSettings

	nextRuns    map[int64]int64
	deactivated []int64
}

func (f *fakeStore) GetDueSchedules(_ context.Context, _ int64) ([]models.Schedule, error) {
	return f.due, f.dueErr
}

func (f *fakeStore) GetMessages(_ context.Context, chatID, _, _ int64) ([]models.Message, error) {
	if err, ok := f.messagesErr[chatID]; ok {
		return nil, err
	}
	return f.messages[chatID], nil
}

func (f *fakeStore) GetChatSettings(_ context.Context, chatID int64) models.ChatSettings {
	if s, ok := f.settings[chatID]; ok {
		return s
	}
	return models.DefaultChatSettings(chatID)
}

func (f *fakeStore) UpdateNextRun(_ context.Context, scheduleID, ts int64) error {
	if f.nextRuns == nil {
		f.nextRuns = make(map[int64]int64)
	}
	f.nextRuns[scheduleID] = ts
	return nil
}

func (f *fakeStore) DeactivateSchedule(_ context.Context, scheduleID int64) error {
	f.deactivated = append(f.deactivated, scheduleID)
	return nil
}

type fakeMessenger struct {
	sent []int64
	errs map[int64]error
}

func (f *fakeMessenger) SendMessage(_ context.Context, chatID int64, _ string) error {
	if err, ok := f.errs[chatID]; ok {
		return err
	}
	f.sent = append(f.sent, chatID)
	return nil
}

type fakeGenerator struct {
	errs  map[int64]error // keyed by chat of the first message
	calls int
}

func (f *fakeGenerator) Generate(_ context.Context, messages []models.Message, _ summary.Options) (*summary.Result, error) {
	f.calls++
	if len(messages) == 0 {
		return nil, models.ErrNoContent
	}
	if err, ok := f.errs[messages[0].ChatID]; ok {
		return nil, err
	}
	return &summary.Result{Text: "generated summary"}, nil
}

func someMessages(chatID int64) []models.Message {
	return []models.Message{{MessageID: 1, ChatID: chatID, DisplayName: "a", Text: "hi", Timestamp: 1700000000}}
}

func newTestDaemon(store *fakeStore, messenger *fakeMessenger, gen *fakeGenerator) *Daemon {
	d := NewDaemon(store, messenger, gen, zerolog.Nop())
	d.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return d
}

func dueSchedule(id, chatID int64) models.Schedule {
	return models.Schedule{ID: id, ChatID: chatID, ScheduleType: models.ScheduleDaily, IsActive: true}
}

func TestTick_DeliversAndReschedules(t *testing.T) {
	store := &fakeStore{
		due:      []models.Schedule{dueSchedule(1, 100)},
		messages: map[int64][]models.Message{100: someMessages(100)},
	}
	messenger := &fakeMessenger{}
	gen := &fakeGenerator{}

	d := newTestDaemon(store, messenger, gen)
	d.tick(context.Background())

	assert.Equal(t, []int64{100}, messenger.sent)
	require.Contains(t, store.nextRuns, int64(1))
	assert.Greater(t, store.nextRuns[1], d.now().Unix())
	assert.Empty(t, store.deactivated)
}

func TestTick_NoContentSkipsDeliveryButReschedules(t *testing.T) {
	store := &fakeStore{
		due:      []models.Schedule{dueSchedule(1, 100)},
		messages: map[int64][]models.Message{100: nil},
	}
	messenger := &fakeMessenger{}
	gen := &fakeGenerator{}

	d := newTestDaemon(store, messenger, gen)
	d.tick(context.Background())

	assert.Empty(t, messenger.sent)
	assert.Contains(t, store.nextRuns, int64(1))
}

func TestTick_FailureIsolation(t *testing.T) {
	store := &fakeStore{
		due: []models.Schedule{dueSchedule(1, 100), dueSchedule(2, 200)},
		messages: map[int64][]models.Message{
			100: someMessages(100),
			200: someMessages(200),
		},
	}
	messenger := &fakeMessenger{}
	gen := &fakeGenerator{errs: map[int64]error{100: fmt.Errorf("prompt rejected")}}

	d := newTestDaemon(store, messenger, gen)
	d.tick(context.Background())

	// The first job failed hard, the second still ran; both advanced.
	assert.Equal(t, []int64{200}, messenger.sent)
	assert.Contains(t, store.nextRuns, int64(1))
	assert.Contains(t, store.nextRuns, int64(2))
}

func TestTick_CapacityErrorRetriesNextTick(t *testing.T) {
	store := &fakeStore{
		due:      []models.Schedule{dueSchedule(1, 100)},
		messages: map[int64][]models.Message{100: someMessages(100)},
	}
	messenger := &fakeMessenger{}
	gen := &fakeGenerator{errs: map[int64]error{100: fmt.Errorf("%w: quota", models.ErrCapacity)}}

	d := newTestDaemon(store, messenger, gen)
	d.tick(context.Background())

	// next_run stays put so the job is due again on the next tick.
	assert.Empty(t, messenger.sent)
	assert.NotContains(t, store.nextRuns, int64(1))
	assert.Empty(t, store.deactivated)
}

func TestTick_UnreachableChatDeactivatesWithoutReschedule(t *testing.T) {
	store := &fakeStore{
		due:      []models.Schedule{dueSchedule(1, 100)},
		messages: map[int64][]models.Message{100: someMessages(100)},
	}
	messenger := &fakeMessenger{errs: map[int64]error{
		100: fmt.Errorf("%w: bot was kicked", models.ErrChatUnreachable),
	}}
	gen := &fakeGenerator{}

	d := newTestDaemon(store, messenger, gen)
	d.tick(context.Background())

	assert.Equal(t, []int64{1}, store.deactivated)
	assert.NotContains(t, store.nextRuns, int64(1))
}

func TestTick_TransientDeliveryFailureStillReschedules(t *testing.T) {
	store := &fakeStore{
		due:      []models.Schedule{dueSchedule(1, 100)},
		messages: map[int64][]models.Message{100: someMessages(100)},
	}
	messenger := &fakeMessenger{errs: map[int64]error{100: fmt.Errorf("network flake")}}
	gen := &fakeGenerator{}

	d := newTestDaemon(store, messenger, gen)
	d.tick(context.Background())

	assert.Contains(t, store.nextRuns, int64(1))
	assert.Empty(t, store.deactivated)
}

func TestTick_MessageFetchFailureStillReschedules(t *testing.T) {
	store := &fakeStore{
		due:         []models.Schedule{dueSchedule(1, 100)},
		messagesErr: map[int64]error{100: fmt.Errorf("storage down")},
	}
	messenger := &fakeMessenger{}
	gen := &fakeGenerator{}

	d := newTestDaemon(store, messenger, gen)
	d.tick(context.Background())

	assert.Zero(t, gen.calls)
	assert.Contains(t, store.nextRuns, int64(1))
}

func TestStartStop_Idempotent(t *testing.T) {
	store := &fakeStore{}
	d := newTestDaemon(store, &fakeMessenger{}, &fakeGenerator{})

	ctx := context.Background()
	require.NoError(t, d.Start(ctx))
	require.NoError(t, d.Start(ctx), "second start is a no-op")

	d.Stop()
	d.Stop() // second stop is a no-op

	require.NoError(t, d.Start(ctx), "restart after stop works")
	d.Stop()
}
