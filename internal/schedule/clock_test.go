package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telegram-summary-bot/internal/models"
)

func TestNext_DailyAlwaysFullDayAhead(t *testing.T) {
	// Before and after today's fire hour, the gap is strictly more than 24h.
	for _, hour := range []int{8, 10} {
		now := time.Date(2024, 3, 15, hour, 0, 0, 0, time.UTC)

		next := time.Unix(Next(models.ScheduleDaily, "UTC", now, 0), 0).UTC()

		assert.True(t, next.Sub(now) > 24*time.Hour, "now=%02d:00 next=%v", hour, next)
		assert.Equal(t, FireHour, next.Hour())
		assert.Equal(t, 0, next.Minute())
	}
}

func TestNext_DailyExactlyAtFireHour(t *testing.T) {
	now := time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC)

	next := time.Unix(Next(models.ScheduleDaily, "UTC", now, 0), 0).UTC()

	assert.True(t, next.Sub(now) > 24*time.Hour)
	assert.Equal(t, FireHour, next.Hour())
}

func TestNext_DailyHonorsTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	next := time.Unix(Next(models.ScheduleDaily, "America/New_York", now, 0), 0).In(loc)

	assert.Equal(t, FireHour, next.Hour())
	assert.True(t, next.Sub(now) > 24*time.Hour)
}

func TestNext_WeeklyLandsOnSunday(t *testing.T) {
	// 2024-03-15 is a Friday.
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	next := time.Unix(Next(models.ScheduleWeekly, "UTC", now, 0), 0).UTC()

	assert.Equal(t, time.Sunday, next.Weekday())
	assert.Equal(t, FireHour, next.Hour())
	assert.True(t, next.After(now))
	assert.Equal(t, "2024-03-17", next.Format("2006-01-02"))
}

func TestNext_WeeklyReschedulesOneWeekAfterFiring(t *testing.T) {
	// A firing happens shortly after Sunday 09:00; the next run is the
	// following Sunday, not the same one.
	firing := time.Date(2024, 3, 17, 9, 3, 0, 0, time.UTC) // Sunday

	next := time.Unix(Next(models.ScheduleWeekly, "UTC", firing, 0), 0).UTC()

	assert.Equal(t, time.Sunday, next.Weekday())
	assert.Equal(t, "2024-03-24", next.Format("2006-01-02"))
}

func TestNext_Custom(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, now.Add(6*time.Hour).Unix(), Next(models.ScheduleCustom, "UTC", now, 6))
	assert.Equal(t, now.Add(48*time.Hour).Unix(), Next(models.ScheduleCustom, "Asia/Tokyo", now, 48))

	// Non-positive intervals degrade to a day.
	assert.Equal(t, now.Add(24*time.Hour).Unix(), Next(models.ScheduleCustom, "UTC", now, 0))
}

func TestNext_UnknownTimezoneFallsBackToUTC(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	assert.Equal(t,
		Next(models.ScheduleDaily, "UTC", now, 0),
		Next(models.ScheduleDaily, "Not/AZone", now, 0))
}

func TestNext_UnknownTypeBehavesAsDaily(t *testing.T) {
	now := time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC)

	assert.Equal(t,
		Next(models.ScheduleDaily, "UTC", now, 0),
		Next(models.ScheduleType("bogus"), "UTC", now, 0))
}
