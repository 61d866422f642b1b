// Package schedule computes next-run times for recurring summary jobs.
package schedule

import (
	"time"

	"github.com/telegram-summary-bot/internal/models"
)

// FireHour is the local hour at which daily and weekly schedules fire.
const FireHour = 9

// Next returns the next absolute run time (unix seconds) for a schedule.
// Pure. The same rule applies at creation and after a firing:
//
//   - daily: the first 09:00 in tz lying strictly more than 24 hours after
//     now, so consecutive runs are always a full day apart regardless of
//     when the schedule was created or last fired.
//   - weekly: the first Sunday 09:00 in tz strictly after now. Firings land
//     at Sunday 09:00, so rescheduling from a firing yields the following
//     week.
//   - custom: now + intervalHours. The timezone affects nothing here beyond
//     daylight-saving display; the arithmetic is absolute.
//
// Unknown timezones fall back to UTC, unknown schedule types behave as daily.
func Next(scheduleType models.ScheduleType, tz string, now time.Time, intervalHours int) int64 {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	now = now.In(loc)

	switch scheduleType {
	case models.ScheduleWeekly:
		candidate := atFireHour(now, loc)
		for candidate.Weekday() != time.Sunday || !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate.Unix()

	case models.ScheduleCustom:
		if intervalHours <= 0 {
			intervalHours = 24
		}
		return now.Add(time.Duration(intervalHours) * time.Hour).Unix()

	default:
		threshold := now.Add(24 * time.Hour)
		candidate := atFireHour(now, loc)
		for !candidate.After(threshold) {
			candidate = candidate.AddDate(0, 0, 1)
		}
		return candidate.Unix()
	}
}

func atFireHour(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), FireHour, 0, 0, 0, loc)
}
