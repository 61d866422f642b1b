// Package timewindow maps period tokens ("24h", "3d", "today", ...) to
// absolute time ranges.
package timewindow

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/telegram-summary-bot/internal/models"
)

// DefaultToken is the window used for unrecognized or missing tokens.
const DefaultToken = "24h"

var relativePattern = regexp.MustCompile(`^(\d+)([hdw])$`)

// Resolve maps a period token to an absolute [start, end] window relative to
// now. Pure, no I/O, never fails: anything unparseable behaves exactly like
// "24h". Calendar tokens ("today", "yesterday") use now's location, so the
// caller passes a now already shifted into the chat's timezone.
func Resolve(token string, now time.Time) models.TimeWindow {
	switch strings.ToLower(strings.TrimSpace(token)) {
	case "today":
		dayStart := startOfDay(now)
		return models.TimeWindow{
			Start:       dayStart.Unix(),
			End:         now.Unix(),
			Description: "Today",
		}
	case "yesterday":
		dayStart := startOfDay(now)
		return models.TimeWindow{
			Start:       dayStart.AddDate(0, 0, -1).Unix(),
			End:         dayStart.Unix() - 1,
			Description: "Yesterday",
		}
	}

	if m := relativePattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(token))); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			return lastWindow(now, n, m[2])
		}
	}

	return lastWindow(now, 24, "h")
}

// lastWindow builds a [now - n*unit, now] window.
func lastWindow(now time.Time, n int, unit string) models.TimeWindow {
	var span time.Duration
	switch unit {
	case "d":
		span = time.Duration(n) * 24 * time.Hour
	case "w":
		span = time.Duration(n) * 7 * 24 * time.Hour
	default:
		span = time.Duration(n) * time.Hour
	}

	return models.TimeWindow{
		Start:       now.Add(-span).Unix(),
		End:         now.Unix(),
		Description: fmt.Sprintf("Last %d%s", n, unit),
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
