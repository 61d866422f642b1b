package summary

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/telegram-summary-bot/internal/models"
)

// timecodePattern matches HH:MM references, optionally preceded by "at".
var timecodePattern = regexp.MustCompile(`(?i)\b(?:at\s+)?([01]?\d|2[0-3]):([0-5]\d)\b`)

// LinkTimecodes rewrites time-of-day references in text into Telegram links
// pointing at the earliest message rendered with that time. Best effort and
// fail-open: unmatched times stay as they are, and any internal error returns
// the unmodified input.
func LinkTimecodes(text string, messages []models.Message, loc *time.Location) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = text
		}
	}()

	if len(messages) == 0 {
		return text
	}

	// Earliest message per rendered clock value. Messages arrive ascending,
	// so the first writer wins.
	earliest := make(map[string]models.Message, len(messages))
	for _, msg := range messages {
		clock := time.Unix(msg.Timestamp, 0).In(loc).Format("15:04")
		if _, ok := earliest[clock]; !ok {
			earliest[clock] = msg
		}
	}

	out = timecodePattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := timecodePattern.FindStringSubmatch(match)
		if sub == nil {
			return match
		}

		hour, err1 := strconv.Atoi(sub[1])
		minute, err2 := strconv.Atoi(sub[2])
		if err1 != nil || err2 != nil {
			return match
		}

		msg, ok := earliest[fmt.Sprintf("%02d:%02d", hour, minute)]
		if !ok || msg.MessageID == 0 {
			return match
		}

		return fmt.Sprintf("[%s](https://t.me/c/%d/%d)", match, linkChatID(msg.ChatID), msg.MessageID)
	})
	return out
}

// linkChatID converts a Telegram chat ID into the numeric form used by
// t.me/c deep links (supergroup IDs carry a -100 prefix on the wire).
func linkChatID(chatID int64) int64 {
	id := chatID
	if id < 0 {
		id = -id
	}
	if id > 1_000_000_000_000 {
		id -= 1_000_000_000_000
	}
	return id
}
