package summary

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/telegram-summary-bot/internal/models"
)

func TestLinkTimecodes_RewritesMatchingTimes(t *testing.T) {
	// 1700000000 renders as 22:13 UTC.
	msgs := []models.Message{
		{MessageID: 7, ChatID: -1001234567890, Text: "hello", Timestamp: 1700000000},
		{MessageID: 8, ChatID: -1001234567890, Text: "again", Timestamp: 1700000010},
	}

	out := LinkTimecodes("Discussion started at 22:13 and went on.", msgs, time.UTC)

	assert.Equal(t, "Discussion started [at 22:13](https://t.me/c/1234567890/7) and went on.", out)
}

func TestLinkTimecodes_EarliestMessageWins(t *testing.T) {
	// Both messages render as 22:13; the link targets the first one.
	msgs := []models.Message{
		{MessageID: 7, ChatID: -1001234567890, Text: "hello", Timestamp: 1700000000},
		{MessageID: 8, ChatID: -1001234567890, Text: "again", Timestamp: 1700000030},
	}

	out := LinkTimecodes("22:13", msgs, time.UTC)

	assert.Contains(t, out, "/7)")
	assert.NotContains(t, out, "/8)")
}

func TestLinkTimecodes_SingleDigitHourNormalizes(t *testing.T) {
	// 09:05 UTC; the summary says "9:05".
	ts := time.Date(2023, 11, 14, 9, 5, 0, 0, time.UTC).Unix()
	msgs := []models.Message{{MessageID: 3, ChatID: -1001234567890, Text: "x", Timestamp: ts}}

	out := LinkTimecodes("around 9:05 things happened", msgs, time.UTC)

	assert.Contains(t, out, "[9:05](https://t.me/c/1234567890/3)")
}

func TestLinkTimecodes_NoMatchLeavesTextUntouched(t *testing.T) {
	msgs := []models.Message{
		{MessageID: 7, ChatID: -1001234567890, Text: "hello", Timestamp: 1700000000},
	}

	text := "Nothing happened at 03:00 that day."
	assert.Equal(t, text, LinkTimecodes(text, msgs, time.UTC))
}

func TestLinkTimecodes_EmptyMessages(t *testing.T) {
	text := "Something at 10:00."
	assert.Equal(t, text, LinkTimecodes(text, nil, time.UTC))
}

func TestLinkTimecodes_PlainGroupChatID(t *testing.T) {
	msgs := []models.Message{
		{MessageID: 2, ChatID: -987654321, Text: "hi", Timestamp: 1700000000},
	}

	out := LinkTimecodes("22:13", msgs, time.UTC)

	assert.Contains(t, out, "t.me/c/987654321/2")
}
