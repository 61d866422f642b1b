package models

import (
	"fmt"
	"time"
)

// Summary length bounds (characters). Values outside the range are rejected
// with a ValidationError before touching storage.
const (
	MinSummaryLength     = 200
	MaxSummaryLength     = 5000
	DefaultSummaryLength = 1500
)

// DefaultLanguage is used when a chat has no explicit language configured
// or the configured code has no prompt table.
const DefaultLanguage = "en"

// DefaultTimezone is the fallback IANA zone for chats without a configured one.
const DefaultTimezone = "UTC"

// Message is a single stored chat message. Immutable once stored; the
// summarization core only reads messages. MessageID is platform-assigned and
// unique only within a chat.
type Message struct {
	ID          int64  `json:"id,omitempty"`
	MessageID   int64  `json:"message_id"`
	ChatID      int64  `json:"chat_id"`
	SenderID    int64  `json:"sender_id,omitempty"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"` // unix seconds
	Kind        string `json:"kind,omitempty"`
}

// ChatSettings holds per-chat configuration. One row per chat, created lazily
// with defaults on first access.
type ChatSettings struct {
	ChatID        int64  `json:"chat_id"`
	Language      string `json:"language"`
	SummaryLength int    `json:"summary_length"`
	Timezone      string `json:"timezone"`
}

// DefaultChatSettings returns the settings used for a chat that has no stored row.
func DefaultChatSettings(chatID int64) ChatSettings {
	return ChatSettings{
		ChatID:        chatID,
		Language:      DefaultLanguage,
		SummaryLength: DefaultSummaryLength,
		Timezone:      DefaultTimezone,
	}
}

// Location resolves the configured timezone, falling back to UTC on any
// unknown zone name.
func (s ChatSettings) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ValidateSummaryLength checks the configured character budget.
func ValidateSummaryLength(n int) error {
	if n < MinSummaryLength || n > MaxSummaryLength {
		return &ValidationError{
			Field:  "summary_length",
			Reason: fmt.Sprintf("must be between %d and %d characters", MinSummaryLength, MaxSummaryLength),
		}
	}
	return nil
}

// ScheduleType identifies how a recurring summary job computes its next run.
type ScheduleType string

const (
	ScheduleDaily  ScheduleType = "daily"
	ScheduleWeekly ScheduleType = "weekly"
	ScheduleCustom ScheduleType = "custom"
)

// Label returns the delivery header used when a scheduled summary is sent.
func (t ScheduleType) Label() string {
	switch t {
	case ScheduleDaily:
		return "📋 Daily summary"
	case ScheduleWeekly:
		return "📋 Weekly summary"
	default:
		return "📋 Scheduled summary"
	}
}

// Schedule is a persisted recurring summary job. At most one active schedule
// exists per chat; creating a new one removes any prior schedule first.
type Schedule struct {
	ID            int64        `json:"id"`
	ChatID        int64        `json:"chat_id"`
	ScheduleType  ScheduleType `json:"schedule_type"`
	IntervalHours int          `json:"interval_hours"`
	NextRun       int64        `json:"next_run"` // unix seconds
	IsActive      bool         `json:"is_active"`
}

// PeriodToken maps the schedule type to the time-window token covering the
// span since the previous firing.
func (s Schedule) PeriodToken() string {
	switch s.ScheduleType {
	case ScheduleDaily:
		return "24h"
	case ScheduleWeekly:
		return "7d"
	default:
		if s.IntervalHours > 0 {
			return fmt.Sprintf("%dh", s.IntervalHours)
		}
		return "24h"
	}
}

// TimeWindow is an absolute [Start, End] range in unix seconds, End >= Start.
// Computed per request, never persisted.
type TimeWindow struct {
	Start       int64
	End         int64
	Description string
}

// SummaryRecord is a generated summary persisted for audit.
type SummaryRecord struct {
	ID           int64     `json:"id,omitempty"`
	ChatID       int64     `json:"chat_id"`
	PeriodStart  int64     `json:"period_start"`
	PeriodEnd    int64     `json:"period_end"`
	Description  string    `json:"description"`
	SummaryText  string    `json:"summary_text"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// BotConfig represents bot configuration
type BotConfig struct {
	// Telegram settings
	TelegramToken    string
	TelegramUsername string
	AllowedChatIDs   []int64 // empty means every chat is allowed

	// Gemini API settings
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout int

	// Supabase settings
	SupabaseURL     string
	SupabaseKey     string
	SupabaseTimeout int

	// App settings
	LogLevel    string
	Environment string

	// Summarization settings
	DailySummaryLimit int    // on-demand summaries per chat per calendar day
	MaxFetchMessages  int    // row cap for a single message fetch
	ExportDir         string // fallback transcript artifacts land here
	LinkTimecodes     bool   // best-effort timecode linking pass
}

// IsAllowedChat checks if the given chat ID is in the allowed list
func (c *BotConfig) IsAllowedChat(chatID int64) bool {
	if len(c.AllowedChatIDs) == 0 {
		return true
	}
	for _, allowedID := range c.AllowedChatIDs {
		if allowedID == chatID {
			return true
		}
	}
	return false
}
