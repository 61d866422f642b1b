package bot

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/telegram-summary-bot/internal/models"
	"github.com/telegram-summary-bot/internal/schedule"
	"github.com/telegram-summary-bot/internal/summary"
	"github.com/telegram-summary-bot/internal/timewindow"
)

// customIntervalPattern accepts "12h" or a bare hour count for /schedule.
var customIntervalPattern = regexp.MustCompile(`^(\d+)h?$`)

// handleUpdate processes incoming update
func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	// Wrap in recover middleware
	b.recoverMiddleware(func() {
		if update.Message != nil {
			b.handleMessage(ctx, update.Message)
		}
	})
}

// handleMessage processes incoming message
func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if !b.config.IsAllowedChat(message.Chat.ID) {
		b.logger.Debug().
			Int64("chat_id", message.Chat.ID).
			Msg("Ignoring message from disallowed chat")
		return
	}

	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	b.recordMessage(ctx, message)
}

// recordMessage stores an ordinary chat message so later summaries can see it
func (b *Bot) recordMessage(ctx context.Context, message *tgbotapi.Message) {
	text := message.Text
	kind := "text"
	if text == "" && message.Caption != "" {
		text = message.Caption
		kind = "caption"
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	msg := &models.Message{
		MessageID:   int64(message.MessageID),
		ChatID:      message.Chat.ID,
		DisplayName: displayName(message.From),
		Text:        text,
		Timestamp:   int64(message.Date),
		Kind:        kind,
	}
	if message.From != nil {
		msg.SenderID = message.From.ID
	}

	if err := b.storage.SaveMessage(ctx, msg); err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", message.Chat.ID).
			Int("message_id", message.MessageID).
			Msg("Failed to record message")
	}
}

// handleCommand processes bot commands
func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()

	b.logger.Info().
		Str("command", command).
		Int64("chat_id", message.Chat.ID).
		Int64("user_id", message.From.ID).
		Msg("Received command")

	switch command {
	case "summary":
		b.handleSummaryCommand(ctx, message)
	case "schedule":
		b.handleScheduleCommand(ctx, message)
	case "unschedule":
		b.handleUnscheduleCommand(ctx, message)
	case "settings":
		b.handleSettingsCommand(ctx, message)
	case "language":
		b.handleLanguageCommand(ctx, message)
	case "length":
		b.handleLengthCommand(ctx, message)
	case "timezone":
		b.handleTimezoneCommand(ctx, message)
	case "start", "help":
		b.handleHelpCommand(ctx, message)
	default:
		b.sendErrorMessage(message.Chat.ID, "❓ Unknown command. Use /help for the list of commands.")
	}
}

// handleSummaryCommand generates an on-demand summary for the requested period
func (b *Bot) handleSummaryCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	settings := b.storage.GetChatSettings(ctx, chatID)
	loc := settings.Location()

	// Serialize per chat so concurrent requests cannot race on quota or
	// generate duplicate summaries.
	mu := b.chatLock(chatID)
	mu.Lock()
	defer mu.Unlock()

	quota, err := b.limiter.Acquire(ctx, chatID, time.Now().In(loc))
	if err != nil {
		b.sendErrorMessage(chatID, "❌ Could not check the daily summary quota, try again later.")
		return
	}
	if !quota.Allowed {
		b.sendErrorMessage(chatID, fmt.Sprintf(
			"🚫 Daily summary limit reached (%d per day). The counter resets at midnight.", quota.Limit))
		return
	}

	b.sendTypingAction(chatID)

	window := timewindow.Resolve(message.CommandArguments(), time.Now().In(loc))

	messages, err := b.storage.GetMessages(ctx, chatID, window.Start, window.End)
	if err != nil {
		b.sendErrorMessage(chatID, "❌ Could not load messages, try again later.")
		return
	}

	result, err := b.generator.Generate(ctx, messages, summary.Options{
		MaxLength:   settings.SummaryLength,
		Language:    settings.Language,
		Timezone:    settings.Timezone,
		AllowExport: true,
	})
	switch {
	case errors.Is(err, models.ErrNoContent):
		b.sendErrorMessage(chatID, fmt.Sprintf("🤷 Nothing to summarize for: %s.", window.Description))
		return
	case err != nil:
		b.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Str("window", window.Description).
			Msg("Summary generation failed")
		b.sendErrorMessage(chatID, "❌ Summary generation failed, try again later.")
		return
	}

	if result.Export != nil {
		if err := b.SendDocument(ctx, chatID, result.Export.Path, result.Export.Caption()); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("Failed to deliver transcript export")
		}
		return
	}

	text := fmt.Sprintf("📝 *Summary* (%s, %d messages)\n\n%s", window.Description, len(messages), result.Text)
	if err := b.SendMessage(ctx, chatID, text); err != nil {
		return
	}

	// Best effort: the summary is already delivered, a failed audit write
	// should not surface to the user
	record := &models.SummaryRecord{
		ChatID:       chatID,
		PeriodStart:  window.Start,
		PeriodEnd:    window.End,
		Description:  window.Description,
		SummaryText:  result.Text,
		MessageCount: len(messages),
	}
	if err := b.storage.SaveSummary(ctx, record); err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to persist summary record")
	}
}

// handleScheduleCommand creates a recurring summary job
func (b *Bot) handleScheduleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !b.isAdmin(message.Chat, message.From.ID) {
		b.sendErrorMessage(chatID, "🔒 Only chat admins can manage schedules.")
		return
	}

	scheduleType, intervalHours, err := parseScheduleArg(message.CommandArguments())
	if err != nil {
		b.sendErrorMessage(chatID, "Usage: /schedule daily | weekly | <hours>h (1..168)")
		return
	}

	settings := b.storage.GetChatSettings(ctx, chatID)
	nextRun := schedule.Next(scheduleType, settings.Timezone, time.Now(), intervalHours)

	created, err := b.storage.CreateSchedule(ctx, chatID, scheduleType, intervalHours, nextRun)
	if err != nil {
		b.sendErrorMessage(chatID, "❌ Could not create the schedule, try again later.")
		return
	}

	nextLocal := time.Unix(created.NextRun, 0).In(settings.Location())
	b.sendErrorMessage(chatID, fmt.Sprintf(
		"✅ Recurring summary (%s) scheduled. First run: %s.",
		scheduleType,
		nextLocal.Format("Mon, 02 Jan 15:04 MST")))
}

// handleUnscheduleCommand cancels the chat's recurring summary
func (b *Bot) handleUnscheduleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !b.isAdmin(message.Chat, message.From.ID) {
		b.sendErrorMessage(chatID, "🔒 Only chat admins can manage schedules.")
		return
	}

	if err := b.storage.DeleteSchedule(ctx, chatID); err != nil {
		b.sendErrorMessage(chatID, "❌ Could not cancel the schedule, try again later.")
		return
	}

	b.sendErrorMessage(chatID, "✅ Recurring summary cancelled.")
}

// handleSettingsCommand shows the chat's configuration
func (b *Bot) handleSettingsCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	settings := b.storage.GetChatSettings(ctx, chatID)

	scheduleLine := "none"
	if schedules, err := b.storage.GetActiveSchedules(ctx, chatID); err == nil && len(schedules) > 0 {
		s := schedules[0]
		nextLocal := time.Unix(s.NextRun, 0).In(settings.Location())
		scheduleLine = fmt.Sprintf("%s, next run %s", s.ScheduleType, nextLocal.Format("Mon, 02 Jan 15:04"))
	}

	b.sendErrorMessage(chatID, fmt.Sprintf(
		"⚙️ Chat settings\n"+
			"Language: %s\n"+
			"Summary length: %d characters\n"+
			"Timezone: %s\n"+
			"Schedule: %s",
		settings.Language, settings.SummaryLength, settings.Timezone, scheduleLine))
}

// handleLanguageCommand sets the summary language
func (b *Bot) handleLanguageCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !b.isAdmin(message.Chat, message.From.ID) {
		b.sendErrorMessage(chatID, "🔒 Only chat admins can change settings.")
		return
	}

	lang := strings.ToLower(strings.TrimSpace(message.CommandArguments()))
	if len(lang) < 2 || len(lang) > 5 {
		b.sendErrorMessage(chatID, "Usage: /language <ISO code>, e.g. /language en")
		return
	}

	if err := b.storage.SetChatLanguage(ctx, chatID, lang); err != nil {
		b.sendErrorMessage(chatID, "❌ Could not update the language, try again later.")
		return
	}

	b.sendErrorMessage(chatID, fmt.Sprintf("✅ Summary language set to %q.", lang))
}

// handleLengthCommand sets the summary character budget
func (b *Bot) handleLengthCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !b.isAdmin(message.Chat, message.From.ID) {
		b.sendErrorMessage(chatID, "🔒 Only chat admins can change settings.")
		return
	}

	length, err := strconv.Atoi(strings.TrimSpace(message.CommandArguments()))
	if err != nil {
		b.sendErrorMessage(chatID, "Usage: /length <characters>, e.g. /length 1500")
		return
	}

	// Reject out-of-range values before storage is touched
	if err := models.ValidateSummaryLength(length); err != nil {
		b.sendErrorMessage(chatID, fmt.Sprintf("🚫 %s.", err.Error()))
		return
	}

	if err := b.storage.SetSummaryLength(ctx, chatID, length); err != nil {
		b.sendErrorMessage(chatID, "❌ Could not update the summary length, try again later.")
		return
	}

	b.sendErrorMessage(chatID, fmt.Sprintf("✅ Summary length set to %d characters.", length))
}

// handleTimezoneCommand sets the chat timezone
func (b *Bot) handleTimezoneCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !b.isAdmin(message.Chat, message.From.ID) {
		b.sendErrorMessage(chatID, "🔒 Only chat admins can change settings.")
		return
	}

	tz := strings.TrimSpace(message.CommandArguments())
	if _, err := time.LoadLocation(tz); err != nil || tz == "" {
		b.sendErrorMessage(chatID, "Usage: /timezone <IANA zone>, e.g. /timezone Europe/Berlin")
		return
	}

	if err := b.storage.SetChatTimezone(ctx, chatID, tz); err != nil {
		b.sendErrorMessage(chatID, "❌ Could not update the timezone, try again later.")
		return
	}

	b.sendErrorMessage(chatID, fmt.Sprintf("✅ Chat timezone set to %s.", tz))
}

// handleHelpCommand handles /help and /start commands
func (b *Bot) handleHelpCommand(_ context.Context, message *tgbotapi.Message) {
	helpMsg := fmt.Sprintf(
		"👋 Hi! I summarize this chat with AI.\n\n"+
			"Commands:\n"+
			"/summary [period] — summarize the last period (24h, 3d, 1w, today, yesterday; default 24h)\n"+
			"/schedule daily|weekly|<hours>h — recurring summaries (admins)\n"+
			"/unschedule — cancel the recurring summary (admins)\n"+
			"/settings — show chat configuration\n"+
			"/language <code> — summary language (admins)\n"+
			"/length <characters> — summary length, %d..%d (admins)\n"+
			"/timezone <zone> — chat timezone (admins)\n\n"+
			"On-demand summaries are limited to %d per chat per day.",
		models.MinSummaryLength, models.MaxSummaryLength, b.config.DailySummaryLimit)

	b.sendErrorMessage(message.Chat.ID, helpMsg)
}

// parseScheduleArg maps the /schedule argument to a schedule type. Custom
// intervals accept "12h" or "12" and are clamped to [1, 168] hours.
func parseScheduleArg(arg string) (models.ScheduleType, int, error) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	switch arg {
	case "daily":
		return models.ScheduleDaily, 24, nil
	case "weekly":
		return models.ScheduleWeekly, 7 * 24, nil
	}

	m := customIntervalPattern.FindStringSubmatch(arg)
	if m == nil {
		return "", 0, fmt.Errorf("unrecognized schedule argument %q", arg)
	}

	hours, err := strconv.Atoi(m[1])
	if err != nil || hours < 1 || hours > 168 {
		return "", 0, fmt.Errorf("interval out of range: %q", arg)
	}

	return models.ScheduleCustom, hours, nil
}

// displayName picks the best human-readable name for a sender
func displayName(user *tgbotapi.User) string {
	if user == nil {
		return ""
	}
	if user.UserName != "" {
		return user.UserName
	}
	if user.FirstName != "" {
		return user.FirstName
	}
	return fmt.Sprintf("user%d", user.ID)
}
