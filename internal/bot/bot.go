package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/telegram-summary-bot/internal/models"
	"github.com/telegram-summary-bot/internal/ratelimit"
	"github.com/telegram-summary-bot/internal/storage"
	"github.com/telegram-summary-bot/internal/summary"
)

// Bot represents the Telegram bot
type Bot struct {
	api       *tgbotapi.BotAPI
	config    *models.BotConfig
	storage   *storage.Client
	generator *summary.Pipeline
	limiter   *ratelimit.Limiter
	logger    zerolog.Logger
	wg        sync.WaitGroup // Tracks active handlers for graceful shutdown
	chatLocks sync.Map       // chat_id -> *sync.Mutex, serializes on-demand summaries per chat
}

// New creates a new bot instance
func New(
	config *models.BotConfig,
	storage *storage.Client,
	generator *summary.Pipeline,
	limiter *ratelimit.Limiter,
	logger zerolog.Logger,
) (*Bot, error) {
	// Create Telegram bot API client
	api, err := tgbotapi.NewBotAPI(config.TelegramToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	// Set debug mode based on log level
	api.Debug = config.LogLevel == "debug"

	logger.Info().
		Str("username", api.Self.UserName).
		Int64("id", api.Self.ID).
		Msg("Telegram bot authorized")

	return &Bot{
		api:       api,
		config:    config,
		storage:   storage,
		generator: generator,
		limiter:   limiter,
		logger:    logger.With().Str("component", "bot").Logger(),
	}, nil
}

// Start starts the bot
func (b *Bot) Start(ctx context.Context) error {
	b.logger.Info().Msg("Starting bot...")

	// Configure update settings
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	// Get updates channel
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info().Msg("Bot started, waiting for messages...")

	// Process updates
	for {
		select {
		case <-ctx.Done():
			b.logger.Info().Msg("Shutting down bot...")
			b.api.StopReceivingUpdates()

			// Wait for all active handlers to complete
			b.logger.Info().Msg("Waiting for active handlers to complete...")
			b.wg.Wait()
			b.logger.Info().Msg("All handlers completed")

			return nil

		case update := <-updates:
			// Track this handler in WaitGroup
			b.wg.Add(1)
			// Process update in a goroutine to not block
			go func(upd tgbotapi.Update) {
				defer b.wg.Done()
				b.handleUpdate(ctx, upd)
			}(update)
		}
	}
}

// Stop stops the bot and waits for active handlers to finish
func (b *Bot) Stop() {
	b.logger.Info().Msg("Stopping bot...")
	b.api.StopReceivingUpdates()
	b.wg.Wait()
}

// GetUsername returns bot username
func (b *Bot) GetUsername() string {
	return b.api.Self.UserName
}

// SendMessage delivers text to a chat. Permanent delivery failures (the chat
// is gone or the bot was removed) come back wrapped in models.ErrChatUnreachable
// so schedule processing can deactivate the job.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Msg("Failed to send message")
		if isPermanentDeliveryError(err) {
			return fmt.Errorf("%w: %v", models.ErrChatUnreachable, err)
		}
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

// SendDocument delivers a file to a chat (the fallback transcript artifact).
func (b *Bot) SendDocument(ctx context.Context, chatID int64, path, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	doc.Caption = caption

	if _, err := b.api.Send(doc); err != nil {
		b.logger.Error().
			Err(err).
			Int64("chat_id", chatID).
			Str("path", path).
			Msg("Failed to send document")
		if isPermanentDeliveryError(err) {
			return fmt.Errorf("%w: %v", models.ErrChatUnreachable, err)
		}
		return fmt.Errorf("failed to send document: %w", err)
	}

	return nil
}

// isAdmin resolves whether the user may change chat configuration. Private
// chats have no membership to resolve; everyone is their own admin there.
func (b *Bot) isAdmin(chat *tgbotapi.Chat, userID int64) bool {
	if chat.IsPrivate() {
		return true
	}

	member, err := b.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: chat.ID,
			UserID: userID,
		},
	})
	if err != nil {
		b.logger.Warn().
			Err(err).
			Int64("chat_id", chat.ID).
			Int64("user_id", userID).
			Msg("Failed to resolve chat membership")
		return false
	}

	return member.IsAdministrator() || member.IsCreator()
}

// chatLock returns the per-chat mutex serializing on-demand summary requests,
// so concurrent requests for one chat cannot race on quota or duplicate work.
func (b *Bot) chatLock(chatID int64) *sync.Mutex {
	mu, _ := b.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// isPermanentDeliveryError checks for error classes meaning the chat target
// no longer exists or the bot can never reach it again
func isPermanentDeliveryError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "chat not found") ||
		strings.Contains(msg, "bot was kicked") ||
		strings.Contains(msg, "bot was blocked") ||
		strings.Contains(msg, "user is deactivated") ||
		strings.Contains(msg, "group chat was upgraded") ||
		strings.Contains(msg, "not enough rights")
}
