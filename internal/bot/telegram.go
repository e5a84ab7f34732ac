package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"loyalty-bot/internal/broadcast"
	"loyalty-bot/internal/ledger"
	"loyalty-bot/internal/storage"
	"loyalty-bot/pkg/logger"
)

const (
	callbackBackToMenu = "back_to_menu"
	callbackCopyPhone  = "copy_phone"
)

// VenueInfo carries the venue links and contacts shown in the user menu.
type VenueInfo struct {
	MenuURL      string
	DeliveryURL  string
	InstagramURL string
	BookingPhone string
}

type Options struct {
	Token      string
	Admins     []string
	Venue      VenueInfo
	SessionTTL time.Duration

	// Endpoint overrides the Telegram API endpoint, e.g. for a local Bot
	// API server. Empty means the public one.
	Endpoint   string
	// RetryDelay is the initial backoff between connection attempts.
	RetryDelay time.Duration
}

const (
	connectAttempts  = 5
	connectBaseDelay = time.Second
)

// telegramAPI is the slice of the Bot API client the bot calls.
// *tgbotapi.BotAPI satisfies it; tests swap in a fake.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot is the Telegram front of the loyalty program.
type Bot struct {
	api         telegramAPI
	store       storage.Store
	ledger      *ledger.Ledger
	broadcaster *broadcast.Broadcaster
	scheduler   *broadcast.Scheduler
	logger      *logger.Logger
	sessions    *SessionManager
	admins      map[string]struct{}
	venue       VenueInfo
}

func New(opts Options, store storage.Store, ldg *ledger.Ledger, logger *logger.Logger) (*Bot, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = connectBaseDelay
	}

	// The getMe probe inside NewBotAPI fails on transient network errors
	// just like a cold database, so it gets the same bounded backoff.
	var api *tgbotapi.BotAPI
	var err error
	for i := 0; i < connectAttempts; i++ {
		api, err = tgbotapi.NewBotAPIWithAPIEndpoint(opts.Token, endpoint)
		if err == nil {
			break
		}
		logger.Error("Failed to reach Telegram, retrying...", "error", err)
		time.Sleep(delay)
		delay *= 2
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	logger.Info("Authorized on Telegram", "username", api.Self.UserName)

	admins := make(map[string]struct{}, len(opts.Admins))
	for _, name := range opts.Admins {
		admins[name] = struct{}{}
	}

	return &Bot{
		api:      api,
		store:    store,
		ledger:   ldg,
		logger:   logger,
		sessions: NewSessionManager(opts.SessionTTL),
		admins:   admins,
		venue:    opts.Venue,
	}, nil
}

// AttachBroadcast wires in the fan-out path and the weekly scheduler. The
// broadcaster needs the bot as its Sender, so this runs after New.
func (b *Bot) AttachBroadcast(bc *broadcast.Broadcaster, sched *broadcast.Scheduler) {
	b.broadcaster = bc
	b.scheduler = sched
}

// SendText delivers one plain message. This is the broadcast.Sender
// implementation.
func (b *Bot) SendText(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Start removes any stale webhook and begins long polling.
func (b *Bot) Start(ctx context.Context) error {
	_, err := b.api.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.sessions.StartJanitor(ctx)

	b.logger.Info("Started receiving Telegram updates")
	go b.handleUpdates(ctx, updates)

	return nil
}

func (b *Bot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		go func(update tgbotapi.Update) {
			defer func() {
				if r := recover(); r != nil {
					b.logger.Error("Recovered from panic while processing update", "error", r)
				}
			}()

			switch {
			case update.Message != nil:
				b.handleMessage(ctx, update.Message)
			case update.CallbackQuery != nil:
				b.handleCallbackQuery(ctx, update.CallbackQuery)
			}
		}(update)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	switch {
	case message.Contact != nil:
		b.handleContact(ctx, message)
	case message.IsCommand():
		b.handleCommand(message)
	default:
		b.handleText(ctx, message)
	}
}

func (b *Bot) handleCommand(message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.reply(message.Chat.ID, "Я бот програми лояльності закладу. Натисніть /start, щоб зареєструватися та відкрити меню.")
	default:
		b.reply(message.Chat.ID, "Невідома команда. Натисніть /start для початку роботи.")
	}
}

// handleText routes exact-match menu buttons first, then free text into
// the admin conversation if one is in progress.
func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	switch message.Text {
	case btnBack:
		b.handleBackToMenu(message)
		return
	case btnQR:
		b.handleQR(ctx, message)
		return
	case btnCashback:
		b.handleCashback(ctx, message)
		return
	case btnMenu:
		b.handleMenuLink(message)
		return
	case btnDelivery:
		b.handleDelivery(message)
		return
	case btnBooking:
		b.handleBooking(message)
		return
	case btnPromos:
		b.handlePromos(ctx, message)
		return
	}

	if b.handleAdminButton(ctx, message) {
		return
	}

	session := b.sessions.Get(message.From.ID)
	if session.State != StateIdle {
		b.handleAdminState(ctx, message, session)
		return
	}

	b.logger.Debug("Ignoring unmatched text", "chat_id", message.Chat.ID, "text", message.Text)
}

func (b *Bot) isAdmin(username string) bool {
	if username == "" {
		return false
	}
	_, ok := b.admins[username]
	return ok
}

// reply sends text without touching the current keyboard.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

// replyKB sends text with a reply or inline keyboard attached.
func (b *Bot) replyKB(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	msg.DisableWebPagePreview = true
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message", "chat_id", chatID, "error", err)
	}
}

// Stop halts polling and gives in-flight handlers a moment to finish.
func (b *Bot) Stop(ctx context.Context) error {
	b.api.StopReceivingUpdates()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}
