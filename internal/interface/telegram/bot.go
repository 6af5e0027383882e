// Package telegram is the bot-facing interface of the portal monitor. It
// owns the update loop, pushes every incoming command through the
// middleware chain, and dispatches to the command handlers.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/portal-watch/portal-watch/internal/application/monitor"
	"github.com/portal-watch/portal-watch/internal/infrastructure/external/telegram"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/handler"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/middleware"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/presenter"
)

// ══════════════════════════════════════════════════════════════════════════════
// BOT CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// BotConfig contains configuration for the Telegram bot.
type BotConfig struct {
	// Token is the Telegram Bot API token.
	Token string

	// OwnerChatID is the chat that receives alerts and is always authorized.
	OwnerChatID int64

	// PassphraseHash is the bcrypt hash other chats must match to use the
	// bot. Empty disables passphrase access.
	PassphraseHash string

	// Debug enables debug logging.
	Debug bool

	// Logger for structured logging.
	Logger *slog.Logger

	// MaxConcurrentUpdates caps how many updates are processed at once.
	MaxConcurrentUpdates int

	// GracefulShutdownTimeout bounds the wait for in-flight handlers.
	GracefulShutdownTimeout time.Duration
}

// DefaultBotConfig returns sensible defaults.
func DefaultBotConfig(token string, ownerChatID int64) BotConfig {
	return BotConfig{
		Token:                   token,
		OwnerChatID:             ownerChatID,
		Logger:                  slog.Default(),
		MaxConcurrentUpdates:    16,
		GracefulShutdownTimeout: 30 * time.Second,
	}
}

// BotDependencies contains the application dependencies for the handlers.
type BotDependencies struct {
	// Service is the reconciliation facade behind all data commands.
	Service *monitor.Service

	// Poller owns the polling cycle, interval and status.
	Poller *monitor.Poller
}

// ══════════════════════════════════════════════════════════════════════════════
// BOT
// ══════════════════════════════════════════════════════════════════════════════

// Bot wires the client, router and middleware into one update pipeline.
type Bot struct {
	config BotConfig
	client *telegram.Client
	router *Router
	logger *slog.Logger

	auth     *middleware.AuthMiddleware
	limiter  *middleware.RateLimiter
	recovery *middleware.RecoveryMiddleware

	sem chan struct{}
	wg  sync.WaitGroup

	mu      sync.Mutex
	running bool
}

// NewBot builds the bot and registers every command and callback handler.
func NewBot(config BotConfig, deps BotDependencies) (*Bot, error) {
	if config.Token == "" {
		return nil, errors.New("telegram token is required")
	}
	if deps.Service == nil || deps.Poller == nil {
		return nil, errors.New("service and poller are required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxConcurrentUpdates <= 0 {
		config.MaxConcurrentUpdates = 16
	}

	clientConfig := telegram.DefaultClientConfig(config.Token)
	clientConfig.Logger = config.Logger
	clientConfig.Debug = config.Debug

	keyboards := presenter.NewKeyboardBuilder()
	reports := presenter.NewReportPresenter()

	router := NewRouter(RouterConfig{
		Logger: config.Logger,
		Debug:  config.Debug,
	})
	router.RegisterCommand("start", handler.NewStartHandler(keyboards))
	router.RegisterCommand("help", handler.NewHelpHandler())
	router.RegisterCommand("attendance", handler.NewAttendanceHandler(deps.Service, reports, keyboards))
	router.RegisterCommand("marks", handler.NewMarksHandler(deps.Service, reports, keyboards))
	router.RegisterCommand("semesters", handler.NewSemestersHandler(deps.Service, keyboards))
	router.RegisterCommand("interval", handler.NewIntervalHandler(deps.Poller))
	router.RegisterCommand("status", handler.NewStatusHandler(deps.Poller, reports, keyboards))

	router.RegisterCallbackPrefix("cmd:", router.createCommandCallbackHandler())
	router.RegisterCallbackPrefix("refresh:", router.createRefreshCallbackHandler())
	router.RegisterCallbackPrefix("marks:", router.createSemesterCallbackHandler())

	return &Bot{
		config:   config,
		client:   telegram.NewClient(clientConfig),
		router:   router,
		logger:   config.Logger,
		auth:     middleware.NewAuthMiddleware(middleware.DefaultAuthConfig(config.OwnerChatID, config.PassphraseHash)),
		limiter:  middleware.NewRateLimiter(middleware.DefaultRateLimitConfig()),
		recovery: middleware.NewRecoveryMiddleware(middleware.DefaultRecoveryConfig()),
		sem:      make(chan struct{}, config.MaxConcurrentUpdates),
	}, nil
}

// Client exposes the underlying Telegram client, mainly so the notifier can
// share the bot's connection.
func (b *Bot) Client() *telegram.Client {
	return b.client
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE
// ══════════════════════════════════════════════════════════════════════════════

// Start validates the token and long-polls for updates until ctx is
// cancelled. On shutdown it waits, bounded, for in-flight handlers.
func (b *Bot) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return errors.New("bot is already running")
	}
	b.running = true
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.running = false
		b.mu.Unlock()
	}()

	me, err := b.client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify bot token: %w", err)
	}
	b.logger.Info("telegram bot started", "username", me.Username, "debug", b.config.Debug)

	pollErr := b.client.StartPolling(ctx, b.dispatch)

	settled := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(settled)
	}()
	select {
	case <-settled:
		b.logger.Info("all handlers completed gracefully")
	case <-time.After(b.config.GracefulShutdownTimeout):
		b.logger.Warn("graceful shutdown timeout exceeded")
	}

	return pollErr
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE HANDLING
// ══════════════════════════════════════════════════════════════════════════════

// dispatch routes one update to the message or callback path, under the
// concurrency cap.
func (b *Bot) dispatch(ctx context.Context, update *telegram.Update) error {
	select {
	case b.sem <- struct{}{}:
		defer func() { <-b.sem }()
	case <-ctx.Done():
		return ctx.Err()
	}

	b.wg.Add(1)
	defer b.wg.Done()

	var err error
	switch {
	case update.Message != nil:
		err = b.onMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		err = b.onCallback(ctx, update.CallbackQuery)
	default:
		return nil
	}

	if err != nil {
		b.logger.Error("failed to handle update", "update_id", update.UpdateID, "error", err)
	}
	return err
}

func (b *Bot) onMessage(ctx context.Context, msg *telegram.Message) error {
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return nil
	}

	chatID := msg.Chat.ID
	ctx = middleware.ContextWithChatID(ctx, chatID)
	ctx = middleware.ContextWithTelegramID(ctx, msg.From.ID)

	if command := telegram.ExtractCommand(msg); command != "" {
		return b.runCommand(ctx, chatID, int(msg.MessageID), command, telegram.ExtractCommandArgs(msg))
	}
	if msg.Text != "" {
		return b.onPlainText(ctx, chatID, msg.Text)
	}
	return nil
}

// runCommand pushes one command through rate limiting, auth and the
// panic-recovery wrapper before it reaches the router.
func (b *Bot) runCommand(ctx context.Context, chatID int64, messageID int, command, args string) error {
	if limited := b.limiter.Check(ctx, chatID); !limited.Allowed {
		_, err := b.client.SendHTML(ctx, chatID, limited.ResponseMessage)
		return err
	}

	if auth := b.auth.Authorize(ctx, chatID, command); !auth.ShouldContinue {
		_, err := b.client.SendHTML(ctx, chatID, auth.ResponseMessage)
		return err
	}

	outcome := b.recovery.RecoverWithHandler(ctx, chatID, command, func() error {
		return b.router.HandleCommand(ctx, command, CommandContext{
			ChatID:    chatID,
			MessageID: messageID,
			Args:      args,
			Client:    b.client,
		})
	})
	if outcome.Recovered {
		_, err := b.client.SendHTML(ctx, chatID, outcome.UserMessage)
		return err
	}
	return nil
}

// onPlainText handles non-command text. The only text the bot cares about
// is a passphrase attempt from an unauthorized chat.
func (b *Bot) onPlainText(ctx context.Context, chatID int64, text string) error {
	auth := b.auth.Authorize(ctx, chatID, "")
	if auth.Authorized {
		return nil
	}

	if b.auth.TryPassphrase(chatID, text) {
		b.logger.Info("chat authorized via passphrase", "chat_id", chatID)
		_, err := b.client.SendHTML(ctx, chatID,
			"✅ Access granted. Use /help to see what I can do.")
		return err
	}

	_, err := b.client.SendHTML(ctx, chatID, auth.ResponseMessage)
	return err
}

func (b *Bot) onCallback(ctx context.Context, cq *telegram.CallbackQuery) error {
	if cq == nil || cq.From == nil {
		return nil
	}

	var chatID int64
	var messageID int64
	if cq.Message != nil && cq.Message.Chat != nil {
		chatID = cq.Message.Chat.ID
		messageID = cq.Message.MessageID
	}

	ctx = middleware.ContextWithChatID(ctx, chatID)
	ctx = middleware.ContextWithTelegramID(ctx, cq.From.ID)

	// Always answer, even on rejection, so the button stops spinning.
	defer func() {
		_ = b.client.AnswerCallbackQuery(ctx, cq.ID, "", false)
	}()

	if limited := b.limiter.Check(ctx, chatID); !limited.Allowed {
		_ = b.client.AnswerCallbackQuery(ctx, cq.ID, "⏳ Too fast, wait a moment.", true)
		return nil
	}
	if auth := b.auth.Authorize(ctx, chatID, "callback"); !auth.ShouldContinue {
		_ = b.client.AnswerCallbackQuery(ctx, cq.ID, "🔒 Not authorized.", true)
		return nil
	}

	outcome := b.recovery.RecoverWithHandler(ctx, chatID, "callback:"+cq.Data, func() error {
		return b.router.HandleCallback(ctx, cq.Data, CallbackContext{
			ChatID:    chatID,
			MessageID: int(messageID),
			QueryID:   cq.ID,
			Data:      cq.Data,
			Client:    b.client,
		})
	})
	if outcome.Recovered && chatID > 0 {
		_, _ = b.client.SendHTML(ctx, chatID, outcome.UserMessage)
	}
	return nil
}
