package telegram

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/portal-watch/portal-watch/internal/infrastructure/external/telegram"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/handler"
	"github.com/portal-watch/portal-watch/internal/interface/telegram/presenter"
)

// RouterConfig contains configuration for the router.
type RouterConfig struct {
	Logger *slog.Logger

	// Debug logs every registration and routing decision.
	Debug bool
}

// CommandContext carries everything a command handler invocation needs.
type CommandContext struct {
	ChatID    int64
	MessageID int

	// Args is the text after the command itself.
	Args string

	Client *telegram.Client
}

// CallbackContext carries everything a callback invocation needs.
type CallbackContext struct {
	ChatID    int64
	MessageID int
	QueryID   string
	Data      string
	Client    *telegram.Client
}

// CommandHandler is implemented by every command handler.
type CommandHandler interface {
	Handle(ctx context.Context, req handler.Request) (handler.Response, error)
}

// CallbackFunc handles a callback query matching a registered prefix.
type CallbackFunc func(ctx context.Context, cbCtx CallbackContext) error

// ══════════════════════════════════════════════════════════════════════════════
// ROUTER
// Maps commands and callback-data prefixes to handlers.
// ══════════════════════════════════════════════════════════════════════════════

// Router routes Telegram updates to the registered handlers.
type Router struct {
	config RouterConfig
	logger *slog.Logger

	mu        sync.RWMutex
	commands  map[string]CommandHandler
	callbacks map[string]CallbackFunc
}

// NewRouter creates an empty router.
func NewRouter(config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Router{
		config:    config,
		logger:    config.Logger,
		commands:  make(map[string]CommandHandler),
		callbacks: make(map[string]CallbackFunc),
	}
}

// RegisterCommand maps a command name (without the leading "/") to a handler.
func (r *Router) RegisterCommand(command string, h CommandHandler) {
	r.mu.Lock()
	r.commands[command] = h
	r.mu.Unlock()

	if r.config.Debug {
		r.logger.Debug("registered command handler", "command", command)
	}
}

// RegisterCallbackPrefix maps a callback-data prefix, trailing delimiter
// included (e.g. "marks:"), to a handler.
func (r *Router) RegisterCallbackPrefix(prefix string, fn CallbackFunc) {
	r.mu.Lock()
	r.callbacks[prefix] = fn
	r.mu.Unlock()

	if r.config.Debug {
		r.logger.Debug("registered callback prefix handler", "prefix", prefix)
	}
}

// GetRegisteredCommands returns the registered command names.
func (r *Router) GetRegisteredCommands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	return names
}

// ══════════════════════════════════════════════════════════════════════════════
// ROUTING
// ══════════════════════════════════════════════════════════════════════════════

// HandleCommand runs a command handler and sends its response as a new
// message. Unregistered commands get the command list.
func (r *Router) HandleCommand(ctx context.Context, command string, cmdCtx CommandContext) error {
	resp, found, err := r.invoke(ctx, command, cmdCtx)
	if !found {
		return r.replyUnknown(ctx, cmdCtx)
	}
	if err != nil {
		return err
	}

	params := telegram.SendMessageParams{
		ChatID:    cmdCtx.ChatID,
		Text:      resp.Text,
		ParseMode: resp.ParseMode,
	}
	if resp.Keyboard != nil {
		params.ReplyMarkup = wireKeyboard(resp.Keyboard)
	}
	_, err = cmdCtx.Client.SendMessage(ctx, params)
	return err
}

// HandleCommandWithEdit runs a command handler but edits an existing
// message in place. Used by refresh-style keyboard callbacks.
func (r *Router) HandleCommandWithEdit(ctx context.Context, command string, cmdCtx CommandContext) error {
	resp, found, err := r.invoke(ctx, command, cmdCtx)
	if !found {
		return nil
	}
	if err != nil {
		return err
	}

	var kb *telegram.InlineKeyboardMarkup
	if resp.Keyboard != nil {
		kb = wireKeyboard(resp.Keyboard)
	}
	_, err = cmdCtx.Client.EditMessageText(ctx, cmdCtx.ChatID, int64(cmdCtx.MessageID), resp.Text, resp.ParseMode, kb)
	return err
}

// invoke looks up and runs a command handler. found is false when no
// handler is registered under that name.
func (r *Router) invoke(ctx context.Context, command string, cmdCtx CommandContext) (handler.Response, bool, error) {
	r.mu.RLock()
	h, ok := r.commands[command]
	r.mu.RUnlock()
	if !ok {
		return handler.Response{}, false, nil
	}

	resp, err := h.Handle(ctx, handler.Request{
		ChatID:    cmdCtx.ChatID,
		MessageID: cmdCtx.MessageID,
		Args:      cmdCtx.Args,
	})
	return resp, true, err
}

// HandleCallback routes callback data to the longest matching registered
// prefix. Unmatched data is logged and dropped.
func (r *Router) HandleCallback(ctx context.Context, data string, cbCtx CallbackContext) error {
	r.mu.RLock()
	var best string
	var fn CallbackFunc
	for prefix, candidate := range r.callbacks {
		if strings.HasPrefix(data, prefix) && len(prefix) > len(best) {
			best = prefix
			fn = candidate
		}
	}
	r.mu.RUnlock()

	if fn == nil {
		r.logger.Warn("unknown callback", "data", data)
		return nil
	}
	return fn(ctx, cbCtx)
}

// ══════════════════════════════════════════════════════════════════════════════
// BUILT-IN CALLBACK HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// callbackPayload returns the part after the first ":" in callback data.
func callbackPayload(data string) string {
	if i := strings.IndexByte(data, ':'); i >= 0 {
		return data[i+1:]
	}
	return ""
}

// createCommandCallbackHandler serves "cmd:" buttons that trigger a
// command from a keyboard (e.g. "cmd:attendance").
func (r *Router) createCommandCallbackHandler() CallbackFunc {
	return func(ctx context.Context, cbCtx CallbackContext) error {
		command := callbackPayload(cbCtx.Data)
		if command == "" {
			return nil
		}
		return r.HandleCommand(ctx, command, CommandContext{
			ChatID:    cbCtx.ChatID,
			MessageID: cbCtx.MessageID,
			Client:    cbCtx.Client,
		})
	}
}

// createRefreshCallbackHandler serves "refresh:" buttons by re-running the
// command and editing the original message in place.
func (r *Router) createRefreshCallbackHandler() CallbackFunc {
	return func(ctx context.Context, cbCtx CallbackContext) error {
		command := callbackPayload(cbCtx.Data)
		if command == "" {
			return nil
		}
		return r.HandleCommandWithEdit(ctx, command, CommandContext{
			ChatID:    cbCtx.ChatID,
			MessageID: cbCtx.MessageID,
			Client:    cbCtx.Client,
		})
	}
}

// createSemesterCallbackHandler serves "marks:" buttons carrying a semester
// label picked from the semester keyboard.
func (r *Router) createSemesterCallbackHandler() CallbackFunc {
	return func(ctx context.Context, cbCtx CallbackContext) error {
		label := callbackPayload(cbCtx.Data)
		if label == "" {
			return nil
		}
		return r.HandleCommandWithEdit(ctx, "marks", CommandContext{
			ChatID:    cbCtx.ChatID,
			MessageID: cbCtx.MessageID,
			Args:      label,
			Client:    cbCtx.Client,
		})
	}
}

// replyUnknown answers commands without a registered handler.
func (r *Router) replyUnknown(ctx context.Context, cmdCtx CommandContext) error {
	text := "❓ <b>Unknown command</b>\n\n" +
		"Available commands:\n" +
		"• /attendance — attendance table\n" +
		"• /marks [semester] — marks summary\n" +
		"• /semesters — pick a semester\n" +
		"• /interval — polling interval\n" +
		"• /status — monitor health\n" +
		"• /help — full reference"

	_, err := cmdCtx.Client.SendHTML(ctx, cmdCtx.ChatID, text)
	return err
}

// wireKeyboard converts a presenter keyboard to the Telegram wire format.
func wireKeyboard(kb *presenter.InlineKeyboard) *telegram.InlineKeyboardMarkup {
	if kb == nil || len(kb.Rows) == 0 {
		return nil
	}

	markup := &telegram.InlineKeyboardMarkup{
		InlineKeyboard: make([][]telegram.InlineKeyboardButton, len(kb.Rows)),
	}
	for i, row := range kb.Rows {
		markup.InlineKeyboard[i] = make([]telegram.InlineKeyboardButton, len(row))
		for j, b := range row {
			markup.InlineKeyboard[i][j] = telegram.InlineKeyboardButton{
				Text:         b.Text,
				CallbackData: b.CallbackData,
				URL:          b.URL,
			}
		}
	}
	return markup
}
