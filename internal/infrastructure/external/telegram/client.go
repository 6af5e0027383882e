// Package telegram is a minimal Telegram Bot API client covering what the
// monitor's bot needs: long polling, message send/edit, callback answers,
// and inline keyboards.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/portal-watch/portal-watch/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the Telegram client.
type ClientConfig struct {
	// Token is the Bot API token.
	Token string

	// BaseURL of the Bot API (default https://api.telegram.org).
	BaseURL string

	// Timeout for a single HTTP request. Must exceed the long-polling
	// wait plus network slack.
	Timeout time.Duration

	// PollWait is the long-polling hold time in seconds.
	PollWait int

	// Logger for structured logging.
	Logger *slog.Logger

	// Debug logs every API method call.
	Debug bool
}

// DefaultClientConfig returns sensible defaults for the given token.
func DefaultClientConfig(token string) ClientConfig {
	return ClientConfig{
		Token:    token,
		BaseURL:  "https://api.telegram.org",
		Timeout:  60 * time.Second,
		PollWait: 30,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// Update is one item from getUpdates.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	EditedMessage *Message       `json:"edited_message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

// Message is a Telegram message.
type Message struct {
	MessageID      int64           `json:"message_id"`
	From           *User           `json:"from,omitempty"`
	Chat           *Chat           `json:"chat"`
	Date           int64           `json:"date"`
	Text           string          `json:"text,omitempty"`
	Entities       []MessageEntity `json:"entities,omitempty"`
	ReplyToMessage *Message        `json:"reply_to_message,omitempty"`
}

// User is a Telegram account.
type User struct {
	ID           int64  `json:"id"`
	IsBot        bool   `json:"is_bot"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name,omitempty"`
	Username     string `json:"username,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	if u.LastName != "" {
		return u.FirstName + " " + u.LastName
	}
	return u.FirstName
}

// Chat is the conversation a message belongs to.
type Chat struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Title     string `json:"title,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// MessageEntity marks a span of message text (command, mention, ...).
type MessageEntity struct {
	Type   string `json:"type"`
	Offset int    `json:"offset"`
	Length int    `json:"length"`
	User   *User  `json:"user,omitempty"`
}

// CallbackQuery is a press on an inline keyboard button.
type CallbackQuery struct {
	ID              string   `json:"id"`
	From            *User    `json:"from"`
	Message         *Message `json:"message,omitempty"`
	InlineMessageID string   `json:"inline_message_id,omitempty"`
	Data            string   `json:"data,omitempty"`
}

// InlineKeyboardMarkup is a grid of inline buttons under a message.
type InlineKeyboardMarkup struct {
	InlineKeyboard [][]InlineKeyboardButton `json:"inline_keyboard"`
}

// InlineKeyboardButton is one inline button.
type InlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data,omitempty"`
	URL          string `json:"url,omitempty"`
}

// apiEnvelope is the common Bot API response wrapper.
type apiEnvelope struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result,omitempty"`
	Description string          `json:"description,omitempty"`
	ErrorCode   int             `json:"error_code,omitempty"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after,omitempty"`
	} `json:"parameters,omitempty"`
}

// APIError is a Bot API level failure (ok=false in the envelope).
type APIError struct {
	Code        int
	Description string
	RetryAfter  int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram api error %d: %s", e.Code, e.Description)
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client talks to the Bot API over HTTPS with retries on transient errors.
type Client struct {
	config  ClientConfig
	http    *http.Client
	retrier *retry.Retrier
	logger  *slog.Logger

	mu     sync.Mutex
	offset int64
}

// NewClient creates a Telegram client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.telegram.org"
	}
	if config.PollWait <= 0 {
		config.PollWait = 30
	}

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		retrier: retry.TelegramRetrier(),
		logger:  config.Logger.With("component", "telegram_client"),
	}
}

// SendMessageParams describes one sendMessage call.
type SendMessageParams struct {
	ChatID              int64
	Text                string
	ParseMode           string // "HTML", "MarkdownV2"
	DisableNotification bool
	DisableWebPreview   bool
	ReplyToMessageID    int64
	ReplyMarkup         *InlineKeyboardMarkup
}

// SendMessage sends a text message.
func (c *Client) SendMessage(ctx context.Context, params SendMessageParams) (*Message, error) {
	payload := map[string]any{
		"chat_id": params.ChatID,
		"text":    params.Text,
	}
	if params.ParseMode != "" {
		payload["parse_mode"] = params.ParseMode
	}
	if params.DisableNotification {
		payload["disable_notification"] = true
	}
	if params.DisableWebPreview {
		payload["disable_web_page_preview"] = true
	}
	if params.ReplyToMessageID > 0 {
		payload["reply_to_message_id"] = params.ReplyToMessageID
	}
	if params.ReplyMarkup != nil {
		payload["reply_markup"] = params.ReplyMarkup
	}

	var msg Message
	if err := c.call(ctx, "sendMessage", payload, &msg); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return &msg, nil
}

// SendHTML sends an HTML-formatted message.
func (c *Client) SendHTML(ctx context.Context, chatID int64, html string) (*Message, error) {
	return c.SendMessage(ctx, SendMessageParams{ChatID: chatID, Text: html, ParseMode: "HTML"})
}

// EditMessageText replaces the text (and optionally keyboard) of a sent
// message. Used by refresh buttons to update in place.
func (c *Client) EditMessageText(ctx context.Context, chatID, messageID int64, text, parseMode string, keyboard *InlineKeyboardMarkup) (*Message, error) {
	payload := map[string]any{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if parseMode != "" {
		payload["parse_mode"] = parseMode
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard
	}

	var msg Message
	if err := c.call(ctx, "editMessageText", payload, &msg); err != nil {
		return nil, fmt.Errorf("edit message text: %w", err)
	}
	return &msg, nil
}

// AnswerCallbackQuery acknowledges a button press, optionally with a toast
// or alert.
func (c *Client) AnswerCallbackQuery(ctx context.Context, queryID, text string, showAlert bool) error {
	payload := map[string]any{"callback_query_id": queryID}
	if text != "" {
		payload["text"] = text
		payload["show_alert"] = showAlert
	}

	var ok bool
	if err := c.call(ctx, "answerCallbackQuery", payload, &ok); err != nil {
		return fmt.Errorf("answer callback query: %w", err)
	}
	return nil
}

// GetMe returns the bot's own account, verifying the token.
func (c *Client) GetMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.call(ctx, "getMe", nil, &user); err != nil {
		return nil, fmt.Errorf("get me: %w", err)
	}
	return &user, nil
}

// GetUpdates long-polls for updates after offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, limit int) ([]Update, error) {
	payload := map[string]any{"timeout": c.config.PollWait}
	if offset > 0 {
		payload["offset"] = offset
	}
	if limit > 0 {
		payload["limit"] = limit
	}

	var updates []Update
	if err := c.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}
	return updates, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LONG POLLING
// ══════════════════════════════════════════════════════════════════════════════

// UpdateHandler processes one update.
type UpdateHandler func(ctx context.Context, update *Update) error

// StartPolling loops getUpdates until the context ends, dispatching every
// update to handler. Handler errors are logged, not fatal.
func (c *Client) StartPolling(ctx context.Context, handler UpdateHandler) error {
	c.logger.Info("telegram long polling started")

	for {
		if ctx.Err() != nil {
			c.logger.Info("telegram long polling stopped")
			return ctx.Err()
		}

		c.mu.Lock()
		offset := c.offset
		c.mu.Unlock()

		updates, err := c.GetUpdates(ctx, offset, 100)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			c.logger.Error("get updates failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(5 * time.Second):
			}
			continue
		}

		for i := range updates {
			u := &updates[i]

			c.mu.Lock()
			if u.UpdateID >= c.offset {
				c.offset = u.UpdateID + 1
			}
			c.mu.Unlock()

			if err := handler(ctx, u); err != nil {
				c.logger.Error("update handler failed", "update_id", u.UpdateID, "error", err)
			}
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSPORT
// ══════════════════════════════════════════════════════════════════════════════

// call invokes one Bot API method with retries. API errors in the 4xx range
// (except 429) are permanent; 429, 5xx, and transport errors are retried
// with backoff.
func (c *Client) call(ctx context.Context, method string, payload map[string]any, result any) error {
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		err := c.post(ctx, method, payload, result)
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500 {
				return err
			}
			return retry.Permanent(err)
		}
		return err
	})
}

// post performs one HTTP round trip and decodes the envelope.
func (c *Client) post(ctx context.Context, method string, payload map[string]any, result any) error {
	url := fmt.Sprintf("%s/bot%s/%s", c.config.BaseURL, c.config.Token, method)

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return retry.Permanent(fmt.Errorf("marshal payload: %w", err))
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	if c.config.Debug {
		c.logger.Debug("telegram api call", "method", method)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env apiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	if !env.OK {
		apiErr := &APIError{Code: env.ErrorCode, Description: env.Description}
		if env.Parameters != nil {
			apiErr.RetryAfter = env.Parameters.RetryAfter
		}
		return apiErr
	}

	if result != nil && len(env.Result) > 0 {
		if err := json.Unmarshal(env.Result, result); err != nil {
			return retry.Permanent(fmt.Errorf("decode result: %w", err))
		}
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MESSAGE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// IsUserBlocked reports whether err means the user blocked the bot.
func IsUserBlocked(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == http.StatusForbidden ||
		strings.Contains(apiErr.Description, "bot was blocked")
}

// ExtractCommand returns the leading bot command without the slash, or "".
// A "@botname" suffix is stripped.
func ExtractCommand(msg *Message) string {
	if msg == nil || msg.Text == "" {
		return ""
	}
	for _, e := range msg.Entities {
		if e.Type == "bot_command" && e.Offset == 0 {
			cmd := msg.Text[1:e.Length]
			if at := strings.IndexByte(cmd, '@'); at >= 0 {
				return cmd[:at]
			}
			return cmd
		}
	}
	return ""
}

// ExtractCommandArgs returns the text after the leading command, trimmed.
func ExtractCommandArgs(msg *Message) string {
	if msg == nil || msg.Text == "" {
		return ""
	}
	for _, e := range msg.Entities {
		if e.Type == "bot_command" && e.Offset == 0 && e.Length < len(msg.Text) {
			return strings.TrimLeft(msg.Text[e.Length:], " ")
		}
	}
	return ""
}
