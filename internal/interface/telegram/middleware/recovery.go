// Package middleware holds the checks every incoming bot update passes
// through before reaching a handler: auth, rate limiting and panic
// recovery.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in handlers and converts them to user-friendly error
// messages. The bot must stay responsive even if a handler crashes.
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryConfig tunes panic handling.
type RecoveryConfig struct {
	// EnableStackTrace captures the stack in the panic record.
	EnableStackTrace bool

	// UserErrorMessage is sent to the chat when a handler panics.
	UserErrorMessage string

	// OnPanic, when set, receives every recovered panic.
	OnPanic func(ctx context.Context, info *PanicInfo)

	Logger *slog.Logger
}

// DefaultRecoveryConfig captures stacks and apologizes to the user.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace: true,
		UserErrorMessage: "😔 Something went wrong.\n\n" +
			"Please try again in a few minutes.",
		Logger: slog.Default(),
	}
}

// PanicInfo records one recovered panic.
type PanicInfo struct {
	Error      error
	PanicValue any
	StackTrace string
	ChatID     int64
	Command    string
	Timestamp  time.Time
}

// RecoveryResult tells the caller whether the handler panicked and what to
// say to the user if it did.
type RecoveryResult struct {
	Recovered   bool
	PanicInfo   *PanicInfo
	UserMessage string
}

// RecoveryMiddleware recovers handler panics.
type RecoveryMiddleware struct {
	config RecoveryConfig
}

// NewRecoveryMiddleware creates a recovery middleware.
func NewRecoveryMiddleware(config RecoveryConfig) *RecoveryMiddleware {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &RecoveryMiddleware{config: config}
}

// RecoverWithHandler runs handler, turning a panic into a RecoveryResult.
// Ordinary handler errors pass through untouched; only panics are absorbed
// here.
func (m *RecoveryMiddleware) RecoverWithHandler(
	ctx context.Context,
	chatID int64,
	command string,
	handler func() error,
) *RecoveryResult {
	var result *RecoveryResult

	func() {
		defer func() {
			if r := recover(); r != nil {
				result = m.record(ctx, r, chatID, command)
			}
		}()
		_ = handler()
	}()

	if result == nil {
		result = &RecoveryResult{Recovered: false}
	}
	return result
}

func (m *RecoveryMiddleware) record(ctx context.Context, value any, chatID int64, command string) *RecoveryResult {
	info := &PanicInfo{
		Error:      asError(value),
		PanicValue: value,
		ChatID:     chatID,
		Command:    command,
		Timestamp:  time.Now(),
	}
	if m.config.EnableStackTrace {
		info.StackTrace = string(debug.Stack())
	}

	m.config.Logger.Error("panic recovered",
		"chat_id", chatID,
		"command", command,
		"panic", fmt.Sprintf("%v", value))

	if m.config.OnPanic != nil {
		m.config.OnPanic(ctx, info)
	}

	return &RecoveryResult{
		Recovered:   true,
		PanicInfo:   info,
		UserMessage: m.config.UserErrorMessage,
	}
}

func asError(value any) error {
	switch v := value.(type) {
	case error:
		return v
	case string:
		return fmt.Errorf("%s", v)
	default:
		return fmt.Errorf("panic: %v", v)
	}
}
