package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT KEYS
// Used to pass data through the request context.
// ══════════════════════════════════════════════════════════════════════════════

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ChatIDContextKey is the context key for the originating chat ID.
	ChatIDContextKey contextKey = "chat_id"

	// TelegramIDContextKey is the context key for the Telegram user ID.
	TelegramIDContextKey contextKey = "telegram_id"

	// StartTimeContextKey is the context key for request start time.
	StartTimeContextKey contextKey = "start_time"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTH MIDDLEWARE
// The bot serves a single student. The owner chat is always authorized;
// any other chat must present the access passphrase once, after which it
// stays authorized for the session TTL.
// ══════════════════════════════════════════════════════════════════════════════

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// OwnerChatID is the chat that is always authorized. Zero means no
	// owner chat is configured and every chat must use the passphrase.
	OwnerChatID int64

	// PassphraseHash is the bcrypt hash of the access passphrase. Empty
	// means passphrase access is disabled and only the owner chat may
	// use the bot.
	PassphraseHash string

	// SessionTTL is how long a passphrase authorization lasts.
	SessionTTL time.Duration

	// PublicCommands are commands that don't require authorization.
	PublicCommands map[string]bool

	// OnUnauthorized returns the message sent to an unauthorized chat.
	OnUnauthorized func(chatID int64) string
}

// DefaultAuthConfig returns sensible defaults for auth middleware.
func DefaultAuthConfig(ownerChatID int64, passphraseHash string) AuthConfig {
	return AuthConfig{
		OwnerChatID:    ownerChatID,
		PassphraseHash: passphraseHash,
		SessionTTL:     24 * time.Hour,
		PublicCommands: map[string]bool{
			"start": true,
			"help":  true,
		},
		OnUnauthorized: func(chatID int64) string {
			return "🔒 This bot is private.\n\n" +
				"If you have the access passphrase, send it as a plain message."
		},
	}
}

// AuthMiddleware authorizes chats before commands reach the handlers.
type AuthMiddleware struct {
	config   AuthConfig
	sessions *sessionStore
}

// NewAuthMiddleware creates a new auth middleware with the given configuration.
func NewAuthMiddleware(config AuthConfig) *AuthMiddleware {
	if config.SessionTTL <= 0 {
		config.SessionTTL = 24 * time.Hour
	}
	return &AuthMiddleware{
		config:   config,
		sessions: newSessionStore(config.SessionTTL),
	}
}

// AuthResult represents the result of an authorization check.
type AuthResult struct {
	// Authorized indicates if the chat may run protected commands.
	Authorized bool

	// ShouldContinue indicates if request processing should continue.
	ShouldContinue bool

	// ResponseMessage is the message to send if authorization failed.
	ResponseMessage string
}

// Authorize checks whether the chat may run the given command.
func (m *AuthMiddleware) Authorize(_ context.Context, chatID int64, command string) *AuthResult {
	if m.isAuthorized(chatID) {
		return &AuthResult{Authorized: true, ShouldContinue: true}
	}

	if m.config.PublicCommands[command] {
		return &AuthResult{Authorized: false, ShouldContinue: true}
	}

	return &AuthResult{
		Authorized:      false,
		ShouldContinue:  false,
		ResponseMessage: m.config.OnUnauthorized(chatID),
	}
}

// TryPassphrase checks a plain-text message against the configured
// passphrase hash. On success the chat is authorized for the session TTL.
func (m *AuthMiddleware) TryPassphrase(chatID int64, input string) bool {
	if m.config.PassphraseHash == "" {
		return false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(m.config.PassphraseHash), []byte(input)); err != nil {
		return false
	}
	m.sessions.grant(chatID)
	return true
}

// isAuthorized reports whether the chat is the owner or holds a session.
func (m *AuthMiddleware) isAuthorized(chatID int64) bool {
	if m.config.OwnerChatID != 0 && chatID == m.config.OwnerChatID {
		return true
	}
	return m.sessions.valid(chatID)
}

// Revoke drops a chat's passphrase session.
func (m *AuthMiddleware) Revoke(chatID int64) {
	m.sessions.revoke(chatID)
}

// HashPassphrase produces the bcrypt hash to store in configuration.
func HashPassphrase(passphrase string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// ContextWithChatID adds the originating chat ID to the context.
func ContextWithChatID(ctx context.Context, chatID int64) context.Context {
	return context.WithValue(ctx, ChatIDContextKey, chatID)
}

// ChatIDFromContext retrieves the chat ID from context. Returns 0 if not set.
func ChatIDFromContext(ctx context.Context) int64 {
	id, ok := ctx.Value(ChatIDContextKey).(int64)
	if !ok {
		return 0
	}
	return id
}

// ContextWithTelegramID adds the Telegram user ID to the context.
func ContextWithTelegramID(ctx context.Context, telegramID int64) context.Context {
	return context.WithValue(ctx, TelegramIDContextKey, telegramID)
}

// TelegramIDFromContext retrieves the Telegram user ID from context.
// Returns 0 if not found.
func TelegramIDFromContext(ctx context.Context) int64 {
	id, ok := ctx.Value(TelegramIDContextKey).(int64)
	if !ok {
		return 0
	}
	return id
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION STORE
// In-memory store of chats that passed the passphrase check.
// ══════════════════════════════════════════════════════════════════════════════

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]time.Time // chatID -> expiry
	ttl      time.Duration
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[int64]time.Time),
		ttl:      ttl,
	}
}

func (s *sessionStore) grant(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[chatID] = time.Now().Add(s.ttl)
}

func (s *sessionStore) valid(chatID int64) bool {
	s.mu.RLock()
	expiry, ok := s.sessions[chatID]
	s.mu.RUnlock()

	if !ok {
		return false
	}
	if time.Now().After(expiry) {
		s.revoke(chatID)
		return false
	}
	return true
}

func (s *sessionStore) revoke(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}
