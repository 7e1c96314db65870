// Package middleware contains Telegram bot middlewares for update processing.
// Every incoming update passes the chain (rate limit → auth → recovery)
// before it reaches a handler.
package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/univer-hub/rector-task-bot/internal/domain/shared"
	"github.com/univer-hub/rector-task-bot/internal/domain/user"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT KEYS
// ══════════════════════════════════════════════════════════════════════════════

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserContextKey is the context key for the authenticated user.
	UserContextKey contextKey = "user"

	// TelegramIDContextKey is the context key for the Telegram user ID.
	TelegramIDContextKey contextKey = "telegram_id"

	// StartTimeContextKey is the context key for update processing start time.
	StartTimeContextKey contextKey = "start_time"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUTH MIDDLEWARE
// Resolves the sender to a registered user and injects them into the
// context. Unregistered users are routed to the contact-sharing
// registration flow, not silently dropped.
// ══════════════════════════════════════════════════════════════════════════════

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	// PublicCommands are commands available without registration.
	PublicCommands map[string]bool

	// CacheTTL is how long resolved users are cached.
	CacheTTL time.Duration

	// OnUnauthorized builds the message sent to unregistered users
	// who try a protected command.
	OnUnauthorized func(telegramID int64) string
}

// DefaultAuthConfig returns sensible defaults for auth middleware.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		PublicCommands: map[string]bool{
			"start": true,
			"help":  true,
		},
		CacheTTL: 5 * time.Minute,
		OnUnauthorized: func(telegramID int64) string {
			return "👋 Вы ещё не зарегистрированы.\n\n" +
				"Отправьте /start и поделитесь контактом, чтобы начать работу."
		},
	}
}

// AuthMiddleware authenticates Telegram users against the user registry.
type AuthMiddleware struct {
	userRepo user.Repository
	config   AuthConfig
	cache    *userCache
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(repo user.Repository, config AuthConfig) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: repo,
		config:   config,
		cache:    newUserCache(config.CacheTTL),
	}
}

// AuthResult represents the result of an authentication check.
type AuthResult struct {
	// IsAuthenticated indicates if the sender is registered.
	IsAuthenticated bool

	// User is the authenticated user (nil if not registered).
	User *user.User

	// ShouldContinue indicates if update processing should continue.
	ShouldContinue bool

	// ResponseMessage is sent when a protected command was refused.
	ResponseMessage string
}

// Authenticate resolves the sender. Public commands pass through
// unauthenticated so that /start can drive registration.
func (m *AuthMiddleware) Authenticate(
	ctx context.Context,
	telegramID int64,
	command string,
) (*AuthResult, error) {
	public := m.config.PublicCommands[command]

	if cached := m.cache.get(telegramID); cached != nil {
		return &AuthResult{
			IsAuthenticated: true,
			User:            cached,
			ShouldContinue:  true,
		}, nil
	}

	u, err := m.userRepo.GetByTelegramID(ctx, shared.TelegramID(telegramID))
	if err != nil {
		if shared.IsNotFound(err) {
			if public {
				return &AuthResult{ShouldContinue: true}, nil
			}
			return &AuthResult{
				ShouldContinue:  false,
				ResponseMessage: m.config.OnUnauthorized(telegramID),
			}, nil
		}
		return nil, fmt.Errorf("auth: failed to get user: %w", err)
	}

	m.cache.set(telegramID, u)

	return &AuthResult{
		IsAuthenticated: true,
		User:            u,
		ShouldContinue:  true,
	}, nil
}

// InvalidateCache removes a user from the auth cache.
// Call this after registration so the fresh role is picked up.
func (m *AuthMiddleware) InvalidateCache(telegramID int64) {
	m.cache.delete(telegramID)
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// ContextWithUser adds the authenticated user to the context.
func ContextWithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, UserContextKey, u)
}

// UserFromContext retrieves the authenticated user from the context.
// Returns nil if no user is present.
func UserFromContext(ctx context.Context) *user.User {
	u, ok := ctx.Value(UserContextKey).(*user.User)
	if !ok {
		return nil
	}
	return u
}

// ContextWithTelegramID adds the Telegram ID to the context.
func ContextWithTelegramID(ctx context.Context, telegramID int64) context.Context {
	return context.WithValue(ctx, TelegramIDContextKey, telegramID)
}

// TelegramIDFromContext retrieves the Telegram ID from the context.
// Returns 0 if not found.
func TelegramIDFromContext(ctx context.Context) int64 {
	id, ok := ctx.Value(TelegramIDContextKey).(int64)
	if !ok {
		return 0
	}
	return id
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHORIZATION CHECKS
// ══════════════════════════════════════════════════════════════════════════════

// RequireRector checks that the user holds the rector role.
func RequireRector(u *user.User) error {
	if u == nil {
		return shared.ErrPermissionDenied
	}
	if !u.Role.IsRector() {
		return shared.NewDomainError("auth", "RequireRector",
			shared.ErrPermissionDenied, "command is available to the rector only")
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// USER CACHE
// In-memory cache for resolved users. A single bot instance serves all
// updates, so process-local caching is sufficient here.
// ══════════════════════════════════════════════════════════════════════════════

type userCache struct {
	mu      sync.RWMutex
	entries map[int64]*cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	user      *user.User
	expiresAt time.Time
}

func newUserCache(ttl time.Duration) *userCache {
	c := &userCache{
		entries: make(map[int64]*cacheEntry),
		ttl:     ttl,
	}

	go c.cleanupLoop()

	return c
}

func (c *userCache) get(telegramID int64) *user.User {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[telegramID]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil
	}

	return entry.user
}

func (c *userCache) set(telegramID int64, u *user.User) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[telegramID] = &cacheEntry{
		user:      u,
		expiresAt: time.Now().Add(c.ttl),
	}
}

func (c *userCache) delete(telegramID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, telegramID)
}

func (c *userCache) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.cleanup()
	}
}

func (c *userCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for id, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, id)
		}
	}
}
