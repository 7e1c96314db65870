// Package middleware contains Telegram bot middlewares for update processing.
package middleware

import (
	"context"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER
// Per-user sliding window limiter. Keeps one misbehaving chat from
// starving the update workers.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of updates allowed per window.
	RequestsPerWindow int

	// Window is the sliding window size.
	Window time.Duration

	// CleanupInterval is how often stale user buckets are evicted.
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig returns sensible defaults for the rate limiter.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerWindow: 20,
		Window:            10 * time.Second,
		CleanupInterval:   time.Minute,
	}
}

// RateLimitResult is the outcome of a rate limit check.
type RateLimitResult struct {
	// Allowed indicates whether the update may proceed.
	Allowed bool

	// RetryAfter is how long the user should wait (when not allowed).
	RetryAfter time.Duration
}

// RateLimiter limits update processing per Telegram user.
type RateLimiter struct {
	config  RateLimitConfig
	mu      sync.Mutex
	buckets map[int64][]time.Time
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		config:  config,
		buckets: make(map[int64][]time.Time),
	}

	go rl.cleanupLoop()

	return rl
}

// Check records one update for the user and reports whether it is allowed.
func (rl *RateLimiter) Check(_ context.Context, telegramID int64) RateLimitResult {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.config.Window)

	recent := rl.buckets[telegramID][:0]
	for _, ts := range rl.buckets[telegramID] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= rl.config.RequestsPerWindow {
		rl.buckets[telegramID] = recent
		return RateLimitResult{
			Allowed:    false,
			RetryAfter: recent[0].Add(rl.config.Window).Sub(now),
		}
	}

	rl.buckets[telegramID] = append(recent, now)
	return RateLimitResult{Allowed: true}
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		rl.cleanup()
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.config.Window)
	for id, times := range rl.buckets {
		if len(times) == 0 || !times[len(times)-1].After(cutoff) {
			delete(rl.buckets, id)
		}
	}
}
