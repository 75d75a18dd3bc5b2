package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"tiquetera/internal/shared/constants"

	"github.com/redis/go-redis/v9"
)

type RateLimitType string

const (
	RateLimitTypeDefault  RateLimitType = "default"
	RateLimitTypePublic   RateLimitType = "public"
	RateLimitTypeCatalog  RateLimitType = "catalog"
	RateLimitTypeAuth     RateLimitType = "auth"
	RateLimitTypePurchase RateLimitType = "purchase"
	RateLimitTypeUser     RateLimitType = "user"
	RateLimitTypeHealth   RateLimitType = "health"
)

// Config holds the per-class request limits within one window
type Config struct {
	Enabled          bool          `json:"enabled"`
	WindowDuration   time.Duration `json:"window_duration"`
	DefaultRequests  int           `json:"default_requests"`
	PublicRequests   int           `json:"public_requests"`
	CatalogRequests  int           `json:"catalog_requests"`
	AuthRequests     int           `json:"auth_requests"`
	PurchaseRequests int           `json:"purchase_requests"`
	UserRequests     int           `json:"user_requests"`
	HealthRequests   int           `json:"health_requests"`
	WhitelistedIPs   []string      `json:"whitelisted_ips"`
}

// Result represents rate limit check result
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// Window counts hits in a sliding window. It returns the count including
// this hit (or the count that caused the rejection) and what remains.
type Window interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (count, remaining int, err error)
}

// RateLimiter applies Config over a Window
type RateLimiter struct {
	window Window
	config *Config
	now    func() time.Time
}

// NewRateLimiter limits with Redis. Use NewMemoryRateLimiter when no Redis
// is configured.
func NewRateLimiter(client *redis.Client, config *Config) *RateLimiter {
	return &RateLimiter{
		window: &redisWindow{client: client},
		config: config,
		now:    time.Now,
	}
}

// NewMemoryRateLimiter keeps the windows in process memory.
func NewMemoryRateLimiter(config *Config) *RateLimiter {
	return &RateLimiter{
		window: newMemoryWindow(),
		config: config,
		now:    time.Now,
	}
}

// checks if request is allowed
func (r *RateLimiter) IsAllowed(ctx context.Context, clientIP string, limitType RateLimitType) (*Result, error) {
	now := r.now()
	limit := r.getLimit(limitType)
	resetTime := now.Add(r.config.WindowDuration).Unix()

	if !r.config.Enabled || r.isWhitelisted(clientIP) {
		return &Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetTime: resetTime,
		}, nil
	}

	key := constants.BuildRateLimitKey(clientIP, string(limitType))
	count, remaining, err := r.window.Hit(ctx, key, limit, r.config.WindowDuration, now)
	if err != nil {
		return nil, err
	}
	if remaining < 0 {
		remaining = 0
	}

	return &Result{
		Allowed:   count <= limit,
		Limit:     limit,
		Remaining: remaining,
		ResetTime: resetTime,
	}, nil
}

func (r *RateLimiter) getLimit(limitType RateLimitType) int {
	switch limitType {
	case RateLimitTypePublic:
		return r.config.PublicRequests
	case RateLimitTypeCatalog:
		return r.config.CatalogRequests
	case RateLimitTypeAuth:
		return r.config.AuthRequests
	case RateLimitTypePurchase:
		return r.config.PurchaseRequests
	case RateLimitTypeUser:
		return r.config.UserRequests
	case RateLimitTypeHealth:
		return r.config.HealthRequests
	default:
		return r.config.DefaultRequests
	}
}

func (r *RateLimiter) isWhitelisted(ip string) bool {
	for _, whitelistedIP := range r.config.WhitelistedIPs {
		if ip == whitelistedIP {
			return true
		}
	}
	return false
}

// Lua script for atomic sliding window rate limiting
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local window_start = tonumber(ARGV[1])
	local now = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])
	local member = ARGV[5]

	-- Remove old entries
	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	-- Count current requests
	local current_count = redis.call('ZCARD', key)

	-- Rejected requests are not recorded
	if current_count >= limit then
		redis.call('PEXPIRE', key, window_ms)
		return {current_count + 1, 0}
	end

	redis.call('ZADD', key, now, member)
	redis.call('PEXPIRE', key, window_ms)

	return {current_count + 1, limit - current_count - 1}
`)

type redisWindow struct {
	client *redis.Client
}

func (w *redisWindow) Hit(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (int, int, error) {
	nowMs := now.UnixMilli()
	result, err := slidingWindow.Run(ctx, w.client, []string{key},
		now.Add(-window).UnixMilli(),
		nowMs,
		limit,
		window.Milliseconds(),
		strconv.FormatInt(now.UnixNano(), 10),
	).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis eval failed: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis response")
	}
	count, ok1 := values[0].(int64)
	remaining, ok2 := values[1].(int64)
	if !ok1 || !ok2 {
		return 0, 0, fmt.Errorf("unexpected redis response")
	}
	return int(count), int(remaining), nil
}

// memoryWindow is the in-process equivalent of the Lua script.
type memoryWindow struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

func newMemoryWindow() *memoryWindow {
	return &memoryWindow{hits: make(map[string][]time.Time)}
}

func (w *memoryWindow) Hit(_ context.Context, key string, limit int, window time.Duration, now time.Time) (int, int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := now.Add(-window)
	kept := w.hits[key][:0]
	for _, t := range w.hits[key] {
		if t.After(start) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= limit {
		w.hits[key] = kept
		return len(kept) + 1, 0, nil
	}
	w.hits[key] = append(kept, now)
	return len(kept) + 1, limit - len(kept) - 1, nil
}
