package ratelimit

import (
	"context"
	"fmt"
	"time"

	"seatline/internal/shared/config"
	"seatline/internal/shared/constants"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type RateLimitType string

const (
	RateLimitTypeDefault   RateLimitType = "default"
	RateLimitTypeSync      RateLimitType = "sync"
	RateLimitTypeLifecycle RateLimitType = "lifecycle"
	RateLimitTypeHealth    RateLimitType = "health"
)

// Result represents rate limit check result
type Result struct {
	Allowed   bool  `json:"allowed"`
	Limit     int   `json:"limit"`
	Remaining int   `json:"remaining"`
	ResetTime int64 `json:"reset_time"`
}

// RateLimiter is a Redis sliding-window limiter keyed by client and route class
type RateLimiter struct {
	client *redis.Client
	config config.RateLimitConfig
	now    func() time.Time
}

func NewRateLimiter(client *redis.Client, cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		client: client,
		config: cfg,
		now:    time.Now,
	}
}

// Sliding window over a sorted set scored in milliseconds
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local window_start = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local window_ms = tonumber(ARGV[4])
local member = ARGV[5]

redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)
local current = redis.call('ZCARD', key)
if current >= limit then
	redis.call('PEXPIRE', key, window_ms)
	return {0, 0}
end

redis.call('ZADD', key, now, member)
redis.call('PEXPIRE', key, window_ms)
return {1, limit - current - 1}
`)

// IsAllowed records one request of clientIP and reports whether it fits
// the window. A disabled limiter, a whitelisted client or a missing Redis
// client always allows.
func (r *RateLimiter) IsAllowed(ctx context.Context, clientIP string, limitType RateLimitType) (*Result, error) {
	limit := r.getLimit(limitType)
	now := r.now()
	if !r.config.Enabled || r.client == nil || r.isWhitelisted(clientIP) {
		return &Result{
			Allowed:   true,
			Limit:     limit,
			Remaining: limit,
			ResetTime: now.Add(r.config.WindowDuration).Unix(),
		}, nil
	}

	key := fmt.Sprintf("%s%s:%s", constants.RATE_LIMIT_KEY_PREFIX, clientIP, limitType)
	windowStart := now.Add(-r.config.WindowDuration)

	values, err := slidingWindow.Run(ctx, r.client, []string{key},
		windowStart.UnixMilli(),
		now.UnixMilli(),
		limit,
		r.config.WindowDuration.Milliseconds(),
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis eval failed: %w", err)
	}
	if len(values) != 2 {
		return nil, fmt.Errorf("unexpected redis response")
	}

	return &Result{
		Allowed:   values[0] == 1,
		Limit:     limit,
		Remaining: int(values[1]),
		ResetTime: now.Add(r.config.WindowDuration).Unix(),
	}, nil
}

func (r *RateLimiter) getLimit(limitType RateLimitType) int {
	switch limitType {
	case RateLimitTypeSync:
		return r.config.SyncRequests
	case RateLimitTypeLifecycle:
		return r.config.LifecycleRequests
	case RateLimitTypeHealth:
		return r.config.HealthRequests
	default:
		return r.config.DefaultRequests
	}
}

func (r *RateLimiter) isWhitelisted(ip string) bool {
	for _, whitelisted := range r.config.WhitelistedIPs {
		if ip == whitelisted {
			return true
		}
	}
	return false
}
