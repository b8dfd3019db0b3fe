package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// EmitLimiter throttles event emission per organization with a Redis
// sliding window, protecting the shared store from a runaway producer
// (a stuck webhook sender, an import loop). A Lua script atomically trims
// expired entries, checks the count and records the new emission.
type EmitLimiter struct {
	redisClient *redis.Client
	logger      *slog.Logger
	script      *redis.Script
	window      time.Duration
}

// 1. Drop entries older than the window
// 2. Count what remains
// 3. Under the limit: record this emission, return 1 (allowed)
// 4. Otherwise return 0 (throttled)
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('EXPIRE', key, window / 1000 + 1)
    return 1
else
    return 0
end
`)

func NewEmitLimiter(redisClient *redis.Client, window time.Duration, logger *slog.Logger) *EmitLimiter {
	if window <= 0 {
		window = time.Second
	}
	return &EmitLimiter{
		redisClient: redisClient,
		logger:      logger,
		script:      slidingWindowScript,
		window:      window,
	}
}

func emitKey(orgID string) string {
	return fmt.Sprintf("emit_rl:%s", orgID)
}

// Allow reports whether the organization may emit another event right now.
// Returns true when no limit is configured, and fails open when Redis is
// unreachable — throttling is a safety valve, not an integrity guarantee.
func (rl *EmitLimiter) Allow(ctx context.Context, orgID string, limit int) bool {
	if limit <= 0 {
		return true
	}

	now := time.Now().UnixMilli()
	member := fmt.Sprintf("%d:%d", now, time.Now().UnixNano()%10000)

	result, err := rl.script.Run(ctx, rl.redisClient, []string{emitKey(orgID)},
		now, rl.window.Milliseconds(), limit, member,
	).Int64()
	if err != nil {
		rl.logger.Error("emit limiter script failed", "error", err, "organization_id", orgID)
		return true
	}

	if result == 0 {
		rl.logger.Debug("emission throttled",
			"organization_id", orgID,
			"limit", limit,
		)
		return false
	}

	return true
}
