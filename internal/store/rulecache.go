package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/illinoisrecycles/irf-foundation-os-sub002/internal/domain"
)

// RuleLoader is the uncached source the cache falls through to.
type RuleLoader interface {
	ActiveRules(ctx context.Context, orgID, eventName string) ([]domain.AutomationRule, error)
}

// CachedRuleSource is a read-through Redis cache over the rule store.
// Cache keys embed a per-organization version counter; invalidation bumps
// the counter with INCR, orphaning every key of the old generation instead
// of scanning for them. Redis failures fall through to Postgres — the cache
// only ever saves work, never gates it.
type CachedRuleSource struct {
	loader RuleLoader
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedRuleSource(loader RuleLoader, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedRuleSource {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedRuleSource{
		loader: loader,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func ruleVersionKey(orgID string) string {
	return fmt.Sprintf("rules:ver:%s", orgID)
}

func ruleCacheKey(orgID string, version int64, eventName string) string {
	return fmt.Sprintf("rules:%s:%d:%s", orgID, version, eventName)
}

func (c *CachedRuleSource) version(ctx context.Context, orgID string) (int64, error) {
	ver, err := c.client.Get(ctx, ruleVersionKey(orgID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return ver, err
}

// ActiveRules returns cached rules when present, loading and caching them
// otherwise.
func (c *CachedRuleSource) ActiveRules(ctx context.Context, orgID, eventName string) ([]domain.AutomationRule, error) {
	ver, err := c.version(ctx, orgID)
	if err != nil {
		c.logger.Warn("rule cache unavailable, loading from store", "error", err)
		return c.loader.ActiveRules(ctx, orgID, eventName)
	}

	key := ruleCacheKey(orgID, ver, eventName)
	cached, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var rules []domain.AutomationRule
		if err := json.Unmarshal(cached, &rules); err == nil {
			return rules, nil
		}
		// Corrupt cache entry; fall through and overwrite it.
	} else if err != redis.Nil {
		c.logger.Warn("rule cache read failed", "error", err)
	}

	rules, err := c.loader.ActiveRules(ctx, orgID, eventName)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(rules); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("rule cache write failed", "error", err)
		}
	}

	return rules, nil
}

// Invalidate discards every cached rule set of the organization. Called
// after any rule mutation.
func (c *CachedRuleSource) Invalidate(ctx context.Context, orgID string) {
	if err := c.client.Incr(ctx, ruleVersionKey(orgID)).Err(); err != nil {
		// TTL on the stale keys bounds how long matching sees old rules.
		c.logger.Warn("rule cache invalidation failed", "organization_id", orgID, "error", err)
	}
}
