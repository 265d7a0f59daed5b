// Package accesscache memoizes event access decisions in Redis in front of an access.Checker.
package accesscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/access"
)

// KV is the subset of the go-redis client used by the cache.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
	SMembers(ctx context.Context, key string) *redis.StringSliceCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Cache serves ResolveEventAccess from Redis when it can and from next otherwise.
// Only viewable decisions are stored so a transient store failure is never pinned as a denial.
// Ceremony checks always go to next.
//
// Decision keys carry the event's generation, which Invalidate bumps. A resolve that read the
// generation before an Invalidate stores under the old generation, where no later lookup reads.
type Cache struct {
	next   access.Checker
	kv     KV
	ttl    time.Duration
	logger *zap.Logger
}

var (
	_ access.Checker     = (*Cache)(nil)
	_ access.Invalidator = (*Cache)(nil)
)

// New wraps next. A ttl <= 0 disables caching entirely.
func New(next access.Checker, kv KV, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{next: next, kv: kv, ttl: ttl, logger: logger}
}

func (c *Cache) enabled() bool { return c.ttl > 0 && c.kv != nil }

func decisionKey(eventID uuid.UUID, gen string, actor access.Actor) string {
	who := "anon"
	if id, ok := actor.UserID(); ok {
		who = id.String()
	}
	return fmt.Sprintf("access:event:%s:g%s:%s", eventID, gen, who)
}

func indexKey(eventID uuid.UUID) string {
	return fmt.Sprintf("access:event:%s:keys", eventID)
}

func generationKey(eventID uuid.UUID) string {
	return fmt.Sprintf("access:event:%s:gen", eventID)
}

// generation returns the event's current generation. ok is false when Redis cannot answer.
func (c *Cache) generation(ctx context.Context, eventID uuid.UUID) (string, bool) {
	gen, err := c.kv.Get(ctx, generationKey(eventID)).Result()
	if errors.Is(err, redis.Nil) {
		return "0", true
	}
	if err != nil {
		c.logger.Warn("access cache: generation", zap.Error(err), zap.String("event_id", eventID.String()))
		return "", false
	}
	return gen, true
}

// ResolveEventAccess implements access.Checker.
func (c *Cache) ResolveEventAccess(ctx context.Context, actor access.Actor, eventID uuid.UUID) access.EventAccess {
	if !c.enabled() {
		return c.next.ResolveEventAccess(ctx, actor, eventID)
	}
	gen, ok := c.generation(ctx, eventID)
	if !ok {
		return c.next.ResolveEventAccess(ctx, actor, eventID)
	}
	if decision, ok := c.lookup(ctx, actor, eventID, gen); ok {
		return decision
	}
	decision := c.next.ResolveEventAccess(ctx, actor, eventID)
	c.store(ctx, actor, eventID, gen, decision)
	return decision
}

// CanAccessCeremony implements access.Checker without caching.
func (c *Cache) CanAccessCeremony(ctx context.Context, actor access.Actor, ceremonyID uuid.UUID) bool {
	return c.next.CanAccessCeremony(ctx, actor, ceremonyID)
}

// ResolveEventsAccess answers cached ids from Redis and resolves the rest through next in one batch.
func (c *Cache) ResolveEventsAccess(ctx context.Context, actor access.Actor, eventIDs []uuid.UUID) map[uuid.UUID]access.EventAccess {
	if !c.enabled() {
		return c.next.ResolveEventsAccess(ctx, actor, eventIDs)
	}
	out := make(map[uuid.UUID]access.EventAccess, len(eventIDs))
	gens := make(map[uuid.UUID]string, len(eventIDs))
	var misses []uuid.UUID
	for _, id := range eventIDs {
		if _, done := out[id]; done {
			continue
		}
		out[id] = access.Denied()
		gen, ok := c.generation(ctx, id)
		if ok {
			if decision, hit := c.lookup(ctx, actor, id, gen); hit {
				out[id] = decision
				continue
			}
			gens[id] = gen
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return out
	}
	for id, decision := range c.next.ResolveEventsAccess(ctx, actor, misses) {
		out[id] = decision
		if gen, ok := gens[id]; ok {
			c.store(ctx, actor, id, gen, decision)
		}
	}
	return out
}

// Invalidate moves the event to a new generation, then drops the decisions cached so far.
func (c *Cache) Invalidate(ctx context.Context, eventID uuid.UUID) {
	if !c.enabled() {
		return
	}
	if err := c.kv.Incr(ctx, generationKey(eventID)).Err(); err != nil {
		c.logger.Warn("access cache: bump generation", zap.Error(err), zap.String("event_id", eventID.String()))
	}
	idx := indexKey(eventID)
	keys, err := c.kv.SMembers(ctx, idx).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("access cache: list keys", zap.Error(err), zap.String("event_id", eventID.String()))
		return
	}
	if err := c.kv.Del(ctx, append(keys, idx)...).Err(); err != nil {
		c.logger.Warn("access cache: invalidate", zap.Error(err), zap.String("event_id", eventID.String()))
	}
}

func (c *Cache) lookup(ctx context.Context, actor access.Actor, eventID uuid.UUID, gen string) (access.EventAccess, bool) {
	raw, err := c.kv.Get(ctx, decisionKey(eventID, gen, actor)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("access cache: get", zap.Error(err), zap.String("event_id", eventID.String()))
		}
		return access.EventAccess{}, false
	}
	var decision access.EventAccess
	if err := json.Unmarshal(raw, &decision); err != nil {
		c.logger.Warn("access cache: decode", zap.Error(err), zap.String("event_id", eventID.String()))
		return access.EventAccess{}, false
	}
	return decision, true
}

func (c *Cache) store(ctx context.Context, actor access.Actor, eventID uuid.UUID, gen string, decision access.EventAccess) {
	if !decision.CanView {
		return
	}
	raw, err := json.Marshal(decision)
	if err != nil {
		return
	}
	key := decisionKey(eventID, gen, actor)
	idx := indexKey(eventID)
	if err := c.kv.SAdd(ctx, idx, key).Err(); err != nil {
		c.logger.Warn("access cache: index", zap.Error(err), zap.String("event_id", eventID.String()))
		return
	}
	_ = c.kv.Expire(ctx, idx, c.ttl).Err()
	if err := c.kv.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("access cache: set", zap.Error(err), zap.String("event_id", eventID.String()))
	}
}
