package accesscache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-events/backend/internal/access"
)

type fakeKV struct {
	mu     sync.Mutex
	vals   map[string]string
	sets   map[string]map[string]struct{}
	getErr error
}

func newFakeKV() *fakeKV {
	return &fakeKV{vals: map[string]string{}, sets: map[string]map[string]struct{}{}}
}

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.vals[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, _ := strconv.ParseInt(f.vals[key], 10, 64)
	n++
	f.vals[key] = strconv.FormatInt(n, 10)
	return redis.NewIntResult(n, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.vals[key] = string(v)
	case string:
		f.vals[key] = v
	}
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) SAdd(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets[key] == nil {
		f.sets[key] = map[string]struct{}{}
	}
	for _, m := range members {
		f.sets[key][m.(string)] = struct{}{}
	}
	return redis.NewIntResult(int64(len(members)), nil)
}

func (f *fakeKV) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (f *fakeKV) SMembers(_ context.Context, key string) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for m := range f.sets[key] {
		out = append(out, m)
	}
	return redis.NewStringSliceResult(out, nil)
}

func (f *fakeKV) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.vals, k)
		delete(f.sets, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

// countingChecker answers from a fixed table and counts calls.
type countingChecker struct {
	mu        sync.Mutex
	decisions map[uuid.UUID]access.EventAccess
	calls     int
	batched   [][]uuid.UUID
}

func (c *countingChecker) ResolveEventAccess(_ context.Context, _ access.Actor, id uuid.UUID) access.EventAccess {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.decisions[id]
}

func (c *countingChecker) CanAccessCeremony(context.Context, access.Actor, uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return true
}

func (c *countingChecker) ResolveEventsAccess(_ context.Context, _ access.Actor, ids []uuid.UUID) map[uuid.UUID]access.EventAccess {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batched = append(c.batched, ids)
	out := map[uuid.UUID]access.EventAccess{}
	for _, id := range ids {
		out[id] = c.decisions[id]
	}
	return out
}

func TestCache_HitAfterMiss(t *testing.T) {
	ctx := context.Background()
	eventID := uuid.New()
	guest := access.UserActor(uuid.New())
	want := access.EventAccess{CanView: true, CanInteract: true, Invitee: &access.InviteeSummary{ID: uuid.New(), RSVPStatus: "ACCEPTED", Role: "GUEST"}}
	next := &countingChecker{decisions: map[uuid.UUID]access.EventAccess{eventID: want}}
	c := New(next, newFakeKV(), time.Minute, nil)

	assert.Equal(t, want, c.ResolveEventAccess(ctx, guest, eventID))
	assert.Equal(t, want, c.ResolveEventAccess(ctx, guest, eventID))
	assert.Equal(t, 1, next.calls)

	// A different actor has its own entry.
	c.ResolveEventAccess(ctx, access.Anonymous(), eventID)
	assert.Equal(t, 2, next.calls)
}

func TestCache_DeniedIsNotStored(t *testing.T) {
	ctx := context.Background()
	next := &countingChecker{decisions: map[uuid.UUID]access.EventAccess{}}
	c := New(next, newFakeKV(), time.Minute, nil)
	id := uuid.New()

	c.ResolveEventAccess(ctx, access.Anonymous(), id)
	c.ResolveEventAccess(ctx, access.Anonymous(), id)
	assert.Equal(t, 2, next.calls)
}

func TestCache_Disabled(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	kv := newFakeKV()
	next := &countingChecker{decisions: map[uuid.UUID]access.EventAccess{id: {CanView: true}}}
	c := New(next, kv, 0, nil)

	c.ResolveEventAccess(ctx, access.Anonymous(), id)
	c.ResolveEventAccess(ctx, access.Anonymous(), id)
	assert.Equal(t, 2, next.calls)
	assert.Empty(t, kv.vals)
}

func TestCache_RedisErrorFallsThrough(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	kv := newFakeKV()
	kv.getErr = errors.New("connection reset")
	next := &countingChecker{decisions: map[uuid.UUID]access.EventAccess{id: {CanView: true}}}
	c := New(next, kv, time.Minute, nil)

	assert.Equal(t, access.EventAccess{CanView: true}, c.ResolveEventAccess(ctx, access.Anonymous(), id))
	assert.Equal(t, 1, next.calls)
}

func TestCache_Invalidate(t *testing.T) {
	ctx := context.Background()
	id, other := uuid.New(), uuid.New()
	kv := newFakeKV()
	next := &countingChecker{decisions: map[uuid.UUID]access.EventAccess{id: {CanView: true}, other: {CanView: true}}}
	c := New(next, kv, time.Minute, nil)
	guest := access.UserActor(uuid.New())

	c.ResolveEventAccess(ctx, access.Anonymous(), id)
	c.ResolveEventAccess(ctx, guest, id)
	c.ResolveEventAccess(ctx, guest, other)
	require.Equal(t, 3, next.calls)

	c.Invalidate(ctx, id)

	c.ResolveEventAccess(ctx, access.Anonymous(), id)
	c.ResolveEventAccess(ctx, guest, id)
	c.ResolveEventAccess(ctx, guest, other)
	assert.Equal(t, 5, next.calls, "only the invalidated event is recomputed")
}

// revokingChecker invalidates the cache while a resolve is in flight, the way an RSVP
// change landing between the database read and the cache write would.
type revokingChecker struct {
	countingChecker
	before func()
}

func (r *revokingChecker) ResolveEventAccess(ctx context.Context, actor access.Actor, id uuid.UUID) access.EventAccess {
	decision := r.countingChecker.ResolveEventAccess(ctx, actor, id)
	if r.before != nil {
		r.before()
		r.before = nil
	}
	return decision
}

func TestCache_InvalidateDuringResolve(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	guest := access.UserActor(uuid.New())
	next := &revokingChecker{countingChecker: countingChecker{decisions: map[uuid.UUID]access.EventAccess{id: {CanView: true, CanInteract: true}}}}
	c := New(next, newFakeKV(), time.Minute, nil)
	next.before = func() {
		next.decisions[id] = access.Denied()
		c.Invalidate(ctx, id)
	}

	assert.True(t, c.ResolveEventAccess(ctx, guest, id).CanInteract, "the in-flight answer is returned once")
	assert.Equal(t, access.Denied(), c.ResolveEventAccess(ctx, guest, id), "but never served from the cache")
	assert.Equal(t, 2, next.calls)
}

func TestCache_ResolveEventsAccess(t *testing.T) {
	ctx := context.Background()
	a, b, missing := uuid.New(), uuid.New(), uuid.New()
	next := &countingChecker{decisions: map[uuid.UUID]access.EventAccess{a: {CanView: true}, b: {CanView: true, CanInteract: true}}}
	c := New(next, newFakeKV(), time.Minute, nil)
	actor := access.UserActor(uuid.New())

	c.ResolveEventAccess(ctx, actor, a)

	got := c.ResolveEventsAccess(ctx, actor, []uuid.UUID{a, b, b, missing})
	require.Len(t, got, 3)
	assert.Equal(t, access.EventAccess{CanView: true}, got[a])
	assert.Equal(t, access.EventAccess{CanView: true, CanInteract: true}, got[b])
	assert.Equal(t, access.Denied(), got[missing])

	require.Len(t, next.batched, 1)
	assert.ElementsMatch(t, []uuid.UUID{b, missing}, next.batched[0])
}

func TestCache_CeremonyPassesThrough(t *testing.T) {
	next := &countingChecker{}
	c := New(next, newFakeKV(), time.Minute, nil)
	assert.True(t, c.CanAccessCeremony(context.Background(), access.Anonymous(), uuid.New()))
	assert.Equal(t, 1, next.calls)
}
