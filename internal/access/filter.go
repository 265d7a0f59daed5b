package access

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CeremonyFilter decides which ceremony-scoped items one actor may see. Items with no ceremony
// only need event access, which the caller has already checked.
// Gate decisions are reused until recheck has passed (forever when recheck is 0).
// A CeremonyFilter is not safe for concurrent use.
type CeremonyFilter struct {
	checker Checker
	actor   Actor
	recheck time.Duration
	grants  map[uuid.UUID]grant
	now     func() time.Time
}

type grant struct {
	ok bool
	at time.Time
}

// NewCeremonyFilter creates a filter for actor.
func NewCeremonyFilter(checker Checker, actor Actor, recheck time.Duration) *CeremonyFilter {
	return &CeremonyFilter{
		checker: checker,
		actor:   actor,
		recheck: recheck,
		grants:  make(map[uuid.UUID]grant),
		now:     time.Now,
	}
}

// Allows reports whether an item tied to ceremonyID may be shown to the actor.
func (f *CeremonyFilter) Allows(ctx context.Context, ceremonyID *uuid.UUID) bool {
	if ceremonyID == nil {
		return true
	}
	now := f.now()
	if g, ok := f.grants[*ceremonyID]; ok && (f.recheck == 0 || now.Sub(g.at) < f.recheck) {
		return g.ok
	}
	ok := f.checker.CanAccessCeremony(ctx, f.actor, *ceremonyID)
	f.grants[*ceremonyID] = grant{ok: ok, at: now}
	return ok
}
