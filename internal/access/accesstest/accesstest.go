// Package accesstest provides a table-driven access.Checker for handler tests.
package accesstest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/access"
)

// Checker answers from fixed tables. Unset entries are denied.
type Checker struct {
	mu          sync.Mutex
	events      map[string]access.EventAccess
	ceremonies  map[string]bool
	Invalidated []uuid.UUID
}

// New returns an empty Checker.
func New() *Checker {
	return &Checker{events: map[string]access.EventAccess{}, ceremonies: map[string]bool{}}
}

func key(actor access.Actor, id uuid.UUID) string { return actor.String() + "/" + id.String() }

// SetEvent records the decision for (actor, event).
func (c *Checker) SetEvent(actor access.Actor, eventID uuid.UUID, decision access.EventAccess) *Checker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events[key(actor, eventID)] = decision
	return c
}

// AllowCeremony lets actor through the gate for ceremonyID.
func (c *Checker) AllowCeremony(actor access.Actor, ceremonyID uuid.UUID) *Checker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ceremonies[key(actor, ceremonyID)] = true
	return c
}

func (c *Checker) ResolveEventAccess(_ context.Context, actor access.Actor, eventID uuid.UUID) access.EventAccess {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.events[key(actor, eventID)]
}

func (c *Checker) CanAccessCeremony(_ context.Context, actor access.Actor, ceremonyID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ceremonies[key(actor, ceremonyID)]
}

func (c *Checker) ResolveEventsAccess(ctx context.Context, actor access.Actor, eventIDs []uuid.UUID) map[uuid.UUID]access.EventAccess {
	out := make(map[uuid.UUID]access.EventAccess, len(eventIDs))
	for _, id := range eventIDs {
		out[id] = c.ResolveEventAccess(ctx, actor, id)
	}
	return out
}

// Invalidate records the event id.
func (c *Checker) Invalidate(_ context.Context, eventID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Invalidated = append(c.Invalidated, eventID)
}

// Organizer is the decision an event owner gets.
func Organizer() access.EventAccess {
	return access.EventAccess{CanView: true, CanInteract: true, IsOrganizer: true}
}

// Guest is the decision for an invitee who may interact.
func Guest() access.EventAccess {
	return access.EventAccess{CanView: true, CanInteract: true}
}

// Viewer is the decision for a view-only actor.
func Viewer() access.EventAccess {
	return access.EventAccess{CanView: true}
}
