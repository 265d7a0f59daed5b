// Package access decides whether an actor may view or interact with an event or one of its ceremonies.
//
// Every decision is derived fresh from the Store. Lookup failures never reach the caller: they
// degrade to the denied decision, and a missing event looks exactly like a forbidden one.
package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
)

// Actor identifies who is asking. The zero value is an anonymous visitor.
type Actor struct {
	userID uuid.UUID
}

// Anonymous returns the actor for a visitor without a session.
func Anonymous() Actor { return Actor{} }

// UserActor returns the actor for an authenticated user. uuid.Nil yields an anonymous actor.
func UserActor(id uuid.UUID) Actor { return Actor{userID: id} }

// UserID returns the user id and whether the actor is authenticated.
func (a Actor) UserID() (uuid.UUID, bool) {
	return a.userID, a.userID != uuid.Nil
}

// IsAnonymous reports whether the actor has no user id.
func (a Actor) IsAnonymous() bool { return a.userID == uuid.Nil }

// String returns the user id, or "anonymous".
func (a Actor) String() string {
	if a.IsAnonymous() {
		return "anonymous"
	}
	return a.userID.String()
}

// InviteeSummary is the actor's guest record for an event, when one qualifies.
type InviteeSummary struct {
	ID         uuid.UUID          `json:"id"`
	RSVPStatus models.RSVPStatus  `json:"rsvp_status"`
	Role       models.InviteeRole `json:"role"`
}

// EventAccess is the decision for an (actor, event) pair.
type EventAccess struct {
	CanView     bool            `json:"can_view"`
	CanInteract bool            `json:"can_interact"`
	IsOrganizer bool            `json:"is_organizer"`
	Invitee     *InviteeSummary `json:"invitee"`
}

// Denied is the decision returned for missing events, forbidden events and lookup failures alike.
func Denied() EventAccess { return EventAccess{} }

// Checker is the decision surface consumed by handlers, middleware and the live feed.
type Checker interface {
	ResolveEventAccess(ctx context.Context, actor Actor, eventID uuid.UUID) EventAccess
	CanAccessCeremony(ctx context.Context, actor Actor, ceremonyID uuid.UUID) bool
	ResolveEventsAccess(ctx context.Context, actor Actor, eventIDs []uuid.UUID) map[uuid.UUID]EventAccess
}

// Invalidator drops any cached decisions for an event after a write that may change them.
type Invalidator interface {
	Invalidate(ctx context.Context, eventID uuid.UUID)
}
