package access

import (
	"context"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
)

// EventRecord is the slice of an event the resolver reads.
type EventRecord struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	IsPublic   bool
	Visibility models.Visibility
	Status     models.EventStatus
}

// ParentEvent is the slice of a ceremony's parent event the gate reads.
type ParentEvent struct {
	OwnerID    uuid.UUID
	Visibility models.Visibility
	IsPublic   bool
}

// CeremonyRecord is a ceremony joined with its parent event.
type CeremonyRecord struct {
	ID         uuid.UUID
	EventID    uuid.UUID
	Visibility models.Visibility
	Event      ParentEvent
}

// Store is the read-only lookup the resolver depends on.
// Lookups that match nothing return models.ErrNotFound; existence checks return false instead.
type Store interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*EventRecord, error)
	GetCeremonyWithEvent(ctx context.Context, ceremonyID uuid.UUID) (*CeremonyRecord, error)
	// FindInvitee returns the actor's invitee for the event whose RSVP status is in rsvpIn.
	FindInvitee(ctx context.Context, eventID, userID uuid.UUID, rsvpIn []models.RSVPStatus) (*InviteeSummary, error)
	// FindInvite reports whether an invite to the ceremony exists for an invitee linked to the user.
	FindInvite(ctx context.Context, ceremonyID, inviteeUserID uuid.UUID, statusIn []models.InviteStatus) (bool, error)
	// FindInviteeByEvent returns the id of the user's invitee record for the event, whatever its RSVP.
	FindInviteeByEvent(ctx context.Context, eventID, userID uuid.UUID) (uuid.UUID, error)
	FindInviteByCeremonyAndInvitee(ctx context.Context, ceremonyID, inviteeID uuid.UUID) (bool, error)
}
