package models

import (
	"time"

	"github.com/google/uuid"
)

// InteractionKind is the type of a guest interaction on an event.
type InteractionKind string

const (
	InteractionComment  InteractionKind = "COMMENT"
	InteractionReaction InteractionKind = "REACTION"
)

// Valid reports whether k is a known interaction kind.
func (k InteractionKind) Valid() bool {
	return k == InteractionComment || k == InteractionReaction
}

// Interaction is a comment or reaction left on an event, optionally on one ceremony.
type Interaction struct {
	ID         uuid.UUID       `json:"id"`
	EventID    uuid.UUID       `json:"event_id"`
	CeremonyID *uuid.UUID      `json:"ceremony_id,omitempty"`
	UserID     uuid.UUID       `json:"user_id"`
	Kind       InteractionKind `json:"kind"`
	Body       string          `json:"body"`
	CreatedAt  time.Time       `json:"created_at"`
}
