package models

import (
	"time"

	"github.com/google/uuid"
)

// Visibility controls who may view an event or a ceremony.
type Visibility string

const (
	VisibilityPublic      Visibility = "PUBLIC"
	VisibilityConnected   Visibility = "CONNECTED"
	VisibilityInvitedOnly Visibility = "INVITED_ONLY"
)

// Valid reports whether v is one of the known visibility values.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityConnected, VisibilityInvitedOnly:
		return true
	}
	return false
}

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusLive      EventStatus = "LIVE"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// Valid reports whether s is one of the known event statuses.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusLive, EventStatusCompleted, EventStatusCancelled:
		return true
	}
	return false
}

// Event is a celebration owned by a single organizer and made of ceremonies.
type Event struct {
	ID          uuid.UUID   `json:"id"`
	OwnerID     uuid.UUID   `json:"owner_id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartsAt    *time.Time  `json:"starts_at,omitempty"`
	IsPublic    bool        `json:"is_public"`
	Visibility  Visibility  `json:"visibility"`
	Status      EventStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
