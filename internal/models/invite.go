package models

import (
	"time"

	"github.com/google/uuid"
)

// InviteStatus tracks delivery and engagement of a per-ceremony invitation.
type InviteStatus string

const (
	InviteStatusPending   InviteStatus = "PENDING"
	InviteStatusSent      InviteStatus = "SENT"
	InviteStatusDelivered InviteStatus = "DELIVERED"
	InviteStatusOpened    InviteStatus = "OPENED"
	InviteStatusClicked   InviteStatus = "CLICKED"
	InviteStatusFailed    InviteStatus = "FAILED"
	InviteStatusBounced   InviteStatus = "BOUNCED"
)

// Valid reports whether s is one of the known invite statuses.
func (s InviteStatus) Valid() bool {
	switch s {
	case InviteStatusPending, InviteStatusSent, InviteStatusDelivered, InviteStatusOpened,
		InviteStatusClicked, InviteStatusFailed, InviteStatusBounced:
		return true
	}
	return false
}

// Terminal reports whether the invite can no longer reach its recipient.
func (s InviteStatus) Terminal() bool {
	return s == InviteStatusFailed || s == InviteStatusBounced
}

// rank orders the non-terminal statuses along the delivery funnel.
func (s InviteStatus) rank() int {
	switch s {
	case InviteStatusPending:
		return 0
	case InviteStatusSent:
		return 1
	case InviteStatusDelivered:
		return 2
	case InviteStatusOpened:
		return 3
	case InviteStatusClicked:
		return 4
	}
	return -1
}

// CanTransition reports whether an invite may move from s to next.
// Terminal statuses are final; otherwise the status only moves forward or fails.
func (s InviteStatus) CanTransition(next InviteStatus) bool {
	if !next.Valid() || s.Terminal() {
		return false
	}
	if next.Terminal() {
		return true
	}
	return next.rank() > s.rank()
}

// InviteChannel is the delivery channel of an invite.
type InviteChannel string

const InviteChannelEmail InviteChannel = "EMAIL"

// Invite links an invitee to a specific ceremony.
type Invite struct {
	ID         uuid.UUID     `json:"id"`
	CeremonyID uuid.UUID     `json:"ceremony_id"`
	InviteeID  uuid.UUID     `json:"invitee_id"`
	Channel    InviteChannel `json:"channel"`
	Status     InviteStatus  `json:"status"`
	SentAt     *time.Time    `json:"sent_at,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
