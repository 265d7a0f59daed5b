package models

import (
	"time"

	"github.com/google/uuid"
)

// RSVPStatus is a guest's answer to an event invitation.
type RSVPStatus string

const (
	RSVPPending  RSVPStatus = "PENDING"
	RSVPAccepted RSVPStatus = "ACCEPTED"
	RSVPDeclined RSVPStatus = "DECLINED"
	RSVPMaybe    RSVPStatus = "MAYBE"
)

// Valid reports whether s is one of the known RSVP statuses.
func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPPending, RSVPAccepted, RSVPDeclined, RSVPMaybe:
		return true
	}
	return false
}

// InviteeRole describes the guest's relation to the event.
type InviteeRole string

const (
	InviteeRoleGuest       InviteeRole = "GUEST"
	InviteeRoleFamily      InviteeRole = "FAMILY"
	InviteeRoleBridalParty InviteeRole = "BRIDAL_PARTY"
	InviteeRoleVendor      InviteeRole = "VENDOR"
	InviteeRoleHost        InviteeRole = "HOST"
)

// Valid reports whether r is one of the known invitee roles.
func (r InviteeRole) Valid() bool {
	switch r {
	case InviteeRoleGuest, InviteeRoleFamily, InviteeRoleBridalParty, InviteeRoleVendor, InviteeRoleHost:
		return true
	}
	return false
}

// Invitee is a guest on an event's list. UserID is set once the guest signs in and is matched by email.
type Invitee struct {
	ID         uuid.UUID   `json:"id"`
	EventID    uuid.UUID   `json:"event_id"`
	UserID     *uuid.UUID  `json:"user_id,omitempty"`
	Name       string      `json:"name"`
	Email      string      `json:"email"`
	Phone      string      `json:"phone,omitempty"`
	Role       InviteeRole `json:"role"`
	RSVPStatus RSVPStatus  `json:"rsvp_status"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}
