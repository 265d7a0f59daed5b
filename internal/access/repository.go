package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository is the Postgres-backed Store.
type Repository struct {
	pool database.DB
}

// NewRepository creates an access store over pool.
func NewRepository(pool database.DB) *Repository {
	return &Repository{pool: pool}
}

// GetEvent returns the access-relevant columns of an event.
func (r *Repository) GetEvent(ctx context.Context, eventID uuid.UUID) (*EventRecord, error) {
	const q = `SELECT id, owner_id, is_public, visibility, status FROM events WHERE id = $1`
	var e EventRecord
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&e.ID, &e.OwnerID, &e.IsPublic, &e.Visibility, &e.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// GetCeremonyWithEvent returns a ceremony joined with its parent event.
func (r *Repository) GetCeremonyWithEvent(ctx context.Context, ceremonyID uuid.UUID) (*CeremonyRecord, error) {
	const q = `SELECT c.id, c.event_id, c.visibility, e.owner_id, e.visibility, e.is_public
		FROM ceremonies c
		JOIN events e ON e.id = c.event_id
		WHERE c.id = $1`
	var c CeremonyRecord
	err := r.pool.QueryRow(ctx, q, ceremonyID).Scan(&c.ID, &c.EventID, &c.Visibility,
		&c.Event.OwnerID, &c.Event.Visibility, &c.Event.IsPublic)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("get ceremony: %w", err)
	}
	return &c, nil
}

// FindInvitee returns the user's invitee for the event if its RSVP status is one of rsvpIn.
func (r *Repository) FindInvitee(ctx context.Context, eventID, userID uuid.UUID, rsvpIn []models.RSVPStatus) (*InviteeSummary, error) {
	if len(rsvpIn) == 0 {
		return nil, models.ErrNotFound
	}
	const q = `SELECT id, rsvp_status, role FROM invitees
		WHERE event_id = $1 AND user_id = $2 AND rsvp_status = ANY($3)
		ORDER BY created_at LIMIT 1`
	var s InviteeSummary
	err := r.pool.QueryRow(ctx, q, eventID, userID, textArray(rsvpIn)).Scan(&s.ID, &s.RSVPStatus, &s.Role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("find invitee: %w", err)
	}
	return &s, nil
}

// FindInvite reports whether the ceremony has an invite, in one of statusIn, for an invitee linked to the user.
func (r *Repository) FindInvite(ctx context.Context, ceremonyID, inviteeUserID uuid.UUID, statusIn []models.InviteStatus) (bool, error) {
	if len(statusIn) == 0 {
		return false, nil
	}
	const q = `SELECT EXISTS (
		SELECT 1 FROM invites i
		JOIN invitees v ON v.id = i.invitee_id
		WHERE i.ceremony_id = $1 AND v.user_id = $2 AND i.status = ANY($3))`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, ceremonyID, inviteeUserID, textArray(statusIn)).Scan(&exists); err != nil {
		return false, fmt.Errorf("find invite: %w", err)
	}
	return exists, nil
}

// FindInviteeByEvent returns the id of the user's invitee record for the event.
func (r *Repository) FindInviteeByEvent(ctx context.Context, eventID, userID uuid.UUID) (uuid.UUID, error) {
	const q = `SELECT id FROM invitees WHERE event_id = $1 AND user_id = $2 ORDER BY created_at LIMIT 1`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, q, eventID, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, models.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("find invitee by event: %w", err)
	}
	return id, nil
}

// FindInviteByCeremonyAndInvitee reports whether any invite row links the invitee to the ceremony.
func (r *Repository) FindInviteByCeremonyAndInvitee(ctx context.Context, ceremonyID, inviteeID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM invites WHERE ceremony_id = $1 AND invitee_id = $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, q, ceremonyID, inviteeID).Scan(&exists); err != nil {
		return false, fmt.Errorf("find invite by invitee: %w", err)
	}
	return exists, nil
}

// textArray converts a status set to the text[] bound to ANY($n).
func textArray[S ~string](in []S) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
