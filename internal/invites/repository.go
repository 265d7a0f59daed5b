package invites

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles invite persistence.
type Repository struct {
	pool database.DB
}

// NewRepository creates an invite repository.
func NewRepository(pool database.DB) *Repository {
	return &Repository{pool: pool}
}

const inviteColumns = `id, ceremony_id, invitee_id, channel, status, sent_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanInvite(s scanner) (*models.Invite, error) {
	var i models.Invite
	if err := s.Scan(&i.ID, &i.CeremonyID, &i.InviteeID, &i.Channel, &i.Status, &i.SentAt, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	return &i, nil
}

// Create inserts a PENDING invite for an invitee of the ceremony's event.
// ErrNotFound means the invitee does not belong to that event.
func (r *Repository) Create(ctx context.Context, eventID uuid.UUID, i *models.Invite) error {
	const q = `INSERT INTO invites (ceremony_id, invitee_id, channel, status)
		SELECT $1, v.id, $3, $4 FROM invitees v WHERE v.id = $2 AND v.event_id = $5
		RETURNING ` + inviteColumns
	created, err := scanInvite(r.pool.QueryRow(ctx, q, i.CeremonyID, i.InviteeID, i.Channel, models.InviteStatusPending, eventID))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return models.ErrNotFound
	case database.IsUniqueViolation(err):
		return models.ErrAlreadyExists
	case err != nil:
		return fmt.Errorf("create invite: %w", err)
	}
	*i = *created
	return nil
}

// GetByID returns an invite by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invite, error) {
	i, err := scanInvite(r.pool.QueryRow(ctx, `SELECT `+inviteColumns+` FROM invites WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invite: %w", err)
	}
	return i, nil
}

// ListByCeremony returns a ceremony's invites.
func (r *Repository) ListByCeremony(ctx context.Context, ceremonyID uuid.UUID) ([]models.Invite, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+inviteColumns+` FROM invites WHERE ceremony_id = $1 ORDER BY created_at`, ceremonyID)
	if err != nil {
		return nil, fmt.Errorf("list invites: %w", err)
	}
	defer rows.Close()
	list := []models.Invite{}
	for rows.Next() {
		i, err := scanInvite(rows)
		if err != nil {
			return nil, fmt.Errorf("list invites: %w", err)
		}
		list = append(list, *i)
	}
	return list, rows.Err()
}

// Delivery is everything the worker needs to send one invite.
type Delivery struct {
	Invite           models.Invite
	InviteeName      string
	InviteeEmail     string
	CeremonyTitle    string
	CeremonyStartsAt *time.Time
	EventTitle       string
}

// GetDelivery loads an invite with its invitee, ceremony and event.
func (r *Repository) GetDelivery(ctx context.Context, id uuid.UUID) (*Delivery, error) {
	const q = `SELECT i.id, i.ceremony_id, i.invitee_id, i.channel, i.status, i.sent_at, i.created_at, i.updated_at,
			v.name, v.email, c.title, c.starts_at, e.title
		FROM invites i
		JOIN invitees v ON v.id = i.invitee_id
		JOIN ceremonies c ON c.id = i.ceremony_id
		JOIN events e ON e.id = c.event_id
		WHERE i.id = $1`
	var d Delivery
	i := &d.Invite
	err := r.pool.QueryRow(ctx, q, id).Scan(&i.ID, &i.CeremonyID, &i.InviteeID, &i.Channel, &i.Status, &i.SentAt,
		&i.CreatedAt, &i.UpdatedAt, &d.InviteeName, &d.InviteeEmail, &d.CeremonyTitle, &d.CeremonyStartsAt, &d.EventTitle)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get invite delivery: %w", err)
	}
	return &d, nil
}

// Transition moves an invite to next if the lifecycle allows it. It returns ErrStatusRegress
// for moves backwards or out of FAILED/BOUNCED.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, next models.InviteStatus) (*models.Invite, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("transition invite: %w", err)
	}
	defer tx.Rollback(ctx)

	var current models.InviteStatus
	err = tx.QueryRow(ctx, `SELECT status FROM invites WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("transition invite: %w", err)
	}
	if !current.CanTransition(next) {
		return nil, fmt.Errorf("%w: %s -> %s", models.ErrStatusRegress, current, next)
	}

	const q = `UPDATE invites SET status = $2,
			sent_at = CASE WHEN $2 = 'SENT' THEN NOW() ELSE sent_at END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + inviteColumns
	updated, err := scanInvite(tx.QueryRow(ctx, q, id, next))
	if err != nil {
		return nil, fmt.Errorf("transition invite: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("transition invite: %w", err)
	}
	return updated, nil
}
