package invitees

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles invitee persistence.
type Repository struct {
	pool database.DB
}

// NewRepository creates an invitee repository.
func NewRepository(pool database.DB) *Repository {
	return &Repository{pool: pool}
}

const inviteeColumns = `id, event_id, user_id, name, email, phone, role, rsvp_status, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanInvitee(s scanner) (*models.Invitee, error) {
	var v models.Invitee
	if err := s.Scan(&v.ID, &v.EventID, &v.UserID, &v.Name, &v.Email, &v.Phone, &v.Role, &v.RSVPStatus,
		&v.CreatedAt, &v.UpdatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

func getOne(row pgx.Row, what string) (*models.Invitee, error) {
	v, err := scanInvitee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return v, nil
}

// Create inserts an invitee. When the email already belongs to a user the row is linked to
// them immediately; otherwise linking happens at the user's next sign-in.
func (r *Repository) Create(ctx context.Context, v *models.Invitee) error {
	const q = `INSERT INTO invitees (event_id, user_id, name, email, phone, role, rsvp_status)
		VALUES ($1, (SELECT id FROM users WHERE $3 <> '' AND lower(email) = $3), $2, $3, $4, $5, $6)
		RETURNING id, user_id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, v.EventID, v.Name, v.Email, v.Phone, v.Role, v.RSVPStatus).
		Scan(&v.ID, &v.UserID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create invitee: %w", err)
	}
	return nil
}

// GetByID returns an invitee by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Invitee, error) {
	return getOne(r.pool.QueryRow(ctx, `SELECT `+inviteeColumns+` FROM invitees WHERE id = $1`, id), "get invitee")
}

// GetByEventAndUser returns the user's invitee record for an event regardless of RSVP.
func (r *Repository) GetByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*models.Invitee, error) {
	const q = `SELECT ` + inviteeColumns + ` FROM invitees WHERE event_id = $1 AND user_id = $2
		ORDER BY created_at LIMIT 1`
	return getOne(r.pool.QueryRow(ctx, q, eventID, userID), "get invitee by user")
}

// ListByEvent returns an event's guest list.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Invitee, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+inviteeColumns+` FROM invitees WHERE event_id = $1 ORDER BY name, created_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list invitees: %w", err)
	}
	defer rows.Close()
	list := []models.Invitee{}
	for rows.Next() {
		v, err := scanInvitee(rows)
		if err != nil {
			return nil, fmt.Errorf("list invitees: %w", err)
		}
		list = append(list, *v)
	}
	return list, rows.Err()
}

// UpdateRSVP sets the RSVP status.
func (r *Repository) UpdateRSVP(ctx context.Context, id uuid.UUID, status models.RSVPStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invitees SET rsvp_status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update rsvp: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Delete removes an invitee and its invites.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM invitees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete invitee: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
