package ceremonies

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles ceremony persistence.
type Repository struct {
	pool database.DB
}

// NewRepository creates a ceremony repository.
func NewRepository(pool database.DB) *Repository {
	return &Repository{pool: pool}
}

const ceremonyColumns = `id, event_id, title, starts_at, visibility, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanCeremony(s scanner) (*models.Ceremony, error) {
	var c models.Ceremony
	if err := s.Scan(&c.ID, &c.EventID, &c.Title, &c.StartsAt, &c.Visibility, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a ceremony.
func (r *Repository) Create(ctx context.Context, c *models.Ceremony) error {
	const q = `INSERT INTO ceremonies (event_id, title, starts_at, visibility)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	if err := r.pool.QueryRow(ctx, q, c.EventID, c.Title, c.StartsAt, c.Visibility).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return fmt.Errorf("create ceremony: %w", err)
	}
	return nil
}

// GetByID returns a ceremony by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Ceremony, error) {
	c, err := scanCeremony(r.pool.QueryRow(ctx, `SELECT `+ceremonyColumns+` FROM ceremonies WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ceremony: %w", err)
	}
	return c, nil
}

// ListByEvent returns an event's ceremonies in schedule order.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Ceremony, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+ceremonyColumns+` FROM ceremonies WHERE event_id = $1
		ORDER BY starts_at NULLS LAST, created_at`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list ceremonies: %w", err)
	}
	defer rows.Close()
	var list []models.Ceremony
	for rows.Next() {
		c, err := scanCeremony(rows)
		if err != nil {
			return nil, fmt.Errorf("list ceremonies: %w", err)
		}
		list = append(list, *c)
	}
	return list, rows.Err()
}

// Update writes title, starts_at and visibility.
func (r *Repository) Update(ctx context.Context, c *models.Ceremony) error {
	const q = `UPDATE ceremonies SET title = $2, starts_at = $3, visibility = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.pool.QueryRow(ctx, q, c.ID, c.Title, c.StartsAt, c.Visibility).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("update ceremony: %w", err)
	}
	return nil
}
