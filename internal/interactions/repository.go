package interactions

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

// Repository handles interaction persistence.
type Repository struct {
	pool database.DB
}

// NewRepository creates an interaction repository.
func NewRepository(pool database.DB) *Repository {
	return &Repository{pool: pool}
}

// Create inserts an interaction. A ceremony, when given, must belong to the interaction's event;
// otherwise ErrNotFound is returned.
func (r *Repository) Create(ctx context.Context, i *models.Interaction) error {
	const q = `INSERT INTO interactions (event_id, ceremony_id, user_id, kind, body)
		SELECT $1, $2::uuid, $3, $4, $5
		WHERE $2::uuid IS NULL OR EXISTS (SELECT 1 FROM ceremonies WHERE id = $2::uuid AND event_id = $1)
		RETURNING id, created_at`
	err := r.pool.QueryRow(ctx, q, i.EventID, i.CeremonyID, i.UserID, i.Kind, i.Body).Scan(&i.ID, &i.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("create interaction: %w", err)
	}
	return nil
}

// ListByEvent returns up to limit interactions on an event, newest first, older than before when set.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID, before *time.Time, limit int) ([]models.Interaction, error) {
	const q = `SELECT id, event_id, ceremony_id, user_id, kind, body, created_at FROM interactions
		WHERE event_id = $1 AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC LIMIT $3`
	rows, err := r.pool.Query(ctx, q, eventID, before, limit)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()
	list := []models.Interaction{}
	for rows.Next() {
		var i models.Interaction
		if err := rows.Scan(&i.ID, &i.EventID, &i.CeremonyID, &i.UserID, &i.Kind, &i.Body, &i.CreatedAt); err != nil {
			return nil, fmt.Errorf("list interactions: %w", err)
		}
		list = append(list, i)
	}
	return list, rows.Err()
}
