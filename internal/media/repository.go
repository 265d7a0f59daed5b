package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/database"
)

// Repository handles media metadata persistence.
type Repository struct {
	pool database.DB
}

// NewRepository creates a media repository.
func NewRepository(pool database.DB) *Repository {
	return &Repository{pool: pool}
}

const mediaColumns = `id, event_id, ceremony_id, uploaded_by, s3_key, content_type, size_bytes, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMedia(s scanner) (*models.Media, error) {
	var m models.Media
	if err := s.Scan(&m.ID, &m.EventID, &m.CeremonyID, &m.UploadedBy, &m.S3Key, &m.ContentType, &m.SizeBytes, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts media metadata with a caller-chosen ID. A ceremony, when given, must belong to
// the media's event; otherwise ErrNotFound is returned.
func (r *Repository) Create(ctx context.Context, m *models.Media) error {
	const q = `INSERT INTO media (id, event_id, ceremony_id, uploaded_by, s3_key, content_type, size_bytes)
		SELECT $1, $2, $3::uuid, $4, $5, $6, $7
		WHERE $3::uuid IS NULL OR EXISTS (SELECT 1 FROM ceremonies WHERE id = $3::uuid AND event_id = $2)
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, q, m.ID, m.EventID, m.CeremonyID, m.UploadedBy, m.S3Key, m.ContentType, m.SizeBytes).Scan(&m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("create media: %w", err)
	}
	return nil
}

// CeremonyInEvent reports whether the ceremony belongs to the event.
func (r *Repository) CeremonyInEvent(ctx context.Context, ceremonyID, eventID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM ceremonies WHERE id = $1 AND event_id = $2)`
	var ok bool
	if err := r.pool.QueryRow(ctx, q, ceremonyID, eventID).Scan(&ok); err != nil {
		return false, fmt.Errorf("check ceremony: %w", err)
	}
	return ok, nil
}

// GetByID returns media metadata by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Media, error) {
	m, err := scanMedia(r.pool.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return m, nil
}

// ListByEvent returns an event's media, newest first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Media, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+mediaColumns+` FROM media WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()
	list := []models.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("list media: %w", err)
		}
		list = append(list, *m)
	}
	return list, rows.Err()
}

// Delete removes media metadata.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete media: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
