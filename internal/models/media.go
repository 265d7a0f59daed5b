package models

import (
	"time"

	"github.com/google/uuid"
)

// Media is a photo or video uploaded by a guest or the organizer.
type Media struct {
	ID          uuid.UUID  `json:"id"`
	EventID     uuid.UUID  `json:"event_id"`
	CeremonyID  *uuid.UUID `json:"ceremony_id,omitempty"`
	UploadedBy  uuid.UUID  `json:"uploaded_by"`
	S3Key       string     `json:"s3_key"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	CreatedAt   time.Time  `json:"created_at"`
}
