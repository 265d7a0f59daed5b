// Package media handles guest photo and video uploads to S3 and presigned downloads.
package media

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
	"github.com/aura-events/backend/pkg/storage"
)

// ObjectStore is the object storage the handler writes media to.
type ObjectStore interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	PresignedDownloadURL(ctx context.Context, key string) (string, time.Duration, error)
	Delete(ctx context.Context, key string) error
}

// URLResponse is returned by GET /media/:id/url.
type URLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

// Handler handles media HTTP endpoints.
type Handler struct {
	repo    *Repository
	store   ObjectStore
	checker access.Checker
	logger  *zap.Logger
}

// NewHandler creates a media handler.
func NewHandler(repo *Repository, store ObjectStore, checker access.Checker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, store: store, checker: checker, logger: logger}
}

// Upload handles POST /events/:id/media (multipart "file", optional "ceremony_id"). Runs behind RequireEventInteract.
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxMediaFileSize+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	if fh.Size > storage.MaxMediaFileSize {
		response.BadRequest(c, "file exceeds 50MB")
		return
	}
	contentType, ok := storage.NormalizeMediaType(fh.Header.Get("Content-Type"), fh.Filename)
	if !ok {
		response.BadRequest(c, "unsupported media type")
		return
	}

	ctx := c.Request.Context()
	eventID := uuid.MustParse(c.Param("id"))
	var ceremonyID *uuid.UUID
	if raw := c.PostForm("ceremony_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.BadRequest(c, "invalid ceremony_id")
			return
		}
		if !h.checker.CanAccessCeremony(ctx, middleware.ActorFrom(c), id) {
			response.NotFound(c, "ceremony not found")
			return
		}
		inEvent, err := h.repo.CeremonyInEvent(ctx, id, eventID)
		if err != nil {
			h.logger.Error("check media ceremony", zap.Error(err), zap.String("ceremony_id", id.String()))
			response.Internal(c, "failed to save media")
			return
		}
		if !inEvent {
			response.NotFound(c, "ceremony not found")
			return
		}
		ceremonyID = &id
	}

	f, err := fh.Open()
	if err != nil {
		response.BadRequest(c, "unreadable file")
		return
	}
	defer f.Close()

	m := &models.Media{
		ID:          uuid.New(),
		EventID:     eventID,
		CeremonyID:  ceremonyID,
		UploadedBy:  middleware.UserIDFrom(c),
		ContentType: contentType,
		SizeBytes:   fh.Size,
	}
	m.S3Key = storage.MediaKey(eventID.String(), m.ID.String(), contentType)
	if err := h.store.Upload(ctx, m.S3Key, contentType, f, fh.Size); err != nil {
		h.logger.Error("upload media", zap.Error(err), zap.String("event_id", eventID.String()))
		response.ServiceUnavailable(c, "upload failed")
		return
	}
	if err := h.repo.Create(ctx, m); err != nil {
		if delErr := h.store.Delete(ctx, m.S3Key); delErr != nil {
			h.logger.Warn("remove orphaned media object", zap.Error(delErr), zap.String("key", m.S3Key))
		}
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "ceremony not found")
			return
		}
		h.logger.Error("save media", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to save media")
		return
	}
	h.logger.Info("media uploaded", zap.String("media_id", m.ID.String()), zap.String("event_id", eventID.String()), zap.Int64("size", m.SizeBytes))
	response.Created(c, m)
}

// List handles GET /events/:id/media. Runs behind RequireEventView.
// Media tied to a ceremony the actor cannot enter is left out.
func (h *Handler) List(c *gin.Context) {
	ctx := c.Request.Context()
	eventID := uuid.MustParse(c.Param("id"))
	list, err := h.repo.ListByEvent(ctx, eventID)
	if err != nil {
		h.logger.Error("list media", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to list media")
		return
	}
	filter := access.NewCeremonyFilter(h.checker, middleware.ActorFrom(c), 0)
	visible := list[:0]
	for _, m := range list {
		if filter.Allows(ctx, m.CeremonyID) {
			visible = append(visible, m)
		}
	}
	response.OK(c, visible)
}

// loadViewable returns the :id media if the actor can view its event and, for ceremony media,
// pass the ceremony gate. It answers 404 otherwise.
func (h *Handler) loadViewable(c *gin.Context) (*models.Media, access.EventAccess, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid media id")
		return nil, access.Denied(), false
	}
	ctx := c.Request.Context()
	m, err := h.repo.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		response.NotFound(c, "media not found")
		return nil, access.Denied(), false
	}
	if err != nil {
		h.logger.Error("get media", zap.Error(err), zap.String("media_id", id.String()))
		response.Internal(c, "failed to load media")
		return nil, access.Denied(), false
	}
	actor := middleware.ActorFrom(c)
	decision := h.checker.ResolveEventAccess(ctx, actor, m.EventID)
	if !decision.CanView || (m.CeremonyID != nil && !h.checker.CanAccessCeremony(ctx, actor, *m.CeremonyID)) {
		response.NotFound(c, "media not found")
		return nil, access.Denied(), false
	}
	return m, decision, true
}

// URL handles GET /media/:id/url with a short-lived presigned download link.
func (h *Handler) URL(c *gin.Context) {
	m, _, ok := h.loadViewable(c)
	if !ok {
		return
	}
	url, expires, err := h.store.PresignedDownloadURL(c.Request.Context(), m.S3Key)
	if err != nil {
		h.logger.Error("presign media", zap.Error(err), zap.String("media_id", m.ID.String()))
		response.ServiceUnavailable(c, "could not sign download url")
		return
	}
	response.OK(c, URLResponse{URL: url, ExpiresIn: int(expires.Seconds())})
}

// Delete handles DELETE /media/:id. The uploader and the event organizer may delete.
func (h *Handler) Delete(c *gin.Context) {
	m, decision, ok := h.loadViewable(c)
	if !ok {
		return
	}
	if !decision.IsOrganizer && m.UploadedBy != middleware.UserIDFrom(c) {
		response.Forbidden(c, "only the uploader or organizer can delete media")
		return
	}
	ctx := c.Request.Context()
	if err := h.repo.Delete(ctx, m.ID); err != nil && !errors.Is(err, models.ErrNotFound) {
		h.logger.Error("delete media", zap.Error(err), zap.String("media_id", m.ID.String()))
		response.Internal(c, "failed to delete media")
		return
	}
	if err := h.store.Delete(ctx, m.S3Key); err != nil {
		h.logger.Warn("delete media object", zap.Error(err), zap.String("key", m.S3Key))
	}
	response.NoContent(c)
}
