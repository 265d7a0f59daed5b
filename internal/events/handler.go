package events

import (
	"errors"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// MaxTimelineIDs bounds GET /events?ids=.
const MaxTimelineIDs = 100

func parseTime(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateRequest is the body for POST /events.
type CreateRequest struct {
	Title       string            `json:"title" binding:"required"`
	Description string            `json:"description"`
	StartsAt    *string           `json:"starts_at"`
	IsPublic    bool              `json:"is_public"`
	Visibility  models.Visibility `json:"visibility"`
}

// UpdateRequest is the body for PATCH /events/:id. Omitted fields are unchanged.
type UpdateRequest struct {
	Title       *string             `json:"title"`
	Description *string             `json:"description"`
	StartsAt    *string             `json:"starts_at"`
	IsPublic    *bool               `json:"is_public"`
	Visibility  *models.Visibility  `json:"visibility"`
	Status      *models.EventStatus `json:"status"`
}

// EventWithAccess is an event annotated with the caller's access.
type EventWithAccess struct {
	Event  *models.Event      `json:"event"`
	Access access.EventAccess `json:"access"`
}

// TimelineItem is one entry of GET /events?ids=. Event is omitted when the caller cannot view it.
type TimelineItem struct {
	ID     uuid.UUID          `json:"id"`
	Access access.EventAccess `json:"access"`
	Event  *models.Event      `json:"event,omitempty"`
}

// Handler handles event HTTP endpoints.
type Handler struct {
	repo        *Repository
	checker     access.Checker
	invalidator access.Invalidator
	logger      *zap.Logger
}

// NewHandler creates an event handler. invalidator may be nil.
func NewHandler(repo *Repository, checker access.Checker, invalidator access.Invalidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, checker: checker, invalidator: invalidator, logger: logger}
}

// Create handles POST /events.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Visibility == "" {
		req.Visibility = models.VisibilityInvitedOnly
	}
	if !req.Visibility.Valid() {
		response.BadRequest(c, "invalid visibility")
		return
	}
	startsAt, err := parseTime(req.StartsAt)
	if err != nil {
		response.BadRequest(c, "invalid starts_at")
		return
	}

	e := &models.Event{
		OwnerID:     middleware.UserIDFrom(c),
		Title:       req.Title,
		Description: req.Description,
		StartsAt:    startsAt,
		IsPublic:    req.IsPublic,
		Visibility:  req.Visibility,
		Status:      models.EventStatusDraft,
	}
	if err := h.repo.Create(c.Request.Context(), e); err != nil {
		h.logger.Error("create event", zap.Error(err))
		response.Internal(c, "failed to create event")
		return
	}
	response.Created(c, e)
}

// Get handles GET /events/:id. Runs behind RequireEventView.
func (h *Handler) Get(c *gin.Context) {
	id := uuid.MustParse(c.Param("id"))
	e, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			h.logger.Error("get event", zap.Error(err), zap.String("event_id", id.String()))
		}
		response.NotFound(c, "event not found")
		return
	}
	response.OK(c, EventWithAccess{Event: e, Access: middleware.EventAccessFrom(c)})
}

// Access handles GET /events/:id/access and returns the raw decision, all false when denied.
func (h *Handler) Access(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid event id")
		return
	}
	response.OK(c, h.checker.ResolveEventAccess(c.Request.Context(), middleware.ActorFrom(c), id))
}

// Timeline handles GET /events?ids=a,b,c. Items keep request order; duplicates are dropped.
func (h *Handler) Timeline(c *gin.Context) {
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	decisions := h.checker.ResolveEventsAccess(ctx, middleware.ActorFrom(c), ids)

	var visible []uuid.UUID
	for _, id := range ids {
		if decisions[id].CanView {
			visible = append(visible, id)
		}
	}
	found, err := h.repo.ListByIDs(ctx, visible)
	if err != nil {
		h.logger.Error("timeline: list events", zap.Error(err))
		response.Internal(c, "failed to load events")
		return
	}

	items := make([]TimelineItem, 0, len(ids))
	for _, id := range ids {
		item := TimelineItem{ID: id, Access: decisions[id]}
		if e, ok := found[id]; ok && item.Access.CanView {
			item.Event = e
		} else {
			item.Access = access.Denied()
		}
		items = append(items, item)
	}
	response.OK(c, items)
}

func parseIDs(raw string) ([]uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("ids is required")
	}
	seen := map[uuid.UUID]bool{}
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, errors.New("invalid event id: " + part)
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) > MaxTimelineIDs {
		return nil, errors.New("too many ids")
	}
	return ids, nil
}

// Mine handles GET /events/mine.
func (h *Handler) Mine(c *gin.Context) {
	list, err := h.repo.ListByOwner(c.Request.Context(), middleware.UserIDFrom(c))
	if err != nil {
		h.logger.Error("list my events", zap.Error(err))
		response.Internal(c, "failed to list events")
		return
	}
	response.OK(c, list)
}

// Update handles PATCH /events/:id. Runs behind RequireOrganizer.
func (h *Handler) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	id := uuid.MustParse(c.Param("id"))
	e, err := h.repo.GetByID(ctx, id)
	if err != nil {
		response.NotFound(c, "event not found")
		return
	}

	if req.Title != nil {
		if *req.Title == "" {
			response.BadRequest(c, "title cannot be empty")
			return
		}
		e.Title = *req.Title
	}
	if req.Description != nil {
		e.Description = *req.Description
	}
	if req.StartsAt != nil {
		if e.StartsAt, err = parseTime(req.StartsAt); err != nil {
			response.BadRequest(c, "invalid starts_at")
			return
		}
	}
	if req.IsPublic != nil {
		e.IsPublic = *req.IsPublic
	}
	if req.Visibility != nil {
		if !req.Visibility.Valid() {
			response.BadRequest(c, "invalid visibility")
			return
		}
		e.Visibility = *req.Visibility
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			response.BadRequest(c, "invalid status")
			return
		}
		e.Status = *req.Status
	}

	if err := h.repo.Update(ctx, e); err != nil {
		h.logger.Error("update event", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to update event")
		return
	}
	h.invalidate(c, id)
	response.OK(c, e)
}

// Delete handles DELETE /events/:id. Runs behind RequireOrganizer.
func (h *Handler) Delete(c *gin.Context) {
	id := uuid.MustParse(c.Param("id"))
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			response.NotFound(c, "event not found")
			return
		}
		h.logger.Error("delete event", zap.Error(err), zap.String("event_id", id.String()))
		response.Internal(c, "failed to delete event")
		return
	}
	h.invalidate(c, id)
	response.NoContent(c)
}

func (h *Handler) invalidate(c *gin.Context, id uuid.UUID) {
	if h.invalidator != nil {
		h.invalidator.Invalidate(c.Request.Context(), id)
	}
}
