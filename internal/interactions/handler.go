package interactions

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// PostRequest is the body for POST /events/:id/interactions.
type PostRequest struct {
	Kind       models.InteractionKind `json:"kind" binding:"required"`
	Body       string                 `json:"body" binding:"required"`
	CeremonyID *uuid.UUID             `json:"ceremony_id"`
}

// Handler handles interaction HTTP endpoints.
type Handler struct {
	repo    *Repository
	service *Service
	checker access.Checker
	logger  *zap.Logger
}

// NewHandler creates an interaction handler.
func NewHandler(repo *Repository, service *Service, checker access.Checker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, service: service, checker: checker, logger: logger}
}

// List handles GET /events/:id/interactions?before=&limit=. Runs behind RequireEventView.
// Interactions tied to a ceremony the actor cannot enter are left out.
func (h *Handler) List(c *gin.Context) {
	eventID := uuid.MustParse(c.Param("id"))
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			response.BadRequest(c, "before must be RFC3339")
			return
		}
		before = &t
	}

	list, err := h.listVisible(c, eventID, before, limit)
	if err != nil {
		h.logger.Error("list interactions", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to list interactions")
		return
	}
	response.OK(c, list)
}

// listVisible pages back through the event until limit interactions the actor may see are
// collected or the history runs out. Interactions in ceremonies the actor cannot enter are skipped.
func (h *Handler) listVisible(c *gin.Context, eventID uuid.UUID, before *time.Time, limit int) ([]models.Interaction, error) {
	ctx := c.Request.Context()
	filter := access.NewCeremonyFilter(h.checker, middleware.ActorFrom(c), 0)
	list := make([]models.Interaction, 0, limit)
	for {
		page, err := h.repo.ListByEvent(ctx, eventID, before, limit)
		if err != nil {
			return nil, err
		}
		for _, i := range page {
			if len(list) == limit {
				return list, nil
			}
			if filter.Allows(ctx, i.CeremonyID) {
				list = append(list, i)
			}
		}
		if len(list) == limit || len(page) < limit {
			return list, nil
		}
		last := page[len(page)-1].CreatedAt
		before = &last
	}
}

// Create handles POST /events/:id/interactions. Runs behind RequireEventInteract.
func (h *Handler) Create(c *gin.Context) {
	var req PostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	eventID := uuid.MustParse(c.Param("id"))
	actor := middleware.ActorFrom(c)
	if req.CeremonyID != nil && !h.checker.CanAccessCeremony(ctx, actor, *req.CeremonyID) {
		response.NotFound(c, "ceremony not found")
		return
	}

	i, err := h.service.Post(ctx, middleware.UserIDFrom(c), eventID, req.CeremonyID, req.Kind, req.Body)
	switch {
	case errors.Is(err, ErrInvalid):
		response.BadRequest(c, err.Error())
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, "ceremony not found")
	case err != nil:
		h.logger.Error("create interaction", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to post interaction")
	default:
		response.Created(c, i)
	}
}
