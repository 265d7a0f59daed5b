package ceremonies

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// CreateRequest is the body for POST /events/:id/ceremonies.
type CreateRequest struct {
	Title      string            `json:"title" binding:"required"`
	StartsAt   *time.Time        `json:"starts_at"`
	Visibility models.Visibility `json:"visibility"`
}

// UpdateRequest is the body for PATCH /ceremonies/:id.
type UpdateRequest struct {
	Title      *string            `json:"title"`
	StartsAt   *time.Time         `json:"starts_at"`
	Visibility *models.Visibility `json:"visibility"`
}

// Handler handles ceremony HTTP endpoints.
type Handler struct {
	repo    *Repository
	checker access.Checker
	logger  *zap.Logger
}

// NewHandler creates a ceremony handler.
func NewHandler(repo *Repository, checker access.Checker, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, checker: checker, logger: logger}
}

// Create handles POST /events/:id/ceremonies. Runs behind RequireOrganizer.
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
	cer := &models.Ceremony{
		EventID:    uuid.MustParse(c.Param("id")),
		Title:      req.Title,
		StartsAt:   req.StartsAt,
		Visibility: req.Visibility,
	}
	if err := h.repo.Create(c.Request.Context(), cer); err != nil {
		h.logger.Error("create ceremony", zap.Error(err))
		response.Internal(c, "failed to create ceremony")
		return
	}
	response.Created(c, cer)
}

// Get handles GET /ceremonies/:id. Runs behind RequireCeremonyAccess.
func (h *Handler) Get(c *gin.Context) {
	id := uuid.MustParse(c.Param("id"))
	cer, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			h.logger.Error("get ceremony", zap.Error(err), zap.String("ceremony_id", id.String()))
		}
		response.NotFound(c, "ceremony not found")
		return
	}
	response.OK(c, cer)
}

// ListForEvent handles GET /events/:id/ceremonies. Runs behind RequireEventView and returns only
// the ceremonies the caller passes the gate for.
func (h *Handler) ListForEvent(c *gin.Context) {
	ctx := c.Request.Context()
	eventID := uuid.MustParse(c.Param("id"))
	list, err := h.repo.ListByEvent(ctx, eventID)
	if err != nil {
		h.logger.Error("list ceremonies", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to list ceremonies")
		return
	}
	actor := middleware.ActorFrom(c)
	visible := make([]models.Ceremony, 0, len(list))
	for _, cer := range list {
		if h.checker.CanAccessCeremony(ctx, actor, cer.ID) {
			visible = append(visible, cer)
		}
	}
	response.OK(c, visible)
}

// Update handles PATCH /ceremonies/:id. Runs behind RequireCeremonyOrganizer.
func (h *Handler) Update(c *gin.Context) {
	cer := CeremonyFrom(c)
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Title != nil {
		if *req.Title == "" {
			response.BadRequest(c, "title cannot be empty")
			return
		}
		cer.Title = *req.Title
	}
	if req.StartsAt != nil {
		cer.StartsAt = req.StartsAt
	}
	if req.Visibility != nil {
		if !req.Visibility.Valid() {
			response.BadRequest(c, "invalid visibility")
			return
		}
		cer.Visibility = *req.Visibility
	}
	if err := h.repo.Update(c.Request.Context(), cer); err != nil {
		h.logger.Error("update ceremony", zap.Error(err), zap.String("ceremony_id", cer.ID.String()))
		response.Internal(c, "failed to update ceremony")
		return
	}
	response.OK(c, cer)
}
