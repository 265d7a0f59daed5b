package invitees

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// CreateRequest is the body for POST /events/:id/invitees.
type CreateRequest struct {
	Name  string             `json:"name" binding:"required"`
	Email string             `json:"email" binding:"omitempty,email"`
	Phone string             `json:"phone"`
	Role  models.InviteeRole `json:"role"`
}

// RSVPRequest is the body for POST /events/:id/rsvp.
type RSVPRequest struct {
	Status models.RSVPStatus `json:"status" binding:"required"`
}

// Handler handles guest list HTTP endpoints.
type Handler struct {
	repo        *Repository
	checker     access.Checker
	invalidator access.Invalidator
	logger      *zap.Logger
}

// NewHandler creates an invitee handler. invalidator may be nil.
func NewHandler(repo *Repository, checker access.Checker, invalidator access.Invalidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, checker: checker, invalidator: invalidator, logger: logger}
}

// Create handles POST /events/:id/invitees. Runs behind RequireOrganizer.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if req.Role == "" {
		req.Role = models.InviteeRoleGuest
	}
	if !req.Role.Valid() {
		response.BadRequest(c, "invalid role")
		return
	}
	eventID := uuid.MustParse(c.Param("id"))
	v := &models.Invitee{
		EventID:    eventID,
		Name:       req.Name,
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:      req.Phone,
		Role:       req.Role,
		RSVPStatus: models.RSVPPending,
	}
	if err := h.repo.Create(c.Request.Context(), v); err != nil {
		h.logger.Error("create invitee", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to add invitee")
		return
	}
	h.invalidate(c, eventID)
	response.Created(c, v)
}

// List handles GET /events/:id/invitees. Runs behind RequireOrganizer.
func (h *Handler) List(c *gin.Context) {
	eventID := uuid.MustParse(c.Param("id"))
	list, err := h.repo.ListByEvent(c.Request.Context(), eventID)
	if err != nil {
		h.logger.Error("list invitees", zap.Error(err), zap.String("event_id", eventID.String()))
		response.Internal(c, "failed to list invitees")
		return
	}
	response.OK(c, list)
}

// Delete handles DELETE /invitees/:id for the organizer of the invitee's event.
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid invitee id")
		return
	}
	ctx := c.Request.Context()
	v, err := h.repo.GetByID(ctx, id)
	if err != nil {
		response.NotFound(c, "invitee not found")
		return
	}
	decision := h.checker.ResolveEventAccess(ctx, middleware.ActorFrom(c), v.EventID)
	if !decision.IsOrganizer {
		if decision.CanView {
			response.Forbidden(c, "only the organizer can do this")
		} else {
			response.NotFound(c, "invitee not found")
		}
		return
	}
	if err := h.repo.Delete(ctx, id); err != nil && !errors.Is(err, models.ErrNotFound) {
		h.logger.Error("delete invitee", zap.Error(err), zap.String("invitee_id", id.String()))
		response.Internal(c, "failed to delete invitee")
		return
	}
	h.invalidate(c, v.EventID)
	response.NoContent(c)
}

// RSVP handles POST /events/:id/rsvp for the caller's own invitee record. Runs behind RequireEventView.
func (h *Handler) RSVP(c *gin.Context) {
	var req RSVPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if !req.Status.Valid() {
		response.BadRequest(c, "invalid rsvp status")
		return
	}
	ctx := c.Request.Context()
	eventID := uuid.MustParse(c.Param("id"))
	v, err := h.repo.GetByEventAndUser(ctx, eventID, middleware.UserIDFrom(c))
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			h.logger.Error("rsvp: find invitee", zap.Error(err), zap.String("event_id", eventID.String()))
			response.Internal(c, "failed to record rsvp")
			return
		}
		response.NotFound(c, "you are not on the guest list for this event")
		return
	}
	if err := h.repo.UpdateRSVP(ctx, v.ID, req.Status); err != nil {
		h.logger.Error("rsvp: update", zap.Error(err), zap.String("invitee_id", v.ID.String()))
		response.Internal(c, "failed to record rsvp")
		return
	}
	v.RSVPStatus = req.Status
	h.invalidate(c, eventID)
	response.OK(c, v)
}

func (h *Handler) invalidate(c *gin.Context, eventID uuid.UUID) {
	if h.invalidator != nil {
		h.invalidator.Invalidate(c.Request.Context(), eventID)
	}
}
