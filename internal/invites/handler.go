package invites

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/ceremonies"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/queue"
	"github.com/aura-events/backend/pkg/response"
)

// WebhookSecretHeader carries the shared secret on delivery status callbacks.
const WebhookSecretHeader = "X-Webhook-Secret"

// Enqueuer hands invites to the delivery worker.
type Enqueuer interface {
	EnqueueInviteDelivery(ctx context.Context, payload queue.InviteDeliveryPayload) error
}

// CreateRequest is the body for POST /ceremonies/:id/invites.
type CreateRequest struct {
	InviteeID uuid.UUID `json:"invitee_id" binding:"required"`
}

// StatusRequest is the body for POST /webhooks/invite-status.
type StatusRequest struct {
	InviteID uuid.UUID           `json:"invite_id" binding:"required"`
	Status   models.InviteStatus `json:"status" binding:"required"`
}

// Handler handles invite HTTP endpoints.
type Handler struct {
	repo          *Repository
	queue         Enqueuer
	webhookSecret string
	logger        *zap.Logger
}

// NewHandler creates an invite handler. An empty webhookSecret disables the status webhook.
func NewHandler(repo *Repository, q Enqueuer, webhookSecret string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, queue: q, webhookSecret: webhookSecret, logger: logger}
}

// Create handles POST /ceremonies/:id/invites. Runs behind ceremonies.RequireCeremonyOrganizer.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	cer := ceremonies.CeremonyFrom(c)
	inv := &models.Invite{
		CeremonyID: cer.ID,
		InviteeID:  req.InviteeID,
		Channel:    models.InviteChannelEmail,
	}
	if err := h.repo.Create(ctx, cer.EventID, inv); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			response.BadRequest(c, "invitee is not on this event's guest list")
		case errors.Is(err, models.ErrAlreadyExists):
			response.Conflict(c, "invitee already invited to this ceremony")
		default:
			h.logger.Error("create invite", zap.Error(err), zap.String("ceremony_id", cer.ID.String()))
			response.Internal(c, "failed to create invite")
		}
		return
	}

	if err := h.queue.EnqueueInviteDelivery(ctx, queue.InviteDeliveryPayload{InviteID: inv.ID}); err != nil {
		h.logger.Error("enqueue invite delivery", zap.Error(err), zap.String("invite_id", inv.ID.String()))
		response.ServiceUnavailable(c, "invite saved but delivery could not be scheduled")
		return
	}
	response.Accepted(c, inv)
}

// List handles GET /ceremonies/:id/invites. Runs behind ceremonies.RequireCeremonyOrganizer.
func (h *Handler) List(c *gin.Context) {
	cer := ceremonies.CeremonyFrom(c)
	list, err := h.repo.ListByCeremony(c.Request.Context(), cer.ID)
	if err != nil {
		h.logger.Error("list invites", zap.Error(err), zap.String("ceremony_id", cer.ID.String()))
		response.Internal(c, "failed to list invites")
		return
	}
	response.OK(c, list)
}

// StatusWebhook handles POST /webhooks/invite-status from the delivery provider.
func (h *Handler) StatusWebhook(c *gin.Context) {
	given := c.GetHeader(WebhookSecretHeader)
	if h.webhookSecret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.webhookSecret)) != 1 {
		response.Unauthorized(c, "invalid webhook secret")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	switch req.Status {
	case models.InviteStatusDelivered, models.InviteStatusOpened, models.InviteStatusClicked, models.InviteStatusBounced:
	default:
		response.BadRequest(c, "unsupported status")
		return
	}

	inv, err := h.repo.Transition(c.Request.Context(), req.InviteID, req.Status)
	switch {
	case errors.Is(err, models.ErrNotFound):
		response.NotFound(c, "invite not found")
	case errors.Is(err, models.ErrStatusRegress):
		response.Conflict(c, err.Error())
	case err != nil:
		h.logger.Error("invite status webhook", zap.Error(err), zap.String("invite_id", req.InviteID.String()))
		response.Internal(c, "failed to update invite")
	default:
		h.logger.Info("invite status updated", zap.String("invite_id", inv.ID.String()), zap.String("status", string(inv.Status)))
		response.OK(c, inv)
	}
}
