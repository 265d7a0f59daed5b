package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
	Phone    string `json:"phone"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo        *Repository
	jwt         *JWTService
	invalidator access.Invalidator
	logger      *zap.Logger
}

// NewHandler creates an auth handler. invalidator may be nil.
func NewHandler(repo *Repository, jwt *JWTService, invalidator access.Invalidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, invalidator: invalidator, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	_, err := h.repo.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		response.Conflict(c, "email already registered")
		return
	case !errors.Is(err, models.ErrNotFound):
		h.logger.Error("register: lookup email", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(ctx, req.Email, hash, req.FullName, req.Phone)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			response.Conflict(c, "email already registered")
			return
		}
		h.logger.Error("register: create user", zap.Error(err))
		response.Internal(c, "failed to create user")
		return
	}

	h.linkInvitees(ctx, user)

	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	user, err := h.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			h.logger.Error("login: lookup email", zap.Error(err))
		}
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	h.linkInvitees(ctx, user)

	token, err := h.jwt.Generate(user.ID, user.Email)
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// linkInvitees claims guest records added by email before the user signed up.
// Failure does not block sign-in; the next login retries.
func (h *Handler) linkInvitees(ctx context.Context, user *models.User) {
	events, err := h.repo.LinkInvitees(ctx, user.ID, user.Email)
	if err != nil {
		h.logger.Warn("link invitees", zap.Error(err), zap.String("user_id", user.ID.String()))
		return
	}
	if len(events) > 0 {
		h.logger.Info("linked invitees", zap.String("user_id", user.ID.String()), zap.Int("count", len(events)))
	}
	if h.invalidator == nil {
		return
	}
	seen := map[uuid.UUID]bool{}
	for _, id := range events {
		if !seen[id] {
			seen[id] = true
			h.invalidator.Invalidate(ctx, id)
		}
	}
}
