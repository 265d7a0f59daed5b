package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/auth"
	"github.com/aura-events/backend/pkg/response"
)

const (
	// ContextUserID is the key for user ID in gin context.
	ContextUserID = "user_id"
	// ContextUserEmail is the key for user email in gin context.
	ContextUserEmail = "user_email"
)

// JWT returns a middleware that requires a valid bearer token and sets user claims in context.
func JWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, ok := bearerToken(c)
		if !present {
			response.Unauthorized(c, "missing authorization header")
			return
		}
		if !ok {
			response.Unauthorized(c, "invalid authorization header")
			return
		}
		if !setClaims(c, jwtService, token) {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		c.Next()
	}
}

// OptionalJWT lets anonymous requests through. A token that is present but invalid is still
// rejected so a stale session is never silently downgraded to anonymous.
func OptionalJWT(jwtService *auth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, present, ok := bearerToken(c)
		if !present {
			c.Next()
			return
		}
		if !ok || !setClaims(c, jwtService, token) {
			response.Unauthorized(c, "invalid or expired token")
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) (token string, present, ok bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", true, false
	}
	return parts[1], true, true
}

func setClaims(c *gin.Context, jwtService *auth.JWTService, token string) bool {
	claims, err := jwtService.Validate(token)
	if err != nil {
		return false
	}
	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUserEmail, claims.Email)
	return true
}

// ActorFrom returns the access actor for the request; anonymous when no user is set.
func ActorFrom(c *gin.Context) access.Actor {
	if id, ok := c.Get(ContextUserID); ok {
		if uid, ok := id.(uuid.UUID); ok {
			return access.UserActor(uid)
		}
	}
	return access.Anonymous()
}

// UserIDFrom returns the authenticated user id. Only valid behind JWT.
func UserIDFrom(c *gin.Context) uuid.UUID {
	return c.MustGet(ContextUserID).(uuid.UUID)
}
