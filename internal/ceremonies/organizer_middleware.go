package ceremonies

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/internal/middleware"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/response"
)

// ContextCeremony is the context key for the ceremony loaded by RequireCeremonyOrganizer.
const ContextCeremony = "ceremony"

// RequireCeremonyOrganizer loads the :id ceremony and allows only the organizer of its event.
// Callers who cannot view the event get 404, viewers who are not the organizer get 403.
func RequireCeremonyOrganizer(repo *Repository, checker access.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid ceremony id")
			return
		}
		ctx := c.Request.Context()
		cer, err := repo.GetByID(ctx, id)
		if err != nil {
			response.NotFound(c, "ceremony not found")
			return
		}
		decision := checker.ResolveEventAccess(ctx, middleware.ActorFrom(c), cer.EventID)
		if !decision.CanView {
			response.NotFound(c, "ceremony not found")
			return
		}
		if !decision.IsOrganizer {
			response.Forbidden(c, "only the organizer can do this")
			return
		}
		c.Set(ContextCeremony, cer)
		c.Next()
	}
}

// CeremonyFrom returns the ceremony stored by RequireCeremonyOrganizer.
func CeremonyFrom(c *gin.Context) *models.Ceremony {
	return c.MustGet(ContextCeremony).(*models.Ceremony)
}
