package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/access"
	"github.com/aura-events/backend/pkg/response"
)

// ContextEventAccess holds the access.EventAccess resolved for the :id event.
const ContextEventAccess = "event_access"

// RequireEventView resolves access to the :id event and answers 404 unless the actor can view it.
// Missing and forbidden events are indistinguishable.
func RequireEventView(checker access.Checker) gin.HandlerFunc {
	return requireEvent(checker, func(*gin.Context, access.Actor, access.EventAccess) bool { return true })
}

// RequireEventInteract additionally requires CanInteract: 401 for anonymous viewers, 403 otherwise.
func RequireEventInteract(checker access.Checker) gin.HandlerFunc {
	return requireEvent(checker, func(c *gin.Context, actor access.Actor, decision access.EventAccess) bool {
		if decision.CanInteract {
			return true
		}
		if actor.IsAnonymous() {
			response.Unauthorized(c, "sign in to interact with this event")
		} else {
			response.Forbidden(c, "you cannot interact with this event")
		}
		return false
	})
}

// RequireOrganizer allows only the owner of the :id event.
func RequireOrganizer(checker access.Checker) gin.HandlerFunc {
	return requireEvent(checker, func(c *gin.Context, _ access.Actor, decision access.EventAccess) bool {
		if decision.IsOrganizer {
			return true
		}
		response.Forbidden(c, "only the organizer can do this")
		return false
	})
}

func requireEvent(checker access.Checker, allow func(*gin.Context, access.Actor, access.EventAccess) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid event id")
			return
		}
		actor := ActorFrom(c)
		decision := checker.ResolveEventAccess(c.Request.Context(), actor, eventID)
		if !decision.CanView {
			response.NotFound(c, "event not found")
			return
		}
		if !allow(c, actor, decision) {
			return
		}
		c.Set(ContextEventAccess, decision)
		c.Next()
	}
}

// RequireCeremonyAccess answers 404 unless the actor passes the gate for the :id ceremony.
func RequireCeremonyAccess(checker access.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ceremonyID, err := uuid.Parse(c.Param("id"))
		if err != nil {
			response.BadRequest(c, "invalid ceremony id")
			return
		}
		if !checker.CanAccessCeremony(c.Request.Context(), ActorFrom(c), ceremonyID) {
			response.NotFound(c, "ceremony not found")
			return
		}
		c.Next()
	}
}

// EventAccessFrom returns the decision stored by the Require* middleware.
func EventAccessFrom(c *gin.Context) access.EventAccess {
	if v, ok := c.Get(ContextEventAccess); ok {
		if decision, ok := v.(access.EventAccess); ok {
			return decision
		}
	}
	return access.Denied()
}
