package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
)

// reachableInvite are the invite statuses that still admit a guest to an invited-only ceremony.
var reachableInvite = []models.InviteStatus{
	models.InviteStatusPending,
	models.InviteStatusSent,
	models.InviteStatusDelivered,
	models.InviteStatusOpened,
	models.InviteStatusClicked,
}

// CanAccessCeremony decides whether actor may enter the ceremony.
// The organizer of the parent event is always admitted; everyone else is judged by the
// ceremony's own visibility.
func (r *Resolver) CanAccessCeremony(ctx context.Context, actor Actor, ceremonyID uuid.UUID) bool {
	ctx, span := r.tracer.Start(ctx, "access.CanAccessCeremony", trace.WithAttributes(
		attribute.String("ceremony.id", ceremonyID.String()),
		attribute.Bool("actor.anonymous", actor.IsAnonymous()),
	))
	defer span.End()

	ok := r.canAccessCeremony(ctx, actor, ceremonyID)
	span.SetAttributes(attribute.Bool("access.allowed", ok))
	return ok
}

func (r *Resolver) canAccessCeremony(ctx context.Context, actor Actor, ceremonyID uuid.UUID) bool {
	ceremony, err := r.store.GetCeremonyWithEvent(ctx, ceremonyID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			r.ceremonyLookupFailed("get ceremony", err, actor, ceremonyID)
		}
		return false
	}

	userID, authenticated := actor.UserID()
	if authenticated && userID == ceremony.Event.OwnerID {
		return true
	}

	switch ceremony.Visibility {
	case models.VisibilityPublic:
		return true
	case models.VisibilityConnected:
		if !authenticated {
			return false
		}
		return r.ResolveEventAccess(ctx, actor, ceremony.EventID).CanView
	case models.VisibilityInvitedOnly:
		if !authenticated {
			return false
		}
		return r.invitedToCeremony(ctx, actor, userID, ceremony)
	default:
		return false
	}
}

// invitedToCeremony checks the direct invite first, then the actor's event invitee record.
// An invite created before its invitee was linked to the user only shows up through the
// second path, so both are needed.
func (r *Resolver) invitedToCeremony(ctx context.Context, actor Actor, userID uuid.UUID, ceremony *CeremonyRecord) bool {
	found, err := r.store.FindInvite(ctx, ceremony.ID, userID, reachableInvite)
	if err != nil {
		r.ceremonyLookupFailed("find invite", err, actor, ceremony.ID)
		return false
	}
	if found {
		return true
	}

	inviteeID, err := r.store.FindInviteeByEvent(ctx, ceremony.EventID, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			r.ceremonyLookupFailed("find invitee by event", err, actor, ceremony.ID)
		}
		return false
	}

	found, err = r.store.FindInviteByCeremonyAndInvitee(ctx, ceremony.ID, inviteeID)
	if err != nil {
		r.ceremonyLookupFailed("find invite by invitee", err, actor, ceremony.ID)
		return false
	}
	return found
}

func (r *Resolver) ceremonyLookupFailed(step string, err error, actor Actor, ceremonyID uuid.UUID) {
	r.logger.Warn("can access ceremony: "+step, zap.Error(err),
		zap.String("ceremony_id", ceremonyID.String()), zap.Stringer("actor_id", actor))
}
