package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
)

const tracerName = "github.com/aura-events/backend/internal/access"

// DefaultBatchLimit bounds concurrent store lookups in ResolveEventsAccess.
const DefaultBatchLimit = 8

// interactingRSVP are the RSVP states that let a guest comment, react and upload.
var interactingRSVP = []models.RSVPStatus{models.RSVPPending, models.RSVPAccepted, models.RSVPMaybe}

// Resolver computes access decisions over a Store.
type Resolver struct {
	store      Store
	logger     *zap.Logger
	tracer     trace.Tracer
	batchLimit int
}

// NewResolver creates a resolver reading from store.
func NewResolver(store Store, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		store:      store,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		batchLimit: DefaultBatchLimit,
	}
}

// SetBatchLimit sets how many events ResolveEventsAccess resolves at once. n <= 0 means unbounded.
func (r *Resolver) SetBatchLimit(n int) {
	r.batchLimit = n
}

// ResolveEventAccess decides whether actor may view and interact with the event.
func (r *Resolver) ResolveEventAccess(ctx context.Context, actor Actor, eventID uuid.UUID) EventAccess {
	ctx, span := r.tracer.Start(ctx, "access.ResolveEventAccess", trace.WithAttributes(
		attribute.String("event.id", eventID.String()),
		attribute.Bool("actor.anonymous", actor.IsAnonymous()),
	))
	defer span.End()

	decision := r.resolveEvent(ctx, actor, eventID)
	span.SetAttributes(
		attribute.Bool("access.can_view", decision.CanView),
		attribute.Bool("access.can_interact", decision.CanInteract),
	)
	return decision
}

func (r *Resolver) resolveEvent(ctx context.Context, actor Actor, eventID uuid.UUID) EventAccess {
	event, err := r.store.GetEvent(ctx, eventID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			r.logger.Warn("resolve event access: get event", zap.Error(err),
				zap.String("event_id", eventID.String()), zap.Stringer("actor_id", actor))
		}
		return Denied()
	}

	userID, ok := actor.UserID()
	if !ok {
		// isPublic is a legacy fallback: it can open an event but never close one.
		return EventAccess{CanView: event.Visibility == models.VisibilityPublic || event.IsPublic}
	}

	if userID == event.OwnerID {
		return EventAccess{CanView: true, CanInteract: true, IsOrganizer: true}
	}

	// Declining retracts the right to interact, not the right to see.
	invitee, err := r.store.FindInvitee(ctx, eventID, userID, interactingRSVP)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return EventAccess{CanView: true}
	case err != nil:
		r.logger.Warn("resolve event access: find invitee", zap.Error(err),
			zap.String("event_id", eventID.String()), zap.Stringer("actor_id", actor))
		return Denied()
	}
	return EventAccess{CanView: true, CanInteract: true, Invitee: invitee}
}
