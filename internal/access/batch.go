package access

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// ResolveEventsAccess resolves each event independently and concurrently.
// The result holds exactly one entry per distinct id; a failed lookup only denies its own event.
func (r *Resolver) ResolveEventsAccess(ctx context.Context, actor Actor, eventIDs []uuid.UUID) map[uuid.UUID]EventAccess {
	ctx, span := r.tracer.Start(ctx, "access.ResolveEventsAccess", trace.WithAttributes(
		attribute.Int("events.count", len(eventIDs)),
		attribute.Bool("actor.anonymous", actor.IsAnonymous()),
	))
	defer span.End()

	out := make(map[uuid.UUID]EventAccess, len(eventIDs))
	var mu sync.Mutex

	var g errgroup.Group
	if r.batchLimit > 0 {
		g.SetLimit(r.batchLimit)
	}
	seen := make(map[uuid.UUID]struct{}, len(eventIDs))
	for _, id := range eventIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		g.Go(func() error {
			decision := r.ResolveEventAccess(ctx, actor, id)
			mu.Lock()
			out[id] = decision
			mu.Unlock()
			return nil
		})
	}
	// The goroutines never fail; errgroup is here for SetLimit.
	_ = g.Wait()
	return out
}
