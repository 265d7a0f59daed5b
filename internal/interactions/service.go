// Package interactions stores comments and reactions on events and fans them out to the live feed.
package interactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/models"
)

const (
	MaxCommentLength  = 2000
	MaxReactionLength = 8
)

// ErrInvalid wraps validation failures on posted interactions.
var ErrInvalid = errors.New("invalid interaction")

// Publisher fans a new interaction out to live-feed subscribers of an event.
type Publisher interface {
	Publish(eventID uuid.UUID, event string, payload any)
}

// Store is the persistence the service needs.
type Store interface {
	Create(ctx context.Context, i *models.Interaction) error
}

// Service validates, sanitizes, stores and publishes interactions.
// Callers are responsible for the CanInteract check.
type Service struct {
	store  Store
	pub    Publisher
	policy *bluemonday.Policy
	logger *zap.Logger
}

// NewService creates an interaction service. pub may be nil.
func NewService(store Store, pub Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, pub: pub, policy: bluemonday.StrictPolicy(), logger: logger}
}

// Post stores an interaction by userID on eventID and publishes it as a "comment" or "reaction" message.
func (s *Service) Post(ctx context.Context, userID, eventID uuid.UUID, ceremonyID *uuid.UUID, kind models.InteractionKind, body string) (*models.Interaction, error) {
	clean, err := s.clean(kind, body)
	if err != nil {
		return nil, err
	}
	i := &models.Interaction{EventID: eventID, CeremonyID: ceremonyID, UserID: userID, Kind: kind, Body: clean}
	if err := s.store.Create(ctx, i); err != nil {
		return nil, err
	}
	if s.pub != nil {
		s.pub.Publish(eventID, strings.ToLower(string(kind)), i)
	}
	s.logger.Debug("interaction posted", zap.String("event_id", eventID.String()), zap.String("kind", string(kind)))
	return i, nil
}

func (s *Service) clean(kind models.InteractionKind, body string) (string, error) {
	switch kind {
	case models.InteractionComment:
		body = strings.TrimSpace(s.policy.Sanitize(body))
		if body == "" {
			return "", fmt.Errorf("%w: comment is empty", ErrInvalid)
		}
		if utf8.RuneCountInString(body) > MaxCommentLength {
			return "", fmt.Errorf("%w: comment is too long", ErrInvalid)
		}
	case models.InteractionReaction:
		body = strings.TrimSpace(body)
		if body == "" || utf8.RuneCountInString(body) > MaxReactionLength || s.policy.Sanitize(body) != body {
			return "", fmt.Errorf("%w: reaction must be a short emoji or symbol", ErrInvalid)
		}
	default:
		return "", fmt.Errorf("%w: kind must be COMMENT or REACTION", ErrInvalid)
	}
	return body, nil
}
