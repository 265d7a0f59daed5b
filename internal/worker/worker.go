// Package worker delivers queued invites by email and records the outcome on the invite.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-events/backend/internal/invites"
	"github.com/aura-events/backend/internal/models"
	"github.com/aura-events/backend/pkg/mailer"
	"github.com/aura-events/backend/pkg/queue"
)

// JobSource is the queue the processor consumes.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) (deadLettered bool, err error)
}

// InviteStore loads invites for delivery and records status changes.
type InviteStore interface {
	GetDelivery(ctx context.Context, id uuid.UUID) (*invites.Delivery, error)
	Transition(ctx context.Context, id uuid.UUID, next models.InviteStatus) (*models.Invite, error)
}

// InviteProcessor processes invite delivery jobs: load the invite, email it, mark it SENT.
type InviteProcessor struct {
	store     InviteStore
	mail      mailer.Mailer
	queue     JobSource
	inviteURL string
	backoff   time.Duration
	logger    *zap.Logger
}

// NewInviteProcessor creates an invite delivery processor. inviteURL is the base link;
// the ceremony ID is appended to it.
func NewInviteProcessor(store InviteStore, mail mailer.Mailer, q JobSource, inviteURL string, logger *zap.Logger) *InviteProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InviteProcessor{
		store:     store,
		mail:      mail,
		queue:     q,
		inviteURL: strings.TrimRight(inviteURL, "/"),
		backoff:   queue.RetryBackoff,
		logger:    logger,
	}
}

// SetBackoff overrides the pause after a failed job.
func (p *InviteProcessor) SetBackoff(d time.Duration) {
	p.backoff = d
}

var inviteTemplate = template.Must(template.New("invite").Parse(`<p>Hi {{.Name}},</p>
<p>You are invited to <strong>{{.Ceremony}}</strong>{{if .StartsAt}} on {{.StartsAt}}{{end}}, part of {{.Event}}.</p>
<p><a href="{{.Link}}">View your invitation</a></p>`))

type inviteView struct {
	Name, Ceremony, Event, StartsAt, Link string
}

func (p *InviteProcessor) render(d *invites.Delivery) (mailer.Message, error) {
	v := inviteView{
		Name:     d.InviteeName,
		Ceremony: d.CeremonyTitle,
		Event:    d.EventTitle,
		Link:     p.inviteURL + "/" + d.Invite.CeremonyID.String(),
	}
	if d.CeremonyStartsAt != nil {
		v.StartsAt = d.CeremonyStartsAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	}
	var html bytes.Buffer
	if err := inviteTemplate.Execute(&html, v); err != nil {
		return mailer.Message{}, fmt.Errorf("render invite: %w", err)
	}
	text := fmt.Sprintf("Hi %s,\n\nYou are invited to %s, part of %s.\n\n%s\n", v.Name, v.Ceremony, v.Event, v.Link)
	return mailer.Message{
		To:      d.InviteeEmail,
		Subject: "You're invited: " + d.CeremonyTitle,
		HTML:    html.String(),
		Text:    text,
	}, nil
}

// Process executes one invite delivery job.
func (p *InviteProcessor) Process(ctx context.Context, job *queue.Job) error {
	payload, err := queue.DecodeInviteDelivery(job)
	if err != nil {
		return err
	}
	d, err := p.store.GetDelivery(ctx, payload.InviteID)
	if errors.Is(err, models.ErrNotFound) {
		p.logger.Warn("invite gone before delivery", zap.String("invite_id", payload.InviteID.String()))
		return nil
	}
	if err != nil {
		return err
	}
	if d.Invite.Status != models.InviteStatusPending {
		p.logger.Info("invite already processed", zap.String("invite_id", d.Invite.ID.String()), zap.String("status", string(d.Invite.Status)))
		return nil
	}
	if d.InviteeEmail == "" {
		p.logger.Warn("invitee has no email", zap.String("invite_id", d.Invite.ID.String()))
		p.markFailed(ctx, d.Invite.ID)
		return nil
	}

	msg, err := p.render(d)
	if err != nil {
		return err
	}
	if err := p.mail.Send(ctx, msg); err != nil {
		return fmt.Errorf("send invite: %w", err)
	}
	if _, err := p.store.Transition(ctx, d.Invite.ID, models.InviteStatusSent); err != nil && !errors.Is(err, models.ErrStatusRegress) {
		return fmt.Errorf("mark invite sent: %w", err)
	}
	p.logger.Info("invite sent", zap.String("invite_id", d.Invite.ID.String()))
	return nil
}

func (p *InviteProcessor) markFailed(ctx context.Context, id uuid.UUID) {
	if _, err := p.store.Transition(ctx, id, models.InviteStatusFailed); err != nil && !errors.Is(err, models.ErrStatusRegress) {
		p.logger.Error("mark invite failed", zap.Error(err), zap.String("invite_id", id.String()))
	}
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *InviteProcessor) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			p.logger.Info("invite worker stopping")
			return
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Warn("dequeue error", zap.Error(err))
				p.sleep(ctx)
			}
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			p.retry(ctx, job)
			p.sleep(ctx)
		}
	}
}

func (p *InviteProcessor) retry(ctx context.Context, job *queue.Job) {
	dead, err := p.queue.Retry(ctx, job)
	if err != nil {
		p.logger.Error("retry enqueue failed", zap.Error(err), zap.String("job_id", job.ID))
		return
	}
	if !dead {
		return
	}
	if payload, err := queue.DecodeInviteDelivery(job); err == nil {
		p.markFailed(ctx, payload.InviteID)
	}
}

func (p *InviteProcessor) sleep(ctx context.Context) {
	if p.backoff <= 0 {
		return
	}
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
