package access

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/aura-events/backend/internal/models"
)

type fakeInvitee struct {
	id      uuid.UUID
	eventID uuid.UUID
	userID  uuid.UUID
	rsvp    models.RSVPStatus
	role    models.InviteeRole
}

type fakeInvite struct {
	ceremonyID uuid.UUID
	inviteeID  uuid.UUID
	status     models.InviteStatus
}

// fakeStore is an in-memory Store. err fails every lookup; the per-method errors fail only that lookup.
type fakeStore struct {
	mu         sync.Mutex
	events     map[uuid.UUID]*EventRecord
	ceremonies map[uuid.UUID]*CeremonyRecord
	invitees   []fakeInvitee
	invites    []fakeInvite

	err               error
	eventErr          map[uuid.UUID]error
	findInviteeErr    error
	findInviteErr     error
	inviteeByEventErr error

	getEventCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		events:     map[uuid.UUID]*EventRecord{},
		ceremonies: map[uuid.UUID]*CeremonyRecord{},
		eventErr:   map[uuid.UUID]error{},
	}
}

func (f *fakeStore) addEvent(owner uuid.UUID, vis models.Visibility, isPublic bool) uuid.UUID {
	id := uuid.New()
	f.events[id] = &EventRecord{ID: id, OwnerID: owner, IsPublic: isPublic, Visibility: vis, Status: models.EventStatusPublished}
	return id
}

func (f *fakeStore) addCeremony(eventID uuid.UUID, vis models.Visibility) uuid.UUID {
	ev := f.events[eventID]
	id := uuid.New()
	f.ceremonies[id] = &CeremonyRecord{
		ID:         id,
		EventID:    eventID,
		Visibility: vis,
		Event:      ParentEvent{OwnerID: ev.OwnerID, Visibility: ev.Visibility, IsPublic: ev.IsPublic},
	}
	return id
}

func (f *fakeStore) addInvitee(eventID, userID uuid.UUID, rsvp models.RSVPStatus) uuid.UUID {
	id := uuid.New()
	f.invitees = append(f.invitees, fakeInvitee{id: id, eventID: eventID, userID: userID, rsvp: rsvp, role: models.InviteeRoleGuest})
	return id
}

func (f *fakeStore) addInvite(ceremonyID, inviteeID uuid.UUID, status models.InviteStatus) {
	f.invites = append(f.invites, fakeInvite{ceremonyID: ceremonyID, inviteeID: inviteeID, status: status})
}

func (f *fakeStore) GetEvent(_ context.Context, eventID uuid.UUID) (*EventRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getEventCalls++
	if f.err != nil {
		return nil, f.err
	}
	if err := f.eventErr[eventID]; err != nil {
		return nil, err
	}
	e, ok := f.events[eventID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeStore) GetCeremonyWithEvent(_ context.Context, ceremonyID uuid.UUID) (*CeremonyRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	c, ok := f.ceremonies[ceremonyID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) FindInvitee(_ context.Context, eventID, userID uuid.UUID, rsvpIn []models.RSVPStatus) (*InviteeSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.findInviteeErr != nil {
		return nil, f.findInviteeErr
	}
	for _, inv := range f.invitees {
		if inv.eventID == eventID && inv.userID == userID && slices.Contains(rsvpIn, inv.rsvp) {
			return &InviteeSummary{ID: inv.id, RSVPStatus: inv.rsvp, Role: inv.role}, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f *fakeStore) FindInvite(_ context.Context, ceremonyID, inviteeUserID uuid.UUID, statusIn []models.InviteStatus) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.findInviteErr != nil {
		return false, f.findInviteErr
	}
	for _, iv := range f.invites {
		if iv.ceremonyID != ceremonyID || !slices.Contains(statusIn, iv.status) {
			continue
		}
		for _, inv := range f.invitees {
			if inv.id == iv.inviteeID && inv.userID == inviteeUserID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStore) FindInviteeByEvent(_ context.Context, eventID, userID uuid.UUID) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	if f.inviteeByEventErr != nil {
		return uuid.Nil, f.inviteeByEventErr
	}
	for _, inv := range f.invitees {
		if inv.eventID == eventID && inv.userID == userID {
			return inv.id, nil
		}
	}
	return uuid.Nil, models.ErrNotFound
}

func (f *fakeStore) FindInviteByCeremonyAndInvitee(_ context.Context, ceremonyID, inviteeID uuid.UUID) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	for _, iv := range f.invites {
		if iv.ceremonyID == ceremonyID && iv.inviteeID == inviteeID {
			return true, nil
		}
	}
	return false, nil
}
