package reply

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-rsvp/internal/models"
)

type fakeStore struct {
	guests  map[string]*models.Guest // canonical phone -> guest
	updates map[string]*int          // guest name -> last rsvp written
	deleted []string                 // guest names deleted
}

func newFakeStore(guests ...*models.Guest) *fakeStore {
	s := &fakeStore{
		guests:  map[string]*models.Guest{},
		updates: map[string]*int{},
	}
	for _, g := range guests {
		s.guests[g.Phone] = g
	}
	return s
}

func (s *fakeStore) FindGuestByPhone(_ context.Context, canonicalPhone string) (*models.Guest, error) {
	g, ok := s.guests[canonicalPhone]
	if !ok {
		return nil, models.ErrGuestNotFound
	}
	return g, nil
}

func (s *fakeStore) UpdateRSVP(_ context.Context, _, name, _ string, rsvp *int) error {
	s.updates[name] = rsvp
	return nil
}

func (s *fakeStore) DeleteGuest(_ context.Context, _, name, phoneNumber string) error {
	s.deleted = append(s.deleted, name)
	delete(s.guests, phoneNumber)
	return nil
}

type fakeSender struct {
	sent []string // bodies sent, in order
	to   []string
}

func (f *fakeSender) SendMessage(_ context.Context, toPhone, body string) error {
	f.to = append(f.to, toPhone)
	f.sent = append(f.sent, body)
	return nil
}

type fakeAudit struct{ entries []string }

func (f *fakeAudit) AddLog(_ context.Context, _, message string) error {
	f.entries = append(f.entries, message)
	return nil
}

func newTestHandler(store *fakeStore) (*Handler, *fakeSender, *fakeAudit) {
	sender := &fakeSender{}
	audit := &fakeAudit{}
	return NewHandler(store, sender, audit, zerolog.New(io.Discard)), sender, audit
}

func knownGuest() *models.Guest {
	return &models.Guest{
		OwnerID: "owner-1",
		Name:    "דנה לוי",
		Phone:   "+972501234567",
		Whose:   "bride",
	}
}

func TestNumericReplySetsHeadcount(t *testing.T) {
	store := newFakeStore(knownGuest())
	h, sender, _ := newTestHandler(store)

	require.NoError(t, h.Handle(context.Background(), "0501234567", "7"))

	got, ok := store.updates["דנה לוי"]
	require.True(t, ok, "rsvp must be written")
	require.NotNil(t, got)
	assert.Equal(t, 7, *got)
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "7", "acknowledgement echoes the headcount")
}

func TestZeroReplyIsDecline(t *testing.T) {
	store := newFakeStore(knownGuest())
	h, sender, _ := newTestHandler(store)

	require.NoError(t, h.Handle(context.Background(), "+972501234567", "0"))

	got := store.updates["דנה לוי"]
	require.NotNil(t, got)
	assert.Equal(t, 0, *got)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, ackDeclined, sender.sent[0])
}

func TestMistakeDeletesGuest(t *testing.T) {
	store := newFakeStore(knownGuest())
	h, sender, _ := newTestHandler(store)

	require.NoError(t, h.Handle(context.Background(), "+972501234567", "טעות"))

	assert.Equal(t, []string{"דנה לוי"}, store.deleted)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, ackDeleted, sender.sent[0])

	// The guest is gone; a follow-up reply is dropped.
	require.NoError(t, h.Handle(context.Background(), "+972501234567", "3"))
	assert.Len(t, sender.sent, 1)
}

func TestDeclineQuickReply(t *testing.T) {
	store := newFakeStore(knownGuest())
	h, sender, _ := newTestHandler(store)

	require.NoError(t, h.Handle(context.Background(), "+972501234567", replyDecline))

	got := store.updates["דנה לוי"]
	require.NotNil(t, got)
	assert.Equal(t, 0, *got)
	assert.Equal(t, []string{ackDeclined}, sender.sent)
}

func TestDeferralRepliesDoNotChangeState(t *testing.T) {
	for _, body := range []string{replyWillAnswer, replyDeciding} {
		store := newFakeStore(knownGuest())
		h, sender, _ := newTestHandler(store)

		require.NoError(t, h.Handle(context.Background(), "+972501234567", body))

		assert.Empty(t, store.updates, "reply %q must not change rsvp", body)
		assert.Empty(t, store.deleted)
		assert.Len(t, sender.sent, 1, "a prompt is still sent for %q", body)
	}
}

func TestOutOfRangeOrGarbageGetsFallbackPrompt(t *testing.T) {
	for _, body := range []string{"11", "-1", "בערך 4", "🎉"} {
		store := newFakeStore(knownGuest())
		h, sender, _ := newTestHandler(store)

		require.NoError(t, h.Handle(context.Background(), "+972501234567", body))

		assert.Empty(t, store.updates, "reply %q must not change rsvp", body)
		require.Len(t, sender.sent, 1)
		assert.Equal(t, promptFallback, sender.sent[0], "reply %q", body)
	}
}

func TestUnknownSenderDropped(t *testing.T) {
	store := newFakeStore(knownGuest())
	h, sender, _ := newTestHandler(store)

	require.NoError(t, h.Handle(context.Background(), "+972509999999", "5"))
	assert.Empty(t, sender.sent)
	assert.Empty(t, store.updates)
}

func TestRepliesAreLastWriteWins(t *testing.T) {
	store := newFakeStore(knownGuest())
	h, _, _ := newTestHandler(store)

	require.NoError(t, h.Handle(context.Background(), "+972501234567", "4"))
	require.NoError(t, h.Handle(context.Background(), "+972501234567", "2"))

	got := store.updates["דנה לוי"]
	require.NotNil(t, got)
	assert.Equal(t, 2, *got)
}

func TestReplyOutcomesAreAudited(t *testing.T) {
	store := newFakeStore(knownGuest())
	h, _, audit := newTestHandler(store)

	require.NoError(t, h.Handle(context.Background(), "+972501234567", "3"))
	require.Len(t, audit.entries, 1)
	assert.Contains(t, audit.entries[0], "דנה לוי")
}
