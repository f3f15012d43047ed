package dispatch

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-rsvp/internal/models"
)

type fakeTransport struct {
	mu      sync.Mutex
	sent    []string // phones messaged
	images  []string
	failFor map[string]error // phone -> error
}

func (f *fakeTransport) SendMessage(_ context.Context, toPhone, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[toPhone]; ok {
		return err
	}
	f.sent = append(f.sent, toPhone)
	return nil
}

func (f *fakeTransport) SendImageMessage(_ context.Context, toPhone, _, imagePath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failFor[toPhone]; ok {
		return err
	}
	f.sent = append(f.sent, toPhone)
	f.images = append(f.images, imagePath)
	return nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []string
}

func (f *fakeAudit) AddLog(_ context.Context, _ string, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, message)
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func intPtr(n int) *int { return &n }

func fullDetails() models.WeddingDetails {
	return models.WeddingDetails{
		OwnerID:     "owner-1",
		BrideName:   "נועה",
		GroomName:   "איתי",
		Date:        "14.06.2026",
		Hour:        "19:30",
		Location:    "ראשון לציון",
		WazeLink:    "https://waze.com/ul/abc",
		ReminderDay: models.ReminderDayBefore,
		ImagePath:   "uploads/invite.jpg",
	}
}

func TestSendReminderOnlyToPending(t *testing.T) {
	transport := &fakeTransport{}
	audit := &fakeAudit{}
	d := NewDispatcher(transport, audit, 250, testLogger())

	guests := []models.Guest{
		{Name: "pending", Phone: "+972501111111"},
		{Name: "confirmed", Phone: "+972502222222", RSVP: intPtr(3)},
	}

	result, err := d.Send(context.Background(), "owner-1", guests, models.KindRSVPReminder, fullDetails(), "")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 0, result.Fail)
	assert.Equal(t, []string{"+972501111111"}, transport.sent)
}

func TestSendWeddingReminderOnlyToConfirmed(t *testing.T) {
	transport := &fakeTransport{}
	d := NewDispatcher(transport, &fakeAudit{}, 250, testLogger())

	guests := []models.Guest{
		{Name: "pending", Phone: "+972501111111"},
		{Name: "declined", Phone: "+972502222222", RSVP: intPtr(0)},
		{Name: "confirmed", Phone: "+972503333333", RSVP: intPtr(2)},
	}

	result, err := d.Send(context.Background(), "owner-1", guests, models.KindWeddingReminder, fullDetails(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, []string{"+972503333333"}, transport.sent)
}

func TestSendFailureDoesNotAbortBatch(t *testing.T) {
	transport := &fakeTransport{
		failFor: map[string]error{"+972502222222": errors.New("recipient unavailable")},
	}
	audit := &fakeAudit{}
	d := NewDispatcher(transport, audit, 250, testLogger())

	guests := []models.Guest{
		{Name: "ok-1", Phone: "+972501111111"},
		{Name: "broken", Phone: "+972502222222"},
		{Name: "ok-2", Phone: "+972503333333"},
	}

	result, err := d.Send(context.Background(), "owner-1", guests, models.KindFreeText, fullDetails(), "הודעה")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Success)
	assert.Equal(t, 1, result.Fail)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "broken", result.Failures[0].GuestName)
	assert.Contains(t, result.Failures[0].Reason, "recipient unavailable")
	assert.Equal(t, 3, result.Success+result.Fail, "every eligible guest accounted for")
	assert.Len(t, audit.entries, 3, "every outcome logged")
}

func TestSendInvalidPhoneCountsAsFailure(t *testing.T) {
	transport := &fakeTransport{}
	d := NewDispatcher(transport, &fakeAudit{}, 250, testLogger())

	guests := []models.Guest{
		{Name: "bad", Phone: "not-a-phone"},
		{Name: "good", Phone: "0501234567"},
	}

	result, err := d.Send(context.Background(), "owner-1", guests, models.KindThankYou, fullDetails(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, 1, result.Fail)
}

func TestSendRejectsIncompleteDetails(t *testing.T) {
	transport := &fakeTransport{}
	d := NewDispatcher(transport, &fakeAudit{}, 250, testLogger())

	w := fullDetails()
	w.WazeLink = ""

	guests := []models.Guest{{Name: "דנה", Phone: "+972501111111", RSVP: intPtr(2)}}
	_, err := d.Send(context.Background(), "owner-1", guests, models.KindWeddingReminder, w, "")
	assert.ErrorIs(t, err, models.ErrIncompleteDetails)
	assert.Empty(t, transport.sent, "no partial send on incomplete details")
}

func TestSendRejectsOverQuotaBatch(t *testing.T) {
	transport := &fakeTransport{}
	d := NewDispatcher(transport, &fakeAudit{}, 2, testLogger())

	guests := []models.Guest{
		{Name: "a", Phone: "+972501111111"},
		{Name: "b", Phone: "+972502222222"},
		{Name: "c", Phone: "+972503333333"},
	}

	_, err := d.Send(context.Background(), "owner-1", guests, models.KindFreeText, fullDetails(), "הודעה")
	assert.ErrorIs(t, err, models.ErrQuotaExceeded)
	assert.Empty(t, transport.sent, "no partial send on over-quota batch")
}

func TestSendInviteAttachesImage(t *testing.T) {
	transport := &fakeTransport{}
	d := NewDispatcher(transport, &fakeAudit{}, 250, testLogger())

	guests := []models.Guest{{Name: "דנה", Phone: "+972501111111"}}
	result, err := d.Send(context.Background(), "owner-1", guests, models.KindRSVPInvite, fullDetails(), "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Equal(t, []string{"uploads/invite.jpg"}, transport.images)
}

func TestSendFreeTextRequiresText(t *testing.T) {
	d := NewDispatcher(&fakeTransport{}, &fakeAudit{}, 250, testLogger())
	guests := []models.Guest{{Name: "דנה", Phone: "+972501111111"}}

	_, err := d.Send(context.Background(), "owner-1", guests, models.KindFreeText, models.WeddingDetails{}, strings.Repeat(" ", 3))
	assert.ErrorIs(t, err, models.ErrIncompleteDetails)
}
