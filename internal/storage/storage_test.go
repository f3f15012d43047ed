package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wedding-rsvp/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "rsvp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func intPtr(n int) *int { return &n }

func TestGuestRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	added, err := s.AddGuests(ctx, "owner-1", []models.Guest{
		{Name: "דנה לוי", Phone: "+972501111111", Whose: "bride", NumberOfGuests: 2},
		{Name: "יוסי כהן", Phone: "+972502222222", Whose: "groom", NumberOfGuests: 1},
	})
	require.NoError(t, err)
	require.Len(t, added, 2)

	for _, g := range added {
		assert.Equal(t, "owner-1", g.OwnerID)
		assert.Nil(t, g.RSVP)
		assert.Nil(t, g.MessageGroup)
	}

	// Another owner's list stays empty.
	other, err := s.Guests(ctx, "owner-2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestUpdateRSVP(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AddGuests(ctx, "owner-1", []models.Guest{
		{Name: "דנה", Phone: "+972501111111", Whose: "bride"},
	})
	require.NoError(t, err)

	require.NoError(t, s.UpdateRSVP(ctx, "owner-1", "דנה", "+972501111111", intPtr(4)))

	guests, err := s.Guests(ctx, "owner-1")
	require.NoError(t, err)
	require.NotNil(t, guests[0].RSVP)
	assert.Equal(t, 4, *guests[0].RSVP)

	// Clearing back to pending.
	require.NoError(t, s.UpdateRSVP(ctx, "owner-1", "דנה", "+972501111111", nil))
	guests, err = s.Guests(ctx, "owner-1")
	require.NoError(t, err)
	assert.Nil(t, guests[0].RSVP)

	err = s.UpdateRSVP(ctx, "owner-1", "לא קיים", "+972509999999", intPtr(1))
	assert.ErrorIs(t, err, models.ErrGuestNotFound)
}

func TestSetMessageGroups(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	guests, err := s.AddGuests(ctx, "owner-1", []models.Guest{
		{Name: "א", Phone: "+972501111111", Whose: "bride"},
		{Name: "ב", Phone: "+972502222222", Whose: "groom"},
	})
	require.NoError(t, err)

	for i := range guests {
		guests[i].MessageGroup = intPtr(i + 1)
	}
	require.NoError(t, s.SetMessageGroups(ctx, "owner-1", guests))

	got, err := s.Guests(ctx, "owner-1")
	require.NoError(t, err)
	for _, g := range got {
		require.NotNil(t, g.MessageGroup)
	}
}

func TestDeleteGuest(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AddGuests(ctx, "owner-1", []models.Guest{
		{Name: "דנה", Phone: "+972501111111"},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteGuest(ctx, "owner-1", "דנה", "+972501111111"))

	guests, err := s.Guests(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, guests)

	assert.ErrorIs(t, s.DeleteGuest(ctx, "owner-1", "דנה", "+972501111111"), models.ErrGuestNotFound)
}

func TestFindGuestByPhone(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AddGuests(ctx, "owner-1", []models.Guest{
		{Name: "דנה", Phone: "+972501111111"},
	})
	require.NoError(t, err)

	g, err := s.FindGuestByPhone(ctx, "+972501111111")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", g.OwnerID)
	assert.Equal(t, "דנה", g.Name)

	_, err = s.FindGuestByPhone(ctx, "+972509999999")
	assert.ErrorIs(t, err, models.ErrGuestNotFound)
}

func TestWeddingDetailsUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.WeddingDetails(ctx, "owner-1")
	assert.ErrorIs(t, err, models.ErrDetailsNotFound)

	w := models.WeddingDetails{
		OwnerID:     "owner-1",
		BrideName:   "נועה",
		GroomName:   "איתי",
		Date:        "14.06.2026",
		Hour:        "19:30",
		Location:    "ראשון לציון",
		WazeLink:    "https://waze.com/ul/abc",
		ReminderDay: models.ReminderDayBefore,
	}
	require.NoError(t, s.SaveWeddingDetails(ctx, w))

	got, err := s.WeddingDetails(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, w.BrideName, got.BrideName)
	assert.Equal(t, models.ReminderDayBefore, got.ReminderDay)

	w.ReminderDay = models.ReminderWeddingDay
	require.NoError(t, s.SaveWeddingDetails(ctx, w))

	got, err = s.WeddingDetails(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, models.ReminderWeddingDay, got.ReminderDay)
}

func TestLogs(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddLog(ctx, "owner-1", "first"))
	require.NoError(t, s.AddLog(ctx, "owner-1", "second"))
	require.NoError(t, s.AddLog(ctx, "owner-2", "elsewhere"))

	logs, err := s.Logs(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.NotEmpty(t, l.ID)
		assert.Equal(t, "owner-1", l.OwnerID)
		assert.False(t, l.CreatedAt.IsZero())
	}
}
