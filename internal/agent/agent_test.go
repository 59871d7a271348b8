package agent

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsheringpenjor/concierge/internal/booking"
	"github.com/tsheringpenjor/concierge/internal/session"
	"github.com/tsheringpenjor/concierge/internal/sheets"
)

const guestPhone = "97517111222"

func newTestAgent(t *testing.T) (*Agent, *sheets.Fake, *booking.Manager) {
	t.Helper()

	store, fake := sheets.NewTestStore()
	fake.Seed("Hotel Rooms", [][]string{
		{"Room ID", "Room Name", "Room Type", "Price", "Current Available", "Booked Dates"},
		{"R1", "Garden Twin", "Twin Room", "2500", "Yes", ""},
		{"R2", "Hillside Twin", "Twin Room", "2500", "Yes", ""},
		{"R3", "River Villa", "Two Bed Room Villa", "8000", "2", ""},
	})

	sessions := session.NewManager(filepath.Join(t.TempDir(), "sessions.json"), 48*time.Hour)
	checker := booking.NewChecker(store)
	manager := booking.NewManager(store, checker)
	index := NewRoomIndex(store)

	return New(sessions, checker, manager, index, nil), fake, manager
}

func TestGreeting(t *testing.T) {
	a, _, _ := newTestAgent(t)

	res, err := a.ProcessMessage(context.Background(), guestPhone, "Tashi", "Hello!")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Tashi")
	assert.Nil(t, res.Created)
}

func TestBookingConversation(t *testing.T) {
	a, fake, _ := newTestAgent(t)
	ctx := context.Background()

	// Availability with dates in the same message.
	res, err := a.ProcessMessage(ctx, guestPhone, "Tashi", "what rooms are available from 2030-01-25 for 2 nights?")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Twin Room")
	assert.Contains(t, res.Reply, "2030-01-25")
	assert.Contains(t, res.Reply, "2030-01-27")

	// Picking a room yields a summary asking for confirmation.
	res, err = a.ProcessMessage(ctx, guestPhone, "Tashi", "the twin please")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Twin Room")
	assert.Contains(t, strings.ToLower(res.Reply), "confirm")
	assert.Nil(t, res.Created)

	// Confirming places the pending booking.
	res, err = a.ProcessMessage(ctx, guestPhone, "Tashi", "confirm")
	require.NoError(t, err)
	require.NotNil(t, res.Created)
	assert.Contains(t, res.Reply, res.Created.ID)
	assert.Equal(t, "Tashi", res.Created.CustomerName)
	assert.Equal(t, guestPhone, res.Created.Phone)
	assert.Equal(t, booking.StatusPending, res.Created.Status)

	grid := fake.Grid(booking.PendingSheet)
	found := false
	for _, row := range grid {
		if len(row) > 0 && row[0] == res.Created.ID {
			found = true
		}
	}
	assert.True(t, found, "booking row should be in the pending sheet")

	// The stash is cleared, so another bare confirm does nothing.
	res, err = a.ProcessMessage(ctx, guestPhone, "Tashi", "confirm")
	require.NoError(t, err)
	assert.Nil(t, res.Created)
}

func TestTooManyRoomsRequested(t *testing.T) {
	a, _, _ := newTestAgent(t)
	ctx := context.Background()

	_, err := a.ProcessMessage(ctx, guestPhone, "Tashi", "what rooms are available from 2030-01-25 for 2 nights? we need 4 rooms")
	require.NoError(t, err)
	_, err = a.ProcessMessage(ctx, guestPhone, "Tashi", "the twin please")
	require.NoError(t, err)

	res, err := a.ProcessMessage(ctx, guestPhone, "Tashi", "confirm")
	require.NoError(t, err)
	assert.Nil(t, res.Created)
	assert.Contains(t, res.Reply, "at most 3 rooms")
}

func TestStatusInquiry(t *testing.T) {
	a, _, manager := newTestAgent(t)
	ctx := context.Background()

	b, err := manager.Create(ctx, booking.Booking{
		CustomerName: "Tashi",
		Phone:        guestPhone,
		CheckIn:      time.Date(2030, time.January, 25, 0, 0, 0, 0, time.UTC),
		CheckOut:     time.Date(2030, time.January, 27, 0, 0, 0, 0, time.UTC),
		RoomType:     "Twin",
	})
	require.NoError(t, err)

	res, err := a.ProcessMessage(ctx, guestPhone, "Tashi", "what's the status of my booking?")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, b.ID)
	assert.Contains(t, strings.ToLower(res.Reply), "pending")

	res, err = a.ProcessMessage(ctx, guestPhone, "Tashi", "any news on "+b.ID+"?")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, b.ID)
}

func TestCancellationClearsPendingDetails(t *testing.T) {
	a, _, _ := newTestAgent(t)
	ctx := context.Background()

	_, err := a.ProcessMessage(ctx, guestPhone, "Tashi", "what rooms are available from 2030-01-25 for 2 nights?")
	require.NoError(t, err)

	res, err := a.ProcessMessage(ctx, guestPhone, "Tashi", "actually cancel that")
	require.NoError(t, err)
	assert.Nil(t, res.Created)

	// With the stash gone, confirming has nothing to act on.
	_, err = a.ProcessMessage(ctx, guestPhone, "Tashi", "the twin please")
	require.NoError(t, err)
	res, err = a.ProcessMessage(ctx, guestPhone, "Tashi", "confirm")
	require.NoError(t, err)
	assert.Nil(t, res.Created)
}

func TestFullyBooked(t *testing.T) {
	a, fake, _ := newTestAgent(t)
	fake.Seed("Hotel Rooms", [][]string{
		{"Room ID", "Room Name", "Room Type", "Price", "Current Available", "Booked Dates"},
		{"R1", "Garden Twin", "Twin Room", "2500", "No", ""},
	})

	res, err := a.ProcessMessage(context.Background(), guestPhone, "Tashi", "what rooms are available from 2030-01-25 for 2 nights?")
	require.NoError(t, err)
	assert.Contains(t, strings.ToLower(res.Reply), "fully booked")
}

func TestFreeformWithoutModel(t *testing.T) {
	a, _, _ := newTestAgent(t)

	res, err := a.ProcessMessage(context.Background(), guestPhone, "Tashi", "how far is the airport from the hotel?")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "availability")
}
