package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsheringpenjor/concierge/internal/sheets"
)

var hotelHeaders = []string{"Room ID", "Room Name", "Room Type", "Price", "Capacity", "Current Available", "Booked Dates"}

func seedHotel(fake *sheets.Fake) {
	fake.Seed("Hotel Rooms", [][]string{
		hotelHeaders,
		{"R1", "Garden Twin", "Twin Room", "2500", "2", "Yes", ""},
		{"R2", "Hillside Twin", "Twin Room", "2500", "2", "Yes", "2026-01-25 to 2026-01-27"},
		{"R3", "Valley Double", "Double Room", "3200", "2", "No", ""},
		{"R4", "River Villa", "Two Bed Room Villa", "8000", "4", "2", ""},
	})
}

func newTestChecker(t *testing.T) (*Checker, *sheets.Fake) {
	t.Helper()
	store, fake := sheets.NewTestStore()
	seedHotel(fake)
	checker := NewChecker(store)
	checker.now = func() time.Time { return date("2026-01-20") }
	return checker, fake
}

func TestRoomAvailable(t *testing.T) {
	today := date("2026-01-20")
	stay := rng("2026-01-26", "2026-01-28")

	tests := []struct {
		name string
		room sheets.RoomInfo
		want bool
	}{
		{
			name: "free room with yes flag",
			room: sheets.RoomInfo{Availability: "Yes"},
			want: true,
		},
		{
			name: "no flag blocks",
			room: sheets.RoomInfo{Availability: "No"},
			want: false,
		},
		{
			name: "counter above zero allows",
			room: sheets.RoomInfo{Availability: "2"},
			want: true,
		},
		{
			name: "zero counter blocks",
			room: sheets.RoomInfo{Availability: "0"},
			want: false,
		},
		{
			name: "overlapping stay blocks",
			room: sheets.RoomInfo{Availability: "Yes", BookedDates: "2026-01-25 to 2026-01-27"},
			want: false,
		},
		{
			name: "back to back stay allowed",
			room: sheets.RoomInfo{Availability: "Yes", BookedDates: "2026-01-24 to 2026-01-26"},
			want: true,
		},
		{
			name: "expired stay ignored",
			room: sheets.RoomInfo{Availability: "Yes", BookedDates: "2026-01-10 to 2026-01-12"},
			want: true,
		},
		{
			name: "empty availability cell allows",
			room: sheets.RoomInfo{},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoomAvailable(tt.room, stay, today))
		})
	}
}

func TestAvailableRooms(t *testing.T) {
	checker, _ := newTestChecker(t)
	ctx := context.Background()

	t.Run("overlapping dates exclude booked room", func(t *testing.T) {
		free, err := checker.AvailableRooms(ctx, rng("2026-01-26", "2026-01-28"))
		require.NoError(t, err)

		ids := make([]string, 0, len(free))
		for _, r := range free {
			ids = append(ids, r.ID)
		}
		assert.ElementsMatch(t, []string{"R1", "R4"}, ids)
	})

	t.Run("clear dates include it", func(t *testing.T) {
		free, err := checker.AvailableRooms(ctx, rng("2026-02-10", "2026-02-12"))
		require.NoError(t, err)

		ids := make([]string, 0, len(free))
		for _, r := range free {
			ids = append(ids, r.ID)
		}
		assert.ElementsMatch(t, []string{"R1", "R2", "R4"}, ids)
	})
}

func TestAvailableByType(t *testing.T) {
	checker, _ := newTestChecker(t)

	byType, err := checker.AvailableByType(context.Background(), rng("2026-02-10", "2026-02-12"))
	require.NoError(t, err)

	assert.Len(t, byType["Twin Room"], 2)
	assert.Len(t, byType["Two Bed Room Villa"], 1)
	assert.NotContains(t, byType, "Double Room")
}

func TestFindRoom(t *testing.T) {
	checker, _ := newTestChecker(t)
	ctx := context.Background()

	room, found, err := checker.FindRoom(ctx, "r2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Hillside Twin", room.Name)

	room, found, err = checker.FindRoom(ctx, "River Villa")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "R4", room.ID)

	_, found, err = checker.FindRoom(ctx, "R99")
	require.NoError(t, err)
	assert.False(t, found)
}
