package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tsheringpenjor/concierge/internal/sheets"
)

// newTestManager fixes the clock at Jan 20 2026 and advances it a little on
// every read so generated booking IDs stay unique.
func newTestManager(t *testing.T) (*Manager, *sheets.Fake) {
	t.Helper()
	store, fake := sheets.NewTestStore()
	seedHotel(fake)

	base := date("2026-01-20").Add(10 * time.Hour)
	tick := 0
	now := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Millisecond)
	}

	checker := NewChecker(store)
	checker.now = now
	manager := NewManager(store, checker)
	manager.now = now
	return manager, fake
}

func TestCreateBooking(t *testing.T) {
	manager, fake := newTestManager(t)
	ctx := context.Background()

	b, err := manager.Create(ctx, Booking{
		CustomerName: "Tashi",
		Phone:        "97517111222",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Twin",
		Guests:       2,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, b.ID)
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, "R1", b.RoomID, "first free twin should be picked")
	assert.Equal(t, "Garden Twin", b.RoomName)
	assert.Equal(t, "5000", b.Price, "2500 per night for 2 nights")

	grid := fake.Grid(PendingSheet)
	require.Len(t, grid, 4)
	assert.Equal(t, "Booking ID", grid[0][0])
	assert.Equal(t, "January, 2026", grid[1][0])
	assert.Empty(t, grid[2])
	assert.Equal(t, b.ID, grid[3][0])
	assert.Equal(t, "pending", grid[3][11])
}

func TestCreateBookingSortsNewestFirst(t *testing.T) {
	manager, fake := newTestManager(t)
	ctx := context.Background()

	early, err := manager.Create(ctx, Booking{
		CustomerName: "Dorji",
		CheckIn:      date("2026-01-24"),
		CheckOut:     date("2026-01-25"),
		RoomType:     "Twin",
	})
	require.NoError(t, err)

	late, err := manager.Create(ctx, Booking{
		CustomerName: "Pema",
		CheckIn:      date("2026-01-28"),
		CheckOut:     date("2026-01-30"),
		RoomType:     "Twin",
	})
	require.NoError(t, err)

	feb, err := manager.Create(ctx, Booking{
		CustomerName: "Karma",
		CheckIn:      date("2026-02-05"),
		CheckOut:     date("2026-02-07"),
		RoomType:     "Villa",
	})
	require.NoError(t, err)

	grid := fake.Grid(PendingSheet)
	// February's section sits above January's, and within January the later
	// check-in comes first.
	assert.Equal(t, "February, 2026", grid[1][0])
	assert.Equal(t, feb.ID, grid[3][0])
	assert.Equal(t, "January, 2026", grid[4][0])
	assert.Equal(t, late.ID, grid[6][0])
	assert.Equal(t, early.ID, grid[7][0])
}

func TestCreateBookingNoAvailability(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.Create(context.Background(), Booking{
		CustomerName: "Tashi",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Double", // only double is flagged No
	})
	assert.ErrorIs(t, err, ErrNoRoomsAvailable)
}

func TestCreateRejectsPastCheckIn(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.Create(context.Background(), Booking{
		CustomerName: "Tashi",
		CheckIn:      date("2026-01-15"),
		CheckOut:     date("2026-01-17"),
		RoomType:     "Twin",
	})
	assert.ErrorIs(t, err, ErrCheckInPast)
}

func TestCreateRejectsDuplicatePending(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	req := Booking{
		CustomerName: "Tashi",
		Phone:        "97517111222",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Twin",
	}
	_, err := manager.Create(ctx, req)
	require.NoError(t, err)

	_, err = manager.Create(ctx, req)
	assert.ErrorIs(t, err, ErrDuplicateBooking)

	// A different check-in is a new request, not a resubmission.
	req.CheckIn = date("2026-02-02")
	req.CheckOut = date("2026-02-04")
	_, err = manager.Create(ctx, req)
	assert.NoError(t, err)
}

func TestCreateRejectsConfirmedOverlap(t *testing.T) {
	manager, fake := newTestManager(t)
	ctx := context.Background()

	// An approved stay recorded in a monthly sheet blocks the room even when
	// its booked-dates cell was never filled in.
	fake.Seed("Bookings January 2026", [][]string{
		ArchiveHeaders,
		{"BK900001", "Pema", "97517999888", "2026-01-26", "2026-01-28",
			"Twin Room", "Garden Twin", "R1", "1", "2", "5000", "confirmed",
			"2026-01-10 09:00:00", ""},
	})

	_, err := manager.Create(ctx, Booking{
		CustomerName: "Tashi",
		Phone:        "97517111222",
		CheckIn:      date("2026-01-27"),
		CheckOut:     date("2026-01-29"),
		RoomID:       "R1",
	})
	assert.ErrorIs(t, err, ErrNoRoomsAvailable)

	// The nights after checkout are free again.
	_, err = manager.Create(ctx, Booking{
		CustomerName: "Tashi",
		Phone:        "97517111222",
		CheckIn:      date("2026-01-28"),
		CheckOut:     date("2026-01-30"),
		RoomID:       "R1",
	})
	assert.NoError(t, err)
}

func TestCreateOlderMonthAfterNewer(t *testing.T) {
	manager, fake := newTestManager(t)
	ctx := context.Background()

	mar, err := manager.Create(ctx, Booking{
		CustomerName: "Tashi",
		Phone:        "97517111222",
		CheckIn:      date("2026-03-10"),
		CheckOut:     date("2026-03-12"),
		RoomType:     "Twin",
	})
	require.NoError(t, err)

	feb, err := manager.Create(ctx, Booking{
		CustomerName: "Karma",
		Phone:        "97517333444",
		CheckIn:      date("2026-02-10"),
		CheckOut:     date("2026-02-12"),
		RoomType:     "Twin",
	})
	require.NoError(t, err)

	// The February section goes after the whole March section, not inside it.
	grid := fake.Grid(PendingSheet)
	require.Len(t, grid, 7)
	assert.Equal(t, "March, 2026", grid[1][0])
	assert.Equal(t, mar.ID, grid[3][0])
	assert.Equal(t, "February, 2026", grid[4][0])
	assert.Equal(t, feb.ID, grid[6][0])
}

func TestCreateRejectsTooManyRooms(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.Create(context.Background(), Booking{
		CustomerName: "Tashi",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Twin",
		NumRooms:     10,
	})
	assert.ErrorIs(t, err, ErrTooManyRooms)
}

func TestCreateCapacityBound(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	// Five guests in one twin (sleeps two) is refused.
	_, err := manager.Create(ctx, Booking{
		CustomerName: "Tashi",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Twin",
		Guests:       5,
	})
	assert.ErrorIs(t, err, ErrOverCapacity)

	// Two twins sleep four.
	_, err = manager.Create(ctx, Booking{
		CustomerName: "Tashi",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Twin",
		NumRooms:     2,
		Guests:       4,
	})
	assert.NoError(t, err)

	// A requested room that cannot sleep the party is refused too.
	_, err = manager.Create(ctx, Booking{
		CustomerName: "Karma",
		CheckIn:      date("2026-02-10"),
		CheckOut:     date("2026-02-12"),
		RoomID:       "R1",
		Guests:       3,
	})
	assert.ErrorIs(t, err, ErrOverCapacity)
}

func TestCreateFailsWhenSheetsUnreadable(t *testing.T) {
	manager, fake := newTestManager(t)

	fake.FailWith = context.DeadlineExceeded

	_, err := manager.Create(context.Background(), Booking{
		CustomerName: "Tashi",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Twin",
	})
	require.Error(t, err)

	fake.FailWith = nil
	pending, err := manager.PendingBookings(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending, "nothing may be written while availability cannot be verified")
}

func TestApproveBooking(t *testing.T) {
	manager, fake := newTestManager(t)
	ctx := context.Background()

	b, err := manager.Create(ctx, Booking{
		CustomerName: "Tashi",
		Phone:        "97517111222",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Twin",
	})
	require.NoError(t, err)

	approved, err := manager.Approve(ctx, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, approved.Status)

	// Row moved out of pending.
	pending, err := manager.PendingBookings(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// And into the monthly sheet with a confirmed status.
	monthly := fake.Grid("Bookings January 2026")
	require.Len(t, monthly, 2)
	assert.Equal(t, "Approved At", monthly[0][12])
	assert.Equal(t, b.ID, monthly[1][0])
	assert.Equal(t, "confirmed", monthly[1][11])

	// Room calendar now carries the stay and the flag flipped.
	hotel := fake.Grid("Hotel Rooms")
	assert.Equal(t, "2026-01-26 to 2026-01-28", hotel[1][6])
	assert.Equal(t, "No", hotel[1][5])
}

func TestApproveDecrementsCounter(t *testing.T) {
	manager, fake := newTestManager(t)
	ctx := context.Background()

	b, err := manager.Create(ctx, Booking{
		CustomerName: "Karma",
		CheckIn:      date("2026-02-05"),
		CheckOut:     date("2026-02-07"),
		RoomType:     "Villa",
	})
	require.NoError(t, err)

	_, err = manager.Approve(ctx, b.ID, "")
	require.NoError(t, err)

	hotel := fake.Grid("Hotel Rooms")
	assert.Equal(t, "1", hotel[4][5], "villa counter should drop from 2 to 1")
}

func TestRejectBooking(t *testing.T) {
	manager, fake := newTestManager(t)
	ctx := context.Background()

	b, err := manager.Create(ctx, Booking{
		CustomerName: "Tashi",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Twin",
	})
	require.NoError(t, err)

	before := fake.Grid("Hotel Rooms")

	rejected, err := manager.Reject(ctx, b.ID, "fully committed that week")
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	// Row stays in the pending sheet with the updated status and reason.
	grid := fake.Grid(PendingSheet)
	assert.Equal(t, b.ID, grid[3][0])
	assert.Equal(t, "rejected", grid[3][11])
	assert.Equal(t, "fully committed that week", grid[3][13])

	// Rejection never touches room inventory.
	assert.Equal(t, before, fake.Grid("Hotel Rooms"))
}

func TestApproveUnknownBooking(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	_, err := manager.Create(ctx, Booking{
		CustomerName: "Tashi",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Twin",
	})
	require.NoError(t, err)

	_, err = manager.Approve(ctx, "BK000000", "")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestLookup(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	b, err := manager.Create(ctx, Booking{
		CustomerName: "Tashi",
		Phone:        "+975 17 111 222",
		CheckIn:      date("2026-01-26"),
		CheckOut:     date("2026-01-28"),
		RoomType:     "Twin",
	})
	require.NoError(t, err)

	byID, err := manager.Lookup(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, byID.ID)

	byPhone, err := manager.Lookup(ctx, "97517111222")
	require.NoError(t, err)
	assert.Equal(t, b.ID, byPhone.ID)

	_, err = manager.Lookup(ctx, "BK999999")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestReleaseCheckouts(t *testing.T) {
	store, fake := sheets.NewTestStore()
	fake.Seed("Hotel Rooms", [][]string{
		hotelHeaders,
		{"R1", "Garden Twin", "Twin Room", "2500", "2", "No", "2026-01-15 to 2026-01-18"},
		{"R2", "Hillside Twin", "Twin Room", "2500", "2", "No", "2026-01-18 to 2026-01-20"},
		{"R4", "River Villa", "Two Bed Room Villa", "8000", "4", "1", "2026-01-10 to 2026-01-19"},
	})

	// Noon on the 20th: R1's stay is long over, R2 checks out today and the
	// checkout hour has passed, R4's guest left yesterday.
	noon := date("2026-01-20").Add(12 * time.Hour)
	checker := NewChecker(store)
	checker.now = func() time.Time { return noon }
	manager := NewManager(store, checker)
	manager.now = func() time.Time { return noon }

	released, err := manager.ReleaseCheckouts(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, 3, released)

	hotel := fake.Grid("Hotel Rooms")
	assert.Empty(t, hotel[1][6])
	assert.Equal(t, "Yes", hotel[1][5])
	assert.Empty(t, hotel[2][6])
	assert.Equal(t, "Yes", hotel[2][5])
	assert.Empty(t, hotel[3][6])
	assert.Equal(t, "2", hotel[3][5])
}

func TestBookingFromRow(t *testing.T) {
	row := []string{
		"BK123456", "Tashi", "97517111222", "2026-01-26", "2026-01-28",
		"Twin Room", "Garden Twin", "R1", "1", "2",
		"5000", "pending", "2026-01-20 10:00:00", "",
	}
	b, err := BookingFromRow(row)
	require.NoError(t, err)
	assert.Equal(t, "BK123456", b.ID)
	assert.Equal(t, date("2026-01-26"), b.CheckIn)
	assert.Equal(t, 2, b.Guests)

	_, err = BookingFromRow([]string{"", "no id"})
	assert.Error(t, err)

	_, err = BookingFromRow([]string{"BK1", "x", "y", "not-a-date", "2026-01-28"})
	assert.Error(t, err)
}
