package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tsheringpenjor/concierge/internal/sheets"
)

// Checker answers availability questions against the hotel sheets. A room
// can track occupancy two ways: a booked-dates cell listing stays, or an
// availability cell holding Yes/No or a remaining-rooms counter. When both
// are present each must allow the stay.
type Checker struct {
	store *sheets.Store
	now   func() time.Time
}

func NewChecker(store *sheets.Store) *Checker {
	return &Checker{store: store, now: time.Now}
}

// AvailableRooms returns every room free for the whole requested stay.
func (c *Checker) AvailableRooms(ctx context.Context, rng DateRange) ([]sheets.RoomInfo, error) {
	rooms, err := c.store.Rooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("checking availability: %w", err)
	}

	var free []sheets.RoomInfo
	for _, room := range rooms {
		if RoomAvailable(room, rng, c.now()) {
			free = append(free, room)
		}
	}
	return free, nil
}

// AvailableByType groups free rooms by room type. Rooms without a type fall
// under their room name.
func (c *Checker) AvailableByType(ctx context.Context, rng DateRange) (map[string][]sheets.RoomInfo, error) {
	free, err := c.AvailableRooms(ctx, rng)
	if err != nil {
		return nil, err
	}

	byType := make(map[string][]sheets.RoomInfo)
	for _, room := range free {
		key := room.Type
		if key == "" {
			key = room.Name
		}
		byType[key] = append(byType[key], room)
	}
	return byType, nil
}

// HasConfirmedConflict scans booking sheets for an approved stay of the room
// that overlaps the range. It is the second overlap path next to the room's
// booked-dates cell; the two are kept redundant because staff hand-edit both.
func (c *Checker) HasConfirmedConflict(ctx context.Context, roomID string, rng DateRange) (bool, error) {
	if roomID == "" {
		return false, nil
	}

	infos, err := c.store.DiscoverSheets(ctx)
	if err != nil {
		return false, err
	}

	for _, info := range infos {
		if info.Type != sheets.SheetTypeBooking || info.Title == PendingSheet {
			continue
		}
		grid, err := c.store.Values(ctx, info.Title)
		if err != nil {
			if errors.Is(err, sheets.ErrSheetNotFound) {
				continue
			}
			return false, fmt.Errorf("reading %q: %w", info.Title, err)
		}
		for i, row := range grid {
			if i == 0 || !isBookingRow(row) {
				continue
			}
			b, err := BookingFromRow(row)
			if err != nil {
				continue
			}
			if !confirmedStatus(b.Status) {
				continue
			}
			if !strings.EqualFold(b.RoomID, roomID) && !strings.EqualFold(b.RoomName, roomID) {
				continue
			}
			if rng.Overlaps(b.Range()) {
				return true, nil
			}
		}
	}
	return false, nil
}

func confirmedStatus(s Status) bool {
	switch strings.ToLower(string(s)) {
	case "approved", "confirmed", "completed":
		return true
	}
	return false
}

// FindRoom locates one room by ID or, failing that, by exact name match.
func (c *Checker) FindRoom(ctx context.Context, idOrName string) (sheets.RoomInfo, bool, error) {
	rooms, err := c.store.Rooms(ctx)
	if err != nil {
		return sheets.RoomInfo{}, false, err
	}
	for _, room := range rooms {
		if room.ID != "" && strings.EqualFold(room.ID, idOrName) {
			return room, true, nil
		}
	}
	for _, room := range rooms {
		if strings.EqualFold(room.Name, idOrName) {
			return room, true, nil
		}
	}
	return sheets.RoomInfo{}, false, nil
}

// RoomAvailable reports whether a single room can host the stay.
func RoomAvailable(room sheets.RoomInfo, rng DateRange, today time.Time) bool {
	if !availabilityCellAllows(room.Availability) {
		return false
	}
	for _, booked := range DropExpired(ParseBookedDates(room.BookedDates), today) {
		if rng.Overlaps(booked) {
			return false
		}
	}
	return true
}

// RemainingCount interprets a numeric availability cell, returning -1 when
// the cell is a flag rather than a counter.
func RemainingCount(availability string) int {
	n, err := strconv.Atoi(strings.TrimSpace(availability))
	if err != nil {
		return -1
	}
	return n
}

func availabilityCellAllows(cell string) bool {
	v := strings.ToLower(strings.TrimSpace(cell))
	switch v {
	case "", "yes", "y", "true", "available":
		return true
	case "no", "n", "false", "unavailable", "sold out":
		return false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n > 0
	}
	return true
}
