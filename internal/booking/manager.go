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

var ErrBookingNotFound = errors.New("booking not found")

// ErrDuplicateBooking is returned when the same guest already has a pending
// request for the same room type and check-in date.
var ErrDuplicateBooking = errors.New("a matching booking request is already pending")

// ErrCheckInPast is returned for stays that start before today.
var ErrCheckInPast = errors.New("check-in date is in the past")

// MaxRoomsPerBooking caps how many rooms one request may hold.
const MaxRoomsPerBooking = 3

// ErrTooManyRooms is returned when a request asks for more than
// MaxRoomsPerBooking rooms.
var ErrTooManyRooms = fmt.Errorf("at most %d rooms per booking request", MaxRoomsPerBooking)

// ErrOverCapacity is returned when the party is larger than the requested
// rooms sleep.
var ErrOverCapacity = errors.New("party exceeds the room capacity")

// ErrNoRoomsAvailable is returned when a booking request cannot be placed
// because no room of the requested type is free for the stay.
var ErrNoRoomsAvailable = errors.New("no rooms available for the requested dates")

// Manager owns the booking lifecycle: guests create pending bookings, staff
// approve or reject them, approval migrates the row to a monthly sheet and
// marks the room's calendar.
//
// Availability checks and writes are separate spreadsheet calls, so two
// requests racing for the last room can both pass the check before either
// write lands. Staff review is the backstop: both end up pending and the
// reviewer sees the conflict. Closing the race would need a lock or
// transactional store the spreadsheet cannot provide.
type Manager struct {
	store   *sheets.Store
	checker *Checker
	now     func() time.Time
}

func NewManager(store *sheets.Store, checker *Checker) *Manager {
	return &Manager{store: store, checker: checker, now: time.Now}
}

// Create validates a booking request, resolves a concrete room when only a
// type was given, and writes the booking to the pending sheet.
func (m *Manager) Create(ctx context.Context, b Booking) (Booking, error) {
	rng, err := NewDateRange(b.CheckIn, b.CheckOut)
	if err != nil {
		return Booking{}, err
	}
	if b.CustomerName == "" {
		return Booking{}, fmt.Errorf("booking needs a customer name")
	}
	if b.NumRooms <= 0 {
		b.NumRooms = 1
	}
	if b.NumRooms > MaxRoomsPerBooking {
		return Booking{}, ErrTooManyRooms
	}

	today := truncateToDay(m.now())
	if rng.CheckIn.Before(today) {
		return Booking{}, ErrCheckInPast
	}

	dup, err := m.hasPendingDuplicate(ctx, b)
	if err != nil {
		return Booking{}, err
	}
	if dup {
		return Booking{}, ErrDuplicateBooking
	}

	if b.RoomID == "" {
		room, err := m.resolveRoom(ctx, b.RoomType, rng, b.NumRooms, b.Guests)
		if err != nil {
			return Booking{}, err
		}
		b.RoomID = room.ID
		b.RoomName = room.Name
		if b.RoomType == "" {
			b.RoomType = room.Type
		}
		if b.Price == "" {
			b.Price = totalPrice(room.Price, rng.Nights(), b.NumRooms)
		}
	} else {
		room, found, err := m.checker.FindRoom(ctx, b.RoomID)
		if err != nil {
			return Booking{}, err
		}
		if found {
			if !RoomAvailable(room, rng, m.now()) {
				return Booking{}, ErrNoRoomsAvailable
			}
			if !fitsCapacity(room, b.NumRooms, b.Guests) {
				return Booking{}, ErrOverCapacity
			}
		}
	}

	conflict, err := m.checker.HasConfirmedConflict(ctx, b.RoomID, rng)
	if err != nil {
		return Booking{}, fmt.Errorf("verifying room %s against booked stays: %w", b.RoomID, err)
	}
	if conflict {
		return Booking{}, ErrNoRoomsAvailable
	}

	now := m.now()
	b.ID = NewBookingID(now)
	b.Status = StatusPending
	b.CreatedAt = now

	if err := m.store.EnsureSheet(ctx, PendingSheet, PendingHeaders); err != nil {
		return Booking{}, err
	}
	if err := m.insertByMonthSection(ctx, PendingSheet, b.Row()); err != nil {
		return Booking{}, fmt.Errorf("writing booking %s: %w", b.ID, err)
	}
	return b, nil
}

// hasPendingDuplicate reports whether the guest already has a pending request
// for the same room type and check-in date, which usually means a resubmitted
// conversation rather than a second stay.
func (m *Manager) hasPendingDuplicate(ctx context.Context, b Booking) (bool, error) {
	if b.Phone == "" {
		return false, nil
	}
	pending, err := m.PendingBookings(ctx)
	if err != nil {
		return false, err
	}
	for _, p := range pending {
		if p.Phone != b.Phone {
			continue
		}
		if !strings.EqualFold(p.RoomType, b.RoomType) {
			continue
		}
		if p.CheckIn.Equal(b.CheckIn) {
			return true, nil
		}
	}
	return false, nil
}

// resolveRoom picks the first free room matching the requested type that
// sleeps the party.
func (m *Manager) resolveRoom(ctx context.Context, roomType string, rng DateRange, numRooms, guests int) (sheets.RoomInfo, error) {
	free, err := m.checker.AvailableRooms(ctx, rng)
	if err != nil {
		return sheets.RoomInfo{}, err
	}
	want := strings.ToLower(roomType)
	typeMatched := false
	for _, room := range free {
		if want != "" &&
			!strings.Contains(strings.ToLower(room.Type), want) &&
			!strings.Contains(strings.ToLower(room.Name), want) {
			continue
		}
		typeMatched = true
		if !fitsCapacity(room, numRooms, guests) {
			continue
		}
		return room, nil
	}
	if typeMatched {
		return sheets.RoomInfo{}, ErrOverCapacity
	}
	return sheets.RoomInfo{}, ErrNoRoomsAvailable
}

// fitsCapacity reports whether the party fits the rooms requested. Rooms
// without a numeric capacity cell are unconstrained.
func fitsCapacity(room sheets.RoomInfo, numRooms, guests int) bool {
	if guests <= 0 {
		return true
	}
	perRoom, err := strconv.Atoi(strings.TrimSpace(room.Capacity))
	if err != nil || perRoom <= 0 {
		return true
	}
	if numRooms < 1 {
		numRooms = 1
	}
	return guests <= perRoom*numRooms
}

// PendingBookings lists bookings awaiting staff review, skipping month
// section headers and blank spacer rows.
func (m *Manager) PendingBookings(ctx context.Context) ([]Booking, error) {
	grid, err := m.store.Values(ctx, PendingSheet)
	if err != nil {
		if errors.Is(err, sheets.ErrSheetNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var bookings []Booking
	for i, row := range grid {
		if i == 0 || !isBookingRow(row) {
			continue
		}
		b, err := BookingFromRow(row)
		if err != nil {
			fmt.Printf("Warning: skipping unparsable pending row %d: %v\n", i+1, err)
			continue
		}
		if b.Status == "" || b.Status == StatusPending {
			b.Status = StatusPending
			bookings = append(bookings, b)
		}
	}
	return bookings, nil
}

// Approve migrates a pending booking to its monthly sheet, stamps the
// approval time, records the stay on the room's calendar and decrements the
// room's availability.
func (m *Manager) Approve(ctx context.Context, bookingID, notes string) (Booking, error) {
	b, rowIdx, err := m.findPending(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}

	now := m.now()
	b.Status = StatusConfirmed
	if notes != "" {
		b.Notes = notes
	}

	monthly := ArchiveSheetName(b.CheckIn)
	if err := m.store.EnsureSheet(ctx, monthly, ArchiveHeaders); err != nil {
		return Booking{}, err
	}
	if err := m.insertByCheckIn(ctx, monthly, b.ArchiveRow(now), b.CheckIn); err != nil {
		return Booking{}, fmt.Errorf("archiving booking %s: %w", bookingID, err)
	}

	if err := m.store.DeleteRow(ctx, PendingSheet, rowIdx); err != nil {
		return Booking{}, fmt.Errorf("removing booking %s from pending: %w", bookingID, err)
	}

	if b.RoomID != "" {
		if err := m.MarkRoomBooked(ctx, b.RoomID, b.Range()); err != nil {
			fmt.Printf("Warning: could not record booked dates for room %s: %v\n", b.RoomID, err)
		}
		if err := m.AdjustAvailability(ctx, b.RoomID, -b.NumRooms); err != nil {
			fmt.Printf("Warning: could not decrement availability for room %s: %v\n", b.RoomID, err)
		}
	}
	return b, nil
}

// Reject marks a pending booking rejected in place. Room availability is
// untouched because a pending booking never held inventory.
func (m *Manager) Reject(ctx context.Context, bookingID, reason string) (Booking, error) {
	b, rowIdx, err := m.findPending(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}

	if err := m.store.UpdateCell(ctx, PendingSheet, rowIdx, 12, string(StatusRejected)); err != nil {
		return Booking{}, fmt.Errorf("rejecting booking %s: %w", bookingID, err)
	}
	if reason != "" {
		if err := m.store.UpdateCell(ctx, PendingSheet, rowIdx, 14, reason); err != nil {
			return Booking{}, fmt.Errorf("recording rejection reason for %s: %w", bookingID, err)
		}
		b.Notes = reason
	}
	b.Status = StatusRejected
	return b, nil
}

// Lookup finds a booking by ID or phone number, searching the pending sheet
// first and then every monthly sheet.
func (m *Manager) Lookup(ctx context.Context, idOrPhone string) (Booking, error) {
	needle := strings.TrimSpace(idOrPhone)
	if needle == "" {
		return Booking{}, ErrBookingNotFound
	}

	infos, err := m.store.DiscoverSheets(ctx)
	if err != nil {
		return Booking{}, err
	}

	// Pending first so guests asking about a fresh request get an answer.
	titles := []string{PendingSheet}
	for _, info := range infos {
		if info.Type == sheets.SheetTypeBooking && info.Title != PendingSheet {
			titles = append(titles, info.Title)
		}
	}

	for _, title := range titles {
		grid, err := m.store.Values(ctx, title)
		if err != nil {
			continue
		}
		for i, row := range grid {
			if i == 0 || !isBookingRow(row) {
				continue
			}
			if strings.EqualFold(strings.TrimSpace(row[0]), needle) ||
				(len(row) > 2 && phoneMatches(row[2], needle)) {
				b, err := BookingFromRow(row)
				if err != nil {
					continue
				}
				if b.Status == "" {
					b.Status = StatusPending
				}
				return b, nil
			}
		}
	}
	return Booking{}, fmt.Errorf("%w: %q", ErrBookingNotFound, idOrPhone)
}

// MarkRoomBooked appends a stay to the room's booked-dates cell, dropping
// any expired entries while it is there.
func (m *Manager) MarkRoomBooked(ctx context.Context, roomID string, rng DateRange) error {
	return m.editBookedDates(ctx, roomID, func(ranges []DateRange) []DateRange {
		ranges = append(ranges, rng)
		sortRangesByCheckIn(ranges)
		return ranges
	})
}

// ClearRoomBooked removes a stay from the room's booked-dates cell.
func (m *Manager) ClearRoomBooked(ctx context.Context, roomID string, rng DateRange) error {
	return m.editBookedDates(ctx, roomID, func(ranges []DateRange) []DateRange {
		kept := ranges[:0]
		for _, r := range ranges {
			if !r.CheckIn.Equal(rng.CheckIn) || !r.CheckOut.Equal(rng.CheckOut) {
				kept = append(kept, r)
			}
		}
		return kept
	})
}

func (m *Manager) editBookedDates(ctx context.Context, roomID string, edit func([]DateRange) []DateRange) error {
	room, found, err := m.checker.FindRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("room %q not found in any hotel sheet", roomID)
	}

	headers, err := m.store.Headers(ctx, room.Sheet)
	if err != nil {
		return err
	}
	col := sheets.FindColumn(headers, "booked dates", "bookings", "occupied")
	if col < 0 {
		col = len(headers)
		if err := m.store.UpdateCell(ctx, room.Sheet, 1, col+1, "Booked Dates"); err != nil {
			return fmt.Errorf("adding booked dates column: %w", err)
		}
	}

	ranges := DropExpired(ParseBookedDates(room.BookedDates), m.now())
	ranges = edit(ranges)
	return m.store.UpdateCell(ctx, room.Sheet, room.Row, col+1, FormatBookedDates(ranges))
}

// AdjustAvailability changes a room's availability cell by delta rooms.
// Yes/No cells flip instead of counting.
func (m *Manager) AdjustAvailability(ctx context.Context, roomID string, delta int) error {
	room, found, err := m.checker.FindRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("room %q not found in any hotel sheet", roomID)
	}

	headers, err := m.store.Headers(ctx, room.Sheet)
	if err != nil {
		return err
	}
	col := sheets.FindColumn(headers, "available", "availability")
	if col < 0 {
		return fmt.Errorf("sheet %q has no availability column", room.Sheet)
	}

	cell := strings.ToLower(strings.TrimSpace(room.Availability))
	var next string
	switch cell {
	case "yes", "available", "true", "y":
		if delta >= 0 {
			return nil
		}
		next = "No"
	case "no", "unavailable", "false", "n":
		if delta <= 0 {
			return nil
		}
		next = "Yes"
	default:
		n, err := strconv.Atoi(cell)
		if err != nil {
			n = 0
		}
		n += delta
		if n < 0 {
			n = 0
		}
		next = strconv.Itoa(n)
	}
	return m.store.UpdateCell(ctx, room.Sheet, room.Row, col+1, next)
}

// ReleaseCheckouts frees rooms whose guests have left: stays whose check-out
// has passed, or is today once the checkout hour is reached, are removed
// from booked-dates cells and their rooms' availability restored.
func (m *Manager) ReleaseCheckouts(ctx context.Context, checkoutHour int) (int, error) {
	rooms, err := m.store.Rooms(ctx)
	if err != nil {
		return 0, err
	}

	now := m.now()
	today := truncateToDay(now)
	released := 0

	for _, room := range rooms {
		ranges := ParseBookedDates(room.BookedDates)
		if len(ranges) == 0 {
			continue
		}
		kept := make([]DateRange, 0, len(ranges))
		freed := 0
		for _, r := range ranges {
			done := r.CheckOut.Before(today) ||
				(r.CheckOut.Equal(today) && now.Hour() >= checkoutHour)
			if done {
				freed++
			} else {
				kept = append(kept, r)
			}
		}
		if freed == 0 {
			continue
		}

		headers, err := m.store.Headers(ctx, room.Sheet)
		if err != nil {
			continue
		}
		col := sheets.FindColumn(headers, "booked dates", "bookings", "occupied")
		if col < 0 {
			continue
		}
		if err := m.store.UpdateCell(ctx, room.Sheet, room.Row, col+1, FormatBookedDates(kept)); err != nil {
			fmt.Printf("Warning: could not clear checkout for room %s: %v\n", room.ID, err)
			continue
		}
		if err := m.AdjustAvailability(ctx, room.ID, freed); err != nil {
			fmt.Printf("Warning: could not restore availability for room %s: %v\n", room.ID, err)
		}
		released += freed
	}
	return released, nil
}

// findPending locates a booking row in the pending sheet, returning the
// parsed booking and its 1-based row.
func (m *Manager) findPending(ctx context.Context, bookingID string) (Booking, int, error) {
	grid, err := m.store.Values(ctx, PendingSheet)
	if err != nil {
		return Booking{}, 0, err
	}
	for i, row := range grid {
		if i == 0 || !isBookingRow(row) {
			continue
		}
		if strings.TrimSpace(row[0]) == bookingID {
			b, err := BookingFromRow(row)
			if err != nil {
				return Booking{}, 0, err
			}
			return b, i + 1, nil
		}
	}
	return Booking{}, 0, fmt.Errorf("%w: %q", ErrBookingNotFound, bookingID)
}

// insertByMonthSection places a booking row inside the sheet's month
// section for its check-in, creating the section when missing. Sections are
// ordered newest month first; within a section rows sort newest check-in
// first. Column headers live only in row 1.
func (m *Manager) insertByMonthSection(ctx context.Context, sheet string, row []string) error {
	checkIn, err := ParseDate(row[3])
	if err != nil {
		checkIn = m.now()
	}

	grid, err := m.store.Values(ctx, sheet)
	if err != nil {
		return err
	}

	sectionStart := -1
	label := MonthSectionLabel(checkIn)
	for i, r := range grid {
		if len(r) > 0 && strings.TrimSpace(r[0]) == label {
			sectionStart = i + 3 // past the header row and its spacer
			break
		}
	}

	if sectionStart < 0 {
		// Insert a new section in newest-first month order: right before the
		// first label that is not newer, or after the last section when every
		// existing month is newer.
		insertPos := len(grid) + 1
		monthStart := time.Date(checkIn.Year(), checkIn.Month(), 1, 0, 0, 0, 0, time.UTC)
		for i, r := range grid {
			if i == 0 || len(r) == 0 {
				continue
			}
			existing, ok := parseMonthLabel(strings.TrimSpace(r[0]))
			if !ok {
				continue
			}
			if !monthStart.Before(existing) {
				insertPos = i + 1
				break
			}
		}
		labelRow := make([]string, len(PendingHeaders))
		labelRow[0] = label
		if err := m.store.InsertRow(ctx, sheet, insertPos, labelRow); err != nil {
			return err
		}
		if err := m.store.InsertRow(ctx, sheet, insertPos+1, nil); err != nil {
			return err
		}
		sectionStart = insertPos + 2
	}

	insertAt, err := m.sectionInsertPoint(ctx, sheet, sectionStart, checkIn)
	if err != nil {
		return err
	}
	return m.store.InsertRow(ctx, sheet, insertAt, row)
}

func (m *Manager) sectionInsertPoint(ctx context.Context, sheet string, sectionStart int, checkIn time.Time) (int, error) {
	grid, err := m.store.Values(ctx, sheet)
	if err != nil {
		return 0, err
	}

	insertAt := sectionStart
	for i := sectionStart - 1; i < len(grid); i++ {
		row := grid[i]
		if len(row) > 0 {
			if _, isLabel := parseMonthLabel(strings.TrimSpace(row[0])); isLabel {
				break
			}
		}
		if !isBookingRow(row) {
			continue
		}
		rowCheckIn, err := ParseDate(row[3])
		if err != nil {
			continue
		}
		if !checkIn.Before(rowCheckIn) {
			insertAt = i + 1
			break
		}
		insertAt = i + 2
	}
	return insertAt, nil
}

// insertByCheckIn places a row in a flat monthly sheet keeping newest
// check-in first after the header row.
func (m *Manager) insertByCheckIn(ctx context.Context, sheet string, row []string, checkIn time.Time) error {
	grid, err := m.store.Values(ctx, sheet)
	if err != nil {
		return err
	}

	insertAt := 2
	for i := 1; i < len(grid); i++ {
		r := grid[i]
		if !isBookingRow(r) {
			continue
		}
		rowCheckIn, err := ParseDate(r[3])
		if err != nil {
			continue
		}
		if !checkIn.Before(rowCheckIn) {
			insertAt = i + 1
			break
		}
		insertAt = i + 2
	}
	if insertAt > len(grid)+1 {
		return m.store.AppendRow(ctx, sheet, row)
	}
	return m.store.InsertRow(ctx, sheet, insertAt, row)
}

// isBookingRow filters out blanks, header rows and month section labels.
func isBookingRow(row []string) bool {
	if len(row) < 4 {
		return false
	}
	first := strings.TrimSpace(row[0])
	if first == "" {
		return false
	}
	if first == "Booking ID" {
		return false
	}
	if _, ok := parseMonthLabel(first); ok {
		return false
	}
	return true
}

func parseMonthLabel(s string) (time.Time, bool) {
	t, err := time.Parse("January, 2006", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func phoneMatches(cell, needle string) bool {
	norm := func(s string) string {
		var b strings.Builder
		for _, r := range s {
			if r >= '0' && r <= '9' {
				b.WriteRune(r)
			}
		}
		return b.String()
	}
	c, n := norm(cell), norm(needle)
	return c != "" && n != "" && strings.HasSuffix(c, n)
}

func sortRangesByCheckIn(ranges []DateRange) {
	for i := 1; i < len(ranges); i++ {
		for j := i; j > 0 && ranges[j].CheckIn.Before(ranges[j-1].CheckIn); j-- {
			ranges[j], ranges[j-1] = ranges[j-1], ranges[j]
		}
	}
}

// totalPrice multiplies a per-night rate by nights and rooms, passing the
// raw cell through when it does not parse as a number.
func totalPrice(perNight string, nights, numRooms int) string {
	clean := strings.NewReplacer(",", "", "Nu.", "", "$", "").Replace(perNight)
	rate, err := strconv.ParseFloat(strings.TrimSpace(clean), 64)
	if err != nil {
		return perNight
	}
	if nights <= 0 {
		nights = 1
	}
	total := rate * float64(nights) * float64(numRooms)
	return strconv.FormatFloat(total, 'f', -1, 64)
}
