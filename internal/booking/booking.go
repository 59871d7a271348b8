package booking

import (
	"fmt"
	"time"
)

// Status tracks where a booking sits in the approval flow.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

// PendingSheet is where new bookings wait for staff review. Approved
// bookings migrate into per-month archive sheets.
const PendingSheet = "Pending Bookings"

// PendingHeaders is the column schema for the pending sheet. Archive sheets
// use the same schema with "Approved At" in place of "Created At".
var PendingHeaders = []string{
	"Booking ID", "Customer Name", "Phone", "Check-in", "Check-out",
	"Room Type", "Room Name", "Room ID", "Num Rooms", "Guests",
	"Price", "Status", "Created At", "Notes",
}

// ArchiveHeaders is the column schema for monthly archive sheets.
var ArchiveHeaders = []string{
	"Booking ID", "Customer Name", "Phone", "Check-in", "Check-out",
	"Room Type", "Room Name", "Room ID", "Num Rooms", "Guests",
	"Price", "Status", "Approved At", "Notes",
}

// Booking is one reservation request.
type Booking struct {
	ID           string    `json:"booking_id"`
	CustomerName string    `json:"customer_name"`
	Phone        string    `json:"phone"`
	CheckIn      time.Time `json:"check_in"`
	CheckOut     time.Time `json:"check_out"`
	RoomType     string    `json:"room_type"`
	RoomName     string    `json:"room_name"`
	RoomID       string    `json:"room_id"`
	NumRooms     int       `json:"num_rooms"`
	Guests       int       `json:"guests"`
	Price        string    `json:"price"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	Notes        string    `json:"notes"`
}

// Range returns the booking's stay as a DateRange.
func (b Booking) Range() DateRange {
	return DateRange{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

// NewBookingID derives a short human-quotable ID from the current time.
// Collisions require two bookings in the same millisecond modulo window,
// which staff volume makes implausible.
func NewBookingID(now time.Time) string {
	return fmt.Sprintf("BK%d", now.UnixMilli()%1000000)
}

// Row renders the booking as a pending sheet row.
func (b Booking) Row() []string {
	return []string{
		b.ID,
		b.CustomerName,
		b.Phone,
		FormatDate(b.CheckIn),
		FormatDate(b.CheckOut),
		b.RoomType,
		b.RoomName,
		b.RoomID,
		fmt.Sprintf("%d", b.NumRooms),
		fmt.Sprintf("%d", b.Guests),
		b.Price,
		string(b.Status),
		b.CreatedAt.Format("2006-01-02 15:04:05"),
		b.Notes,
	}
}

// ArchiveRow renders the booking as an archive sheet row stamped with the
// approval time.
func (b Booking) ArchiveRow(approvedAt time.Time) []string {
	row := b.Row()
	row[12] = approvedAt.Format("2006-01-02 15:04:05")
	return row
}

// ArchiveSheetName returns the monthly archive sheet a booking belongs to,
// keyed by its check-in month.
func ArchiveSheetName(checkIn time.Time) string {
	return fmt.Sprintf("Bookings %s %d", checkIn.Month().String(), checkIn.Year())
}

// MonthSectionLabel renders the section header row used inside the pending
// sheet, e.g. "January, 2026".
func MonthSectionLabel(t time.Time) string {
	return fmt.Sprintf("%s, %d", t.Month().String(), t.Year())
}

// BookingFromRow parses a sheet row back into a Booking. Rows with fewer
// cells than the schema are padded; unparsable numeric cells become zero.
func BookingFromRow(row []string) (Booking, error) {
	cells := make([]string, len(PendingHeaders))
	copy(cells, row)

	if cells[0] == "" {
		return Booking{}, fmt.Errorf("row has no booking ID")
	}

	checkIn, err := ParseDate(cells[3])
	if err != nil {
		return Booking{}, fmt.Errorf("booking %s: %w", cells[0], err)
	}
	checkOut, err := ParseDate(cells[4])
	if err != nil {
		return Booking{}, fmt.Errorf("booking %s: %w", cells[0], err)
	}

	b := Booking{
		ID:           cells[0],
		CustomerName: cells[1],
		Phone:        cells[2],
		CheckIn:      checkIn,
		CheckOut:     checkOut,
		RoomType:     cells[5],
		RoomName:     cells[6],
		RoomID:       cells[7],
		NumRooms:     atoiOrZero(cells[8]),
		Guests:       atoiOrZero(cells[9]),
		Price:        cells[10],
		Status:       Status(cells[11]),
		Notes:        cells[13],
	}
	if ts, err := time.Parse("2006-01-02 15:04:05", cells[12]); err == nil {
		b.CreatedAt = ts
	}
	if b.NumRooms == 0 {
		b.NumRooms = 1
	}
	return b, nil
}

func atoiOrZero(s string) int {
	n := 0
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0
	}
	return n
}
