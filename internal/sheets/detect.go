package sheets

import "strings"

// SheetType classifies what a sheet holds so the rest of the system knows
// how to read it.
type SheetType string

const (
	SheetTypeBooking SheetType = "booking"
	SheetTypeHotel   SheetType = "hotel"
	SheetTypeGeneric SheetType = "generic"
)

var bookingNameKeywords = []string{"booking", "reservation", "order"}

var hotelNameKeywords = []string{"hotel", "room", "accommodation", "villa", "suite", "allocation"}

var bookingHeaderKeywords = []string{"booking id", "customer", "check-in", "check-out", "status"}

var hotelHeaderKeywords = []string{"room type", "room name", "price", "available", "booked dates"}

// DetectSheetType classifies a sheet by its title, falling back to header
// inspection when the title is ambiguous.
func DetectSheetType(title string, headers []string) SheetType {
	name := strings.ToLower(title)
	for _, kw := range bookingNameKeywords {
		if strings.Contains(name, kw) {
			return SheetTypeBooking
		}
	}
	for _, kw := range hotelNameKeywords {
		if strings.Contains(name, kw) {
			return SheetTypeHotel
		}
	}

	joined := strings.ToLower(strings.Join(headers, " | "))
	bookingHits := 0
	for _, kw := range bookingHeaderKeywords {
		if strings.Contains(joined, kw) {
			bookingHits++
		}
	}
	hotelHits := 0
	for _, kw := range hotelHeaderKeywords {
		if strings.Contains(joined, kw) {
			hotelHits++
		}
	}
	switch {
	case bookingHits >= 2 && bookingHits >= hotelHits:
		return SheetTypeBooking
	case hotelHits >= 2:
		return SheetTypeHotel
	default:
		return SheetTypeGeneric
	}
}
