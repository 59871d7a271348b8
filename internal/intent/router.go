package intent

import "strings"

// Intent is the finite set of guest message classifications.
type Intent string

const (
	IntentGreeting        Intent = "greeting"
	IntentAvailability    Intent = "availability_check"
	IntentBookingRequest  Intent = "booking_request"
	IntentConfirmation    Intent = "booking_confirmation"
	IntentRoomSelection   Intent = "room_selection"
	IntentStatusInquiry   Intent = "status_inquiry"
	IntentCancellation    Intent = "cancellation"
	IntentServiceInquiry  Intent = "service_inquiry"
	IntentGeneralQuestion Intent = "general"
)

// RoutedIntent is the router decision for how a message should be handled.
type RoutedIntent struct {
	Intent     Intent
	Confidence float64
	Reasoning  string
}

// KeywordRouter is a lightweight deterministic intent classifier. It runs
// before the language model so common requests get consistent handling and
// the model only fills in free-form conversation.
type KeywordRouter struct{}

func NewKeywordRouter() *KeywordRouter {
	return &KeywordRouter{}
}

var (
	greetingCues = []string{
		"hello", "hi ", "hey", "good morning", "good afternoon",
		"good evening", "namaste", "kuzuzangpo",
	}
	availabilityCues = []string{
		"check availability", "room availability", "available rooms",
		"show available", "what rooms", "show me rooms", "any rooms",
		"rooms available", "do you have",
	}
	bookingCues = []string{
		"book a", "book the", "want to book", "i want a room",
		"make a booking", "make a reservation", "reserve",
	}
	confirmationCues = []string{
		"yes", "confirm", "proceed", "go ahead", "sounds good",
		"ok", "okay", "sure", "that works",
	}
	statusCues = []string{
		"my booking", "booking status", "status of", "did you get",
		"is my booking", "booking id",
	}
	cancellationCues = []string{"cancel", "call off", "don't want the room", "dont want the room"}
	serviceCues      = []string{
		"what services", "what do you provide", "what do you offer",
		"what do you have", "services do you", "what can you",
	}
	roomTypeWords = []string{
		"twin", "double", "villa", "single", "triple", "family", "suite", "deluxe",
	}
)

// Route classifies one inbound message. recentBot is the assistant's last
// reply, used to tell a bare "yes" confirming a booking summary apart from a
// "yes" answering anything else.
func (r *KeywordRouter) Route(message, recentBot string) RoutedIntent {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if normalized == "" {
		return RoutedIntent{Intent: IntentGeneralQuestion, Confidence: 1, Reasoning: "empty input"}
	}

	lastBot := strings.ToLower(recentBot)

	switch {
	case containsAny(normalized, cancellationCues):
		return RoutedIntent{Intent: IntentCancellation, Confidence: 0.85, Reasoning: "contains cancellation cues"}

	case containsAny(normalized, statusCues) || hasBookingID(message):
		return RoutedIntent{Intent: IntentStatusInquiry, Confidence: 0.8, Reasoning: "asks about an existing booking"}

	case containsAny(normalized, serviceCues) &&
		!containsAny(normalized, []string{"show", "available", "list"}):
		return RoutedIntent{Intent: IntentServiceInquiry, Confidence: 0.75, Reasoning: "asks what the hotel offers"}
	}

	isConfirmation := isShortAffirmative(normalized) &&
		strings.Contains(lastBot, "confirm")
	if isConfirmation {
		return RoutedIntent{Intent: IntentConfirmation, Confidence: 0.85, Reasoning: "affirmative reply to a booking summary"}
	}

	if isRoomChoice(normalized, lastBot) {
		return RoutedIntent{Intent: IntentRoomSelection, Confidence: 0.7, Reasoning: "picks a room from the offered list"}
	}

	hasAvailability := containsAny(normalized, availabilityCues)
	hasBooking := containsAny(normalized, bookingCues)

	// "I want to book a room on the 25th" without a concrete room type is a
	// guest exploring dates, not committing.
	if hasBooking && !hasAvailability {
		if !containsAny(normalized, roomTypeWords) {
			hasAvailability = true
			hasBooking = false
		}
	}

	switch {
	case hasAvailability:
		return RoutedIntent{Intent: IntentAvailability, Confidence: 0.8, Reasoning: "asks what rooms are free"}
	case hasBooking:
		return RoutedIntent{Intent: IntentBookingRequest, Confidence: 0.8, Reasoning: "asks to book a specific room"}
	case containsAny(normalized, greetingCues) && len(normalized) < 40:
		return RoutedIntent{Intent: IntentGreeting, Confidence: 0.75, Reasoning: "short greeting"}
	default:
		return RoutedIntent{Intent: IntentGeneralQuestion, Confidence: 0.6, Reasoning: "no strong booking cues"}
	}
}

func isShortAffirmative(text string) bool {
	words := strings.Fields(text)
	if len(words) > 4 {
		return false
	}
	return containsAny(text, confirmationCues)
}

// isRoomChoice spots a reply that names a room type or picks an option
// number right after the assistant listed rooms.
func isRoomChoice(text, lastBot string) bool {
	if !strings.Contains(lastBot, "room") {
		return false
	}
	if containsAny(text, roomTypeWords) && len(strings.Fields(text)) <= 6 {
		return true
	}
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= 2 {
		for _, r := range trimmed {
			if r < '0' || r > '9' {
				return false
			}
		}
		return trimmed != ""
	}
	return false
}

func hasBookingID(message string) bool {
	upper := strings.ToUpper(message)
	idx := strings.Index(upper, "BK")
	if idx < 0 || idx+2 >= len(upper) {
		return false
	}
	digits := 0
	for _, r := range upper[idx+2:] {
		if r < '0' || r > '9' {
			break
		}
		digits++
	}
	return digits >= 3
}

func containsAny(text string, values []string) bool {
	for _, v := range values {
		if strings.Contains(text, v) {
			return true
		}
	}
	return false
}
