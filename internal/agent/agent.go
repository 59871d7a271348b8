package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/tsheringpenjor/concierge/internal/booking"
	"github.com/tsheringpenjor/concierge/internal/intent"
	"github.com/tsheringpenjor/concierge/internal/session"
)

// Pending-detail keys stashed on the session while a guest fills in a
// booking across several messages.
const (
	pendingCheckIn  = "check_in"
	pendingCheckOut = "check_out"
	pendingRoomType = "room_type"
	pendingNumRooms = "num_rooms"
	pendingGuests   = "guests"
)

const systemPrompt = `You are the reservation assistant for a small hotel, chatting with guests over WhatsApp.
Answer questions about the hotel briefly and warmly. Never invent room types, prices or availability.
If the guest wants to book or asks about availability, tell them to share their dates and room preference.
Keep replies under three short sentences.`

// Result is the outcome of handling one guest message.
type Result struct {
	Reply   string
	Created *booking.Booking
}

// Agent turns inbound guest messages into replies and booking actions. The
// deterministic router and date grammar handle the booking flow; the
// language model only answers free-form questions.
type Agent struct {
	router    *intent.KeywordRouter
	extractor *intent.DateExtractor
	sessions  *session.Manager
	checker   *booking.Checker
	manager   *booking.Manager
	index     *RoomIndex
	llm       *LLM
}

func New(sessions *session.Manager, checker *booking.Checker, manager *booking.Manager, index *RoomIndex, llm *LLM) *Agent {
	return &Agent{
		router:    intent.NewKeywordRouter(),
		extractor: intent.NewDateExtractor(),
		sessions:  sessions,
		checker:   checker,
		manager:   manager,
		index:     index,
		llm:       llm,
	}
}

// ProcessMessage handles one guest message end to end.
func (a *Agent) ProcessMessage(ctx context.Context, phone, profileName, text string) (Result, error) {
	if profileName != "" {
		a.sessions.SetProfileName(phone, profileName)
	}
	sess := a.sessions.Get(phone)

	routed := a.router.Route(text, lastAssistantReply(sess))
	extracted := a.extractor.Extract(text, recentGuestMessages(sess))
	a.stashExtraction(phone, text, extracted)

	var res Result
	var err error
	switch routed.Intent {
	case intent.IntentGreeting:
		res.Reply = a.greet(sess)
	case intent.IntentServiceInquiry:
		res.Reply, err = a.describeServices(ctx)
	case intent.IntentAvailability:
		res.Reply, err = a.checkAvailability(ctx, phone)
	case intent.IntentBookingRequest, intent.IntentRoomSelection:
		res.Reply, err = a.buildBookingSummary(ctx, phone, text)
	case intent.IntentConfirmation:
		res, err = a.confirmBooking(ctx, phone)
	case intent.IntentStatusInquiry:
		res.Reply, err = a.lookupStatus(ctx, phone, text)
	case intent.IntentCancellation:
		a.sessions.ClearPending(phone)
		res.Reply = "No problem, I've cleared that request. Let me know if you'd like to look at other dates."
	default:
		res.Reply = a.freeform(ctx, sess, text)
	}
	if err != nil {
		return Result{}, err
	}

	a.sessions.Append(phone, "user", text)
	a.sessions.Append(phone, "assistant", res.Reply)
	return res, nil
}

func (a *Agent) greet(sess *session.Session) string {
	name := sess.ProfileName
	if name != "" {
		return fmt.Sprintf("Hello %s! Welcome to our hotel. I can check room availability, make a booking, or answer questions about your stay. How can I help?", name)
	}
	return "Hello! Welcome to our hotel. I can check room availability, make a booking, or answer questions about your stay. How can I help?"
}

func (a *Agent) describeServices(ctx context.Context) (string, error) {
	types, err := a.index.Types(ctx)
	if err != nil || len(types) == 0 {
		return "We offer comfortable rooms with daily housekeeping. Share your dates and I'll check what's available.", nil
	}
	return fmt.Sprintf("We offer %s. Share your check-in date and number of nights and I'll check availability.",
		joinNatural(types)), nil
}

func (a *Agent) checkAvailability(ctx context.Context, phone string) (string, error) {
	rng, ok := a.pendingRange(phone)
	if !ok {
		return "Sure! What date would you like to check in, and for how many nights?", nil
	}

	byType, err := a.checker.AvailableByType(ctx, rng)
	if err != nil {
		return "", err
	}
	if len(byType) == 0 {
		return fmt.Sprintf("I'm sorry, we're fully booked from %s to %s. Would different dates work?",
			booking.FormatDate(rng.CheckIn), booking.FormatDate(rng.CheckOut)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's what's available from %s to %s:\n",
		booking.FormatDate(rng.CheckIn), booking.FormatDate(rng.CheckOut))
	for typ, rooms := range byType {
		price := ""
		if rooms[0].Price != "" {
			price = fmt.Sprintf(" at %s per night", rooms[0].Price)
		}
		fmt.Fprintf(&b, "- %s (%d available)%s\n", typ, len(rooms), price)
	}
	b.WriteString("Which room would you like?")
	return b.String(), nil
}

func (a *Agent) buildBookingSummary(ctx context.Context, phone, text string) (string, error) {
	if typ, ok := a.index.MatchType(ctx, text); ok {
		a.sessions.SetPending(phone, pendingRoomType, typ)
	}

	sess := a.sessions.Get(phone)
	roomType := sess.Pending[pendingRoomType]
	rng, hasDates := a.pendingRange(phone)

	switch {
	case roomType == "" && !hasDates:
		return "Happy to help you book! Which room type would you like, and what are your dates?", nil
	case roomType == "":
		return "Which room type would you like?", nil
	case !hasDates:
		return fmt.Sprintf("Great choice on the %s! What date would you like to check in, and for how many nights?", roomType), nil
	}

	free, err := a.checker.AvailableByType(ctx, rng)
	if err != nil {
		return "", err
	}
	rooms := free[roomType]
	if len(rooms) == 0 {
		return fmt.Sprintf("I'm sorry, no %s is available from %s to %s. Would another room type or different dates work?",
			roomType, booking.FormatDate(rng.CheckIn), booking.FormatDate(rng.CheckOut)), nil
	}

	numRooms := intFromPending(sess.Pending[pendingNumRooms], 1)
	guests := intFromPending(sess.Pending[pendingGuests], 0)

	var b strings.Builder
	b.WriteString("Here's your booking summary:\n")
	fmt.Fprintf(&b, "- Room: %s\n", roomType)
	fmt.Fprintf(&b, "- Check-in: %s\n", booking.FormatDate(rng.CheckIn))
	fmt.Fprintf(&b, "- Check-out: %s (%d nights)\n", booking.FormatDate(rng.CheckOut), rng.Nights())
	if numRooms > 1 {
		fmt.Fprintf(&b, "- Rooms: %d\n", numRooms)
	}
	if guests > 0 {
		fmt.Fprintf(&b, "- Guests: %d\n", guests)
	}
	if rooms[0].Price != "" {
		fmt.Fprintf(&b, "- Price: %s per night\n", rooms[0].Price)
	}
	b.WriteString("Reply \"confirm\" and I'll place the booking for staff approval.")
	return b.String(), nil
}

func (a *Agent) confirmBooking(ctx context.Context, phone string) (Result, error) {
	sess := a.sessions.Get(phone)
	roomType := sess.Pending[pendingRoomType]
	rng, hasDates := a.pendingRange(phone)
	if roomType == "" || !hasDates {
		return Result{Reply: "I don't have a booking ready to confirm yet. Which room and dates would you like?"}, nil
	}

	name := sess.ProfileName
	if name == "" {
		name = "WhatsApp guest"
	}

	b, err := a.manager.Create(ctx, booking.Booking{
		CustomerName: name,
		Phone:        phone,
		CheckIn:      rng.CheckIn,
		CheckOut:     rng.CheckOut,
		RoomType:     roomType,
		NumRooms:     intFromPending(sess.Pending[pendingNumRooms], 1),
		Guests:       intFromPending(sess.Pending[pendingGuests], 0),
	})
	if err != nil {
		if errors.Is(err, booking.ErrNoRoomsAvailable) {
			return Result{Reply: fmt.Sprintf("I'm sorry, the %s just became unavailable for those dates. Would different dates work?", roomType)}, nil
		}
		if errors.Is(err, booking.ErrTooManyRooms) {
			return Result{Reply: fmt.Sprintf("We can hold at most %d rooms on one booking. For larger groups please make a second request or message our staff directly.", booking.MaxRoomsPerBooking)}, nil
		}
		if errors.Is(err, booking.ErrOverCapacity) {
			return Result{Reply: fmt.Sprintf("I'm sorry, the %s doesn't sleep that many guests. Would you like more rooms or a larger room type?", roomType)}, nil
		}
		if errors.Is(err, booking.ErrDuplicateBooking) {
			return Result{Reply: "You already have a request for that stay pending review. Our staff will get back to you shortly."}, nil
		}
		if errors.Is(err, booking.ErrCheckInPast) {
			return Result{Reply: "That check-in date has already passed. Could you share a future date?"}, nil
		}
		return Result{}, err
	}

	a.sessions.ClearPending(phone)
	reply := fmt.Sprintf("Your booking is in! Booking ID: %s. Our staff will review it shortly and you'll hear from us once it's confirmed.", b.ID)
	return Result{Reply: reply, Created: &b}, nil
}

var bookingIDPattern = regexp.MustCompile(`(?i)\bBK\d{3,6}\b`)

func (a *Agent) lookupStatus(ctx context.Context, phone, text string) (string, error) {
	key := phone
	if m := bookingIDPattern.FindString(text); m != "" {
		key = strings.ToUpper(m)
	}

	b, err := a.manager.Lookup(ctx, key)
	if err != nil {
		return "I couldn't find a booking under your number. If you have a booking ID like BK123456, send it over and I'll check again.", nil
	}

	switch b.Status {
	case booking.StatusConfirmed:
		return fmt.Sprintf("Booking %s is confirmed: %s, %s to %s. See you then!",
			b.ID, b.RoomName, booking.FormatDate(b.CheckIn), booking.FormatDate(b.CheckOut)), nil
	case booking.StatusRejected:
		reason := b.Notes
		if reason == "" {
			reason = "the dates could not be accommodated"
		}
		return fmt.Sprintf("I'm sorry, booking %s couldn't be confirmed: %s. Would you like to try different dates?", b.ID, reason), nil
	default:
		return fmt.Sprintf("Booking %s is pending staff review: %s to %s. You'll hear from us soon.",
			b.ID, booking.FormatDate(b.CheckIn), booking.FormatDate(b.CheckOut)), nil
	}
}

func (a *Agent) freeform(ctx context.Context, sess *session.Session, text string) string {
	if a.llm == nil {
		return "I can check availability, make a booking, or look up an existing one. How can I help?"
	}

	history := make([]openai.ChatCompletionMessage, 0, len(sess.History))
	for _, m := range sess.History {
		role := openai.ChatMessageRoleUser
		if m.Role == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		history = append(history, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	reply, err := a.llm.Chat(ctx, systemPrompt, history, text)
	if err != nil {
		fmt.Printf("Warning: llm fallback failed: %v\n", err)
		return "I can check availability, make a booking, or look up an existing one. How can I help?"
	}
	return strings.TrimSpace(reply)
}

var (
	numRoomsPattern = regexp.MustCompile(`(\d+)\s*rooms?\b`)
	guestsPattern   = regexp.MustCompile(`(\d+)\s*(?:guests?|people|persons?|adults?)\b`)
)

// stashExtraction persists any dates or counts found in the message so the
// booking flow can pick them up in later turns. A fresh check-in without a
// check-out clears any stale check-out, since the guest has changed plans.
func (a *Agent) stashExtraction(phone, text string, ex intent.Extraction) {
	if in, out, ok := ex.Range(); ok {
		a.sessions.SetPending(phone, pendingCheckIn, booking.FormatDate(in))
		a.sessions.SetPending(phone, pendingCheckOut, booking.FormatDate(out))
	} else if ex.HasCheckIn {
		a.sessions.SetPending(phone, pendingCheckIn, booking.FormatDate(ex.CheckIn))
		a.sessions.SetPending(phone, pendingCheckOut, "")
	}

	lower := strings.ToLower(text)
	if m := numRoomsPattern.FindStringSubmatch(lower); m != nil {
		a.sessions.SetPending(phone, pendingNumRooms, m[1])
	}
	if m := guestsPattern.FindStringSubmatch(lower); m != nil {
		a.sessions.SetPending(phone, pendingGuests, m[1])
	}
}

func (a *Agent) pendingRange(phone string) (booking.DateRange, bool) {
	sess := a.sessions.Get(phone)
	in, err1 := booking.ParseDate(sess.Pending[pendingCheckIn])
	out, err2 := booking.ParseDate(sess.Pending[pendingCheckOut])
	if err1 != nil || err2 != nil {
		return booking.DateRange{}, false
	}
	rng, err := booking.NewDateRange(in, out)
	if err != nil {
		return booking.DateRange{}, false
	}
	return rng, true
}

func lastAssistantReply(sess *session.Session) string {
	for i := len(sess.History) - 1; i >= 0; i-- {
		if sess.History[i].Role == "assistant" {
			return sess.History[i].Content
		}
	}
	return ""
}

func recentGuestMessages(sess *session.Session) []string {
	var out []string
	for _, m := range sess.History {
		if m.Role == "user" {
			out = append(out, m.Content)
		}
	}
	if len(out) > 5 {
		out = out[len(out)-5:]
	}
	return out
}

func intFromPending(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func joinNatural(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	default:
		return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
	}
}
