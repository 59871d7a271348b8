package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/resend/resend-go/v2"

	"github.com/tsheringpenjor/concierge/internal/booking"
)

// ResendNotifier emails staff via the Resend API when a new booking lands
// in the pending sheet.
type ResendNotifier struct {
	client      *resend.Client
	fromAddress string
	recipient   string
}

// NewResendNotifier creates an email notifier. Returns nil when no API key
// is configured; callers treat a nil notifier as disabled.
func NewResendNotifier(apiKey, from, recipient string) *ResendNotifier {
	if apiKey == "" {
		return nil
	}
	return &ResendNotifier{
		client:      resend.NewClient(apiKey),
		fromAddress: from,
		recipient:   recipient,
	}
}

// IsConfigured returns true if the notifier can actually send.
func (r *ResendNotifier) IsConfigured() bool {
	return r != nil && r.client != nil && r.fromAddress != "" && r.recipient != ""
}

// NotifyNewBooking emails staff about a booking awaiting review.
func (r *ResendNotifier) NotifyNewBooking(_ context.Context, b booking.Booking) error {
	if !r.IsConfigured() {
		return nil
	}

	subject := fmt.Sprintf("New Booking Pending Approval: %s", b.ID)
	params := &resend.SendEmailRequest{
		From:    r.fromAddress,
		To:      []string{r.recipient},
		Subject: subject,
		Html:    r.formatEmailHTML(b),
	}

	if _, err := r.client.Emails.Send(params); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}

	fmt.Printf("Email notification sent to %s for booking %s\n", r.recipient, b.ID)
	return nil
}

// Name returns the notifier name.
func (r *ResendNotifier) Name() string {
	return "resend"
}

func (r *ResendNotifier) formatEmailHTML(b booking.Booking) string {
	stay := fmt.Sprintf("%s to %s (%d nights)",
		b.CheckIn.Format("Monday, January 2, 2006"),
		b.CheckOut.Format("Monday, January 2, 2006"),
		b.Range().Nights())

	room := b.RoomName
	if room == "" {
		room = b.RoomType
	}

	priceHTML := ""
	if b.Price != "" {
		priceHTML = fmt.Sprintf(`<p style="margin: 8px 0;"><strong>Price:</strong> %s</p>`, b.Price)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
  <div style="background-color: white; border-radius: 8px; padding: 24px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
    <div style="margin-bottom: 16px;">
      <span style="background-color: #28a745; color: white; padding: 4px 12px; border-radius: 4px; font-size: 12px; font-weight: 600;">Pending Booking</span>
    </div>

    <h2 style="margin: 0 0 16px 0; color: #333;">%s</h2>

    <div style="background: #f8f9fa; padding: 16px; border-radius: 8px; margin: 16px 0; border-left: 4px solid #007bff;">
      <p style="margin: 8px 0;"><strong>Guest:</strong> %s (%s)</p>
      <p style="margin: 8px 0;"><strong>Stay:</strong> %s</p>
      <p style="margin: 8px 0;"><strong>Room:</strong> %s</p>
      <p style="margin: 8px 0;"><strong>Rooms / Guests:</strong> %d / %d</p>
      %s
    </div>

    <p style="margin: 16px 0;">Review it on the dashboard to approve or reject.</p>

    <hr style="margin-top: 32px; border: none; border-top: 1px solid #eee;">
    <p style="color: #999; font-size: 12px; margin-top: 16px;">
      Concierge - Hotel Booking Assistant<br>
      <span style="color: #ccc;">Sent at %s</span>
    </p>
  </div>
</body>
</html>`,
		b.ID,
		b.CustomerName,
		b.Phone,
		stay,
		room,
		b.NumRooms,
		b.Guests,
		priceHTML,
		time.Now().Format("Jan 2, 2006 3:04 PM"),
	)
}
