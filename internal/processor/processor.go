package processor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tsheringpenjor/concierge/internal/agent"
	"github.com/tsheringpenjor/concierge/internal/booking"
	"github.com/tsheringpenjor/concierge/internal/database"
	"github.com/tsheringpenjor/concierge/internal/notify"
	"github.com/tsheringpenjor/concierge/internal/whatsapp"
)

const defaultWorkerCount = 2

// Replier sends a text back to a guest. Satisfied by *whatsapp.Sender.
type Replier interface {
	SendText(ctx context.Context, phone, text string) error
}

// Processor drains the webhook message queue: each inbound guest message is
// deduplicated, run through the agent, and answered over WhatsApp. New
// bookings raise a staff notification and an email.
type Processor struct {
	db          *database.DB
	agent       *agent.Agent
	replier     Replier
	notifier    *notify.ResendNotifier
	msgChan     <-chan whatsapp.InboundMessage
	workerCount int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	processedCount atomic.Uint64
}

// New creates a message processor.
func New(
	db *database.DB,
	a *agent.Agent,
	replier Replier,
	notifier *notify.ResendNotifier,
	msgChan <-chan whatsapp.InboundMessage,
) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		db:          db,
		agent:       a,
		replier:     replier,
		notifier:    notifier,
		msgChan:     msgChan,
		workerCount: defaultWorkerCount,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing messages from the channel.
func (p *Processor) Start() error {
	fmt.Println("Message processor started")

	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.processLoop()
	}

	return nil
}

// Stop gracefully shuts down the processor.
func (p *Processor) Stop() {
	fmt.Println("Stopping message processor...")
	p.cancel()
	p.wg.Wait()
	fmt.Println("Message processor stopped")
}

// Processed reports how many messages have been handled since startup.
func (p *Processor) Processed() uint64 {
	return p.processedCount.Load()
}

// processLoop continuously reads messages from the channel and processes them.
func (p *Processor) processLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case msg, ok := <-p.msgChan:
			if !ok {
				fmt.Println("Message processor: channel closed")
				return
			}
			if err := p.processMessage(msg); err != nil {
				fmt.Printf("Message processor: error processing message: %v\n", err)
			}
		}
	}
}

// processMessage handles a single inbound guest message.
func (p *Processor) processMessage(msg whatsapp.InboundMessage) error {
	fmt.Printf("Processing message from %s: %s\n", msg.Phone, truncate(msg.Text, 50))

	if msg.MessageID != "" {
		fresh, err := p.db.MarkProcessed(msg.MessageID)
		if err != nil {
			fmt.Printf("Warning: dedup check failed for %s: %v\n", msg.MessageID, err)
		} else if !fresh {
			// Meta redelivered a webhook we already handled.
			return nil
		}
	}

	result, err := p.agent.ProcessMessage(p.ctx, msg.Phone, msg.ProfileName, msg.Text)
	if err != nil {
		p.reply(msg.Phone, "Sorry, something went wrong on our side. Please try again in a moment.")
		return fmt.Errorf("agent failed for %s: %w", msg.Phone, err)
	}

	if result.Reply != "" {
		p.reply(msg.Phone, result.Reply)
	}

	if result.Created != nil {
		p.announceBooking(*result.Created)
	}

	p.processedCount.Add(1)
	return nil
}

func (p *Processor) reply(phone, text string) {
	if p.replier == nil {
		return
	}
	if err := p.replier.SendText(p.ctx, phone, text); err != nil {
		fmt.Printf("Warning: failed to send reply to %s: %v\n", phone, err)
	}
}

// announceBooking records the new pending booking for the dashboard and
// emails staff when email is configured.
func (p *Processor) announceBooking(b booking.Booking) {
	msg := fmt.Sprintf("New booking %s from %s: %s, %s to %s",
		b.ID, b.CustomerName, b.RoomName, b.CheckIn.Format("2006-01-02"), b.CheckOut.Format("2006-01-02"))
	if _, err := p.db.AddNotification(database.NotificationNewBooking, b.ID, msg); err != nil {
		fmt.Printf("Warning: failed to record notification: %v\n", err)
	}

	if p.notifier.IsConfigured() {
		if err := p.notifier.NotifyNewBooking(p.ctx, b); err != nil {
			fmt.Printf("Warning: failed to email staff about %s: %v\n", b.ID, err)
		}
	}
}

// truncate shortens a string to maxLen characters.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
