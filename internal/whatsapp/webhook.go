package whatsapp

import "strings"

// Webhook payload shapes for the WhatsApp Business Platform. Only text
// messages are handled; media and status updates are ignored.

type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	ID      string          `json:"id"`
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Contacts         []WebhookContact `json:"contacts"`
	Messages         []WebhookMessage `json:"messages"`
}

type WebhookContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

type WebhookMessage struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
}

// InboundMessage is a normalized guest text pulled out of a webhook.
type InboundMessage struct {
	MessageID   string
	Phone       string
	ProfileName string
	Text        string
}

// ExtractMessages pulls text messages out of a webhook delivery. Payloads
// for other Meta products and non-text message types yield nothing.
func (p WebhookPayload) ExtractMessages() []InboundMessage {
	if p.Object != "whatsapp_business_account" {
		return nil
	}

	var out []InboundMessage
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string)
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" {
					continue
				}
				text := strings.TrimSpace(msg.Text.Body)
				if text == "" {
					continue
				}
				out = append(out, InboundMessage{
					MessageID:   msg.ID,
					Phone:       msg.From,
					ProfileName: names[msg.From],
					Text:        text,
				})
			}
		}
	}
	return out
}
