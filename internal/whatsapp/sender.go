package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
)

const (
	graphAPIBase = "https://graph.facebook.com/v18.0"

	// maxMessageLength stays under the WhatsApp text message cap.
	maxMessageLength = 4000

	maxSendAttempts = 3
)

// Sender delivers text messages through the WhatsApp Cloud API.
type Sender struct {
	accessToken   string
	phoneNumberID string
	apiURL        string
	httpClient    *http.Client
}

func NewSender(accessToken, phoneNumberID string) *Sender {
	return &Sender{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		apiURL:        graphAPIBase,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
	}
}

// IsConfigured returns true if credentials are present.
func (s *Sender) IsConfigured() bool {
	return s.accessToken != "" && s.phoneNumberID != ""
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             sendText `json:"text"`
}

type sendText struct {
	Body string `json:"body"`
}

// SendText sends a text message, retrying transient failures with
// exponential backoff. Auth failures are not retried; a 429 honors the
// Retry-After header.
func (s *Sender) SendText(ctx context.Context, phone, text string) error {
	if !s.IsConfigured() {
		return fmt.Errorf("whatsapp sender not configured")
	}

	phone, err := NormalizePhone(phone)
	if err != nil {
		return err
	}
	text = SanitizeMessage(text)
	if text == "" {
		return fmt.Errorf("empty message")
	}

	payload, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             sendText{Body: text},
	})
	if err != nil {
		return fmt.Errorf("marshaling message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", s.apiURL, s.phoneNumberID)
	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		retryable, wait, err := s.attempt(ctx, url, payload)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
		if wait <= 0 {
			wait = time.Duration(1<<(attempt-1)) * time.Second
		}
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("sending whatsapp message after %d attempts: %w", maxSendAttempts, lastErr)
}

func (s *Sender) attempt(ctx context.Context, url string, payload []byte) (retryable bool, wait time.Duration, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return false, 0, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return true, 0, fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, 0, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	err = fmt.Errorf("whatsapp API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return false, 0, err
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && secs > 0 {
			return true, time.Duration(secs) * time.Second, err
		}
		return true, 0, err
	case resp.StatusCode >= 500:
		return true, 0, err
	default:
		return false, 0, err
	}
}

// NormalizePhone validates a destination number and strips formatting. The
// Cloud API wants bare digits with country code, 10 to 15 digits long.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		} else if r != '+' && r != ' ' && r != '-' && r != '(' && r != ')' {
			return "", fmt.Errorf("invalid character %q in phone number", r)
		}
	}
	digits := b.String()
	if len(digits) < 10 || len(digits) > 15 {
		return "", fmt.Errorf("phone number must have 10-15 digits, got %d", len(digits))
	}
	return digits, nil
}

// SanitizeMessage strips control characters and truncates to the API cap.
func SanitizeMessage(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if len(out) > maxMessageLength {
		out = out[:maxMessageLength]
	}
	return out
}
