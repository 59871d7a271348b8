package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

const (
	// maxHistory bounds how much conversation each session carries into
	// the language model prompt.
	maxHistory = 10

	sweepInterval = time.Hour
)

// Message is one turn of a WhatsApp conversation.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session holds the conversation state for one phone number.
type Session struct {
	Phone       string            `json:"phone"`
	ProfileName string            `json:"profile_name,omitempty"`
	History     []Message         `json:"history"`
	Pending     map[string]string `json:"pending,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Manager keeps per-phone sessions in memory and mirrors them to a JSON
// file so conversations survive restarts. Stale sessions are swept hourly.
type Manager struct {
	path string
	ttl  time.Duration

	mu       sync.Mutex
	sessions map[string]*Session

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(path string, ttl time.Duration) *Manager {
	m := &Manager{
		path:     path,
		ttl:      ttl,
		sessions: make(map[string]*Session),
	}
	if err := m.load(); err != nil {
		fmt.Printf("Warning: could not load sessions from %s: %v\n", path, err)
	}
	return m
}

// Get returns the session for a phone number, creating one if needed.
func (m *Manager) Get(phone string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[phone]
	if !ok || time.Since(s.UpdatedAt) > m.ttl {
		s = &Session{Phone: phone, UpdatedAt: time.Now()}
		m.sessions[phone] = s
	}
	copied := *s
	copied.History = append([]Message(nil), s.History...)
	if s.Pending != nil {
		copied.Pending = make(map[string]string, len(s.Pending))
		for k, v := range s.Pending {
			copied.Pending[k] = v
		}
	}
	return &copied
}

// Append records a conversation turn and persists the session file.
func (m *Manager) Append(phone, role, content string) {
	m.mu.Lock()
	s, ok := m.sessions[phone]
	if !ok || time.Since(s.UpdatedAt) > m.ttl {
		s = &Session{Phone: phone}
		m.sessions[phone] = s
	}
	s.History = append(s.History, Message{Role: role, Content: content, At: time.Now()})
	if len(s.History) > maxHistory {
		s.History = append([]Message(nil), s.History[len(s.History)-maxHistory:]...)
	}
	s.UpdatedAt = time.Now()
	m.mu.Unlock()

	m.persist()
}

// SetProfileName remembers the WhatsApp display name for a phone number.
func (m *Manager) SetProfileName(phone, name string) {
	if name == "" {
		return
	}
	m.mu.Lock()
	if s, ok := m.sessions[phone]; ok {
		s.ProfileName = name
	} else {
		m.sessions[phone] = &Session{Phone: phone, ProfileName: name, UpdatedAt: time.Now()}
	}
	m.mu.Unlock()
	m.persist()
}

// SetPending stashes a key/value on the session, used to carry booking
// details across turns while the guest fills them in.
func (m *Manager) SetPending(phone, key, value string) {
	m.mu.Lock()
	s, ok := m.sessions[phone]
	if !ok {
		s = &Session{Phone: phone}
		m.sessions[phone] = s
	}
	if s.Pending == nil {
		s.Pending = make(map[string]string)
	}
	if value == "" {
		delete(s.Pending, key)
	} else {
		s.Pending[key] = value
	}
	s.UpdatedAt = time.Now()
	m.mu.Unlock()
	m.persist()
}

// ClearPending drops all stashed booking details for a phone number.
func (m *Manager) ClearPending(phone string) {
	m.mu.Lock()
	if s, ok := m.sessions[phone]; ok {
		s.Pending = nil
		s.UpdatedAt = time.Now()
	}
	m.mu.Unlock()
	m.persist()
}

// Start launches the hourly sweep of expired sessions.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := m.Sweep(); n > 0 {
					fmt.Printf("Swept %d expired sessions\n", n)
				}
			}
		}
	}()
}

// Stop halts the sweep loop and flushes the session file.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
	m.persist()
}

// Sweep removes sessions idle past the TTL and returns how many went.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	removed := 0
	for phone, s := range m.sessions {
		if time.Since(s.UpdatedAt) > m.ttl {
			delete(m.sessions, phone)
			removed++
		}
	}
	m.mu.Unlock()
	if removed > 0 {
		m.persist()
	}
	return removed
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var stored map[string]*Session
	if err := json.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("parsing session file: %w", err)
	}

	m.mu.Lock()
	for phone, s := range stored {
		if time.Since(s.UpdatedAt) <= m.ttl {
			m.sessions[phone] = s
		}
	}
	m.mu.Unlock()
	return nil
}

// persist writes the session file atomically via a temp file and rename so
// a crash mid-write never leaves a truncated file.
func (m *Manager) persist() {
	m.mu.Lock()
	data, err := json.MarshalIndent(m.sessions, "", "  ")
	m.mu.Unlock()
	if err != nil {
		fmt.Printf("Warning: could not marshal sessions: %v\n", err)
		return
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		fmt.Printf("Warning: could not write session file: %v\n", err)
		return
	}
	if err := os.Rename(tmp, m.path); err != nil {
		fmt.Printf("Warning: could not replace session file: %v\n", err)
	}
}
