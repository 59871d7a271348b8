package session

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sessions.json")
	return NewManager(path, 48*time.Hour)
}

func TestAppendAndGet(t *testing.T) {
	m := newTestManager(t)

	m.Append("97517111222", "user", "hello")
	m.Append("97517111222", "assistant", "hi there")

	s := m.Get("97517111222")
	require.Len(t, s.History, 2)
	assert.Equal(t, "user", s.History[0].Role)
	assert.Equal(t, "hi there", s.History[1].Content)
}

func TestHistoryCapped(t *testing.T) {
	m := newTestManager(t)

	for i := 0; i < 15; i++ {
		m.Append("97517111222", "user", "msg")
	}
	s := m.Get("97517111222")
	assert.Len(t, s.History, maxHistory)
}

func TestPendingDetails(t *testing.T) {
	m := newTestManager(t)

	m.SetPending("97517111222", "check_in", "2026-01-25")
	m.SetPending("97517111222", "room_type", "Twin Room")

	s := m.Get("97517111222")
	assert.Equal(t, "2026-01-25", s.Pending["check_in"])

	m.SetPending("97517111222", "check_in", "")
	s = m.Get("97517111222")
	assert.NotContains(t, s.Pending, "check_in")

	m.ClearPending("97517111222")
	s = m.Get("97517111222")
	assert.Empty(t, s.Pending)
}

func TestPersistAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	m1 := NewManager(path, 48*time.Hour)
	m1.SetProfileName("97517111222", "Tashi")
	m1.Append("97517111222", "user", "hello")

	m2 := NewManager(path, 48*time.Hour)
	s := m2.Get("97517111222")
	assert.Equal(t, "Tashi", s.ProfileName)
	require.Len(t, s.History, 1)
	assert.Equal(t, "hello", s.History[0].Content)
}

func TestExpiredSessionsDroppedOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")

	m1 := NewManager(path, 48*time.Hour)
	m1.Append("97517111222", "user", "hello")

	// Reload with a zero-tolerance TTL: everything on disk is stale.
	m2 := NewManager(path, time.Nanosecond)
	s := m2.Get("97517111222")
	assert.Empty(t, s.History)
}

func TestSweep(t *testing.T) {
	m := newTestManager(t)
	m.Append("97517111222", "user", "hello")
	m.Append("97517333444", "user", "hi")

	// Age one session past the TTL by hand.
	m.mu.Lock()
	m.sessions["97517111222"].UpdatedAt = time.Now().Add(-72 * time.Hour)
	m.mu.Unlock()

	assert.Equal(t, 1, m.Sweep())
	assert.Empty(t, m.Get("97517111222").History)
	assert.Len(t, m.Get("97517333444").History, 1)
}

func TestGetReturnsCopy(t *testing.T) {
	m := newTestManager(t)
	m.Append("97517111222", "user", "hello")

	s := m.Get("97517111222")
	s.History[0].Content = "mutated"
	s.Pending = map[string]string{"x": "y"}

	fresh := m.Get("97517111222")
	assert.Equal(t, "hello", fresh.History[0].Content)
	assert.Empty(t, fresh.Pending)
}
