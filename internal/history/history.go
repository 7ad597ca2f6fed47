// Package history keeps the exchanges of the current session per chat.
// Sessions live in memory only; the durable record is the chat log.
package history

import (
	"sync"
	"time"
)

// DefaultLimit is the number of exchanges kept per chat when none is given.
const DefaultLimit = 20

type Exchange struct {
	Utterance string
	Response  string
	At        time.Time
}

type Manager struct {
	limit int

	mu       sync.RWMutex
	sessions map[int64][]Exchange
}

// NewManager keeps at most limit exchanges per chat, dropping the oldest.
func NewManager(limit int) *Manager {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Manager{limit: limit, sessions: make(map[int64][]Exchange)}
}

// Reset ends the session of a chat.
func (m *Manager) Reset(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

func (m *Manager) Append(chatID int64, ex Exchange) {
	if ex.At.IsZero() {
		ex.At = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	es := append(m.sessions[chatID], ex)
	if over := len(es) - m.limit; over > 0 {
		es = append([]Exchange(nil), es[over:]...)
	}
	m.sessions[chatID] = es
}

// Get returns a copy of the session, oldest first.
func (m *Manager) Get(chatID int64) []Exchange {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Exchange(nil), m.sessions[chatID]...)
}

func (m *Manager) Len(chatID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions[chatID])
}
