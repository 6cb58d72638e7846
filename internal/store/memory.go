package store

import (
	"context"
	"sync"
)

// Memory is the in-process Store backend. It keeps every log in maps
// guarded by a single RWMutex and returns defensive copies so callers can
// never mutate a log from outside.
type Memory struct {
	mu    sync.RWMutex
	cap   int
	rooms map[string][]Message
	order []string
	dms   map[string][]Message
}

// NewMemory creates an empty in-memory store with the given retention cap
// per log. A cap of zero or less means unbounded.
func NewMemory(retention int) *Memory {
	return &Memory{
		cap:   retention,
		rooms: make(map[string][]Message),
		dms:   make(map[string][]Message),
	}
}

func (m *Memory) EnsureRoom(_ context.Context, room string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureRoomLocked(room)
	return nil
}

func (m *Memory) ensureRoomLocked(room string) {
	if _, ok := m.rooms[room]; !ok {
		m.rooms[room] = nil
		m.order = append(m.order, room)
	}
}

func (m *Memory) Rooms(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out, nil
}

func (m *Memory) AppendRoom(_ context.Context, room string, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensureRoomLocked(room)
	m.rooms[room] = appendCapped(m.rooms[room], msg, m.cap)
	return nil
}

func (m *Memory) RoomHistory(_ context.Context, room string, limit int) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return tail(m.rooms[room], limit), nil
}

func (m *Memory) AppendDM(_ context.Context, a, b string, msg Message) error {
	key := DMKey(a, b)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dms[key] = appendCapped(m.dms[key], msg, m.cap)
	return nil
}

func (m *Memory) DMHistory(_ context.Context, a, b string) ([]Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return tail(m.dms[DMKey(a, b)], 0), nil
}

func (m *Memory) Close() error { return nil }

func appendCapped(log []Message, msg Message, cap int) []Message {
	log = append(log, msg)
	if cap > 0 && len(log) > cap {
		log = log[len(log)-cap:]
	}
	return log
}

// tail copies the newest limit entries, or the whole log when limit <= 0.
func tail(log []Message, limit int) []Message {
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]Message, len(log))
	copy(out, log)
	return out
}
