// Package server tracks live connections as sessions: identity, current
// room, and typing state, owned exclusively by the hub's event loop.
package server

import (
	"fmt"
	"strings"
)

// Session is the per-connection state record. It is created when a client
// registers, mutated only by the hub, and destroyed on disconnect. The
// room directory holds non-owning references to it; those must be cleared
// before the session is removed.
type Session struct {
	id     uint64
	client *Client
	name   string
	room   string
	typing bool
}

func (s *Session) identified() bool { return s.name != "" }

// sessionRegistry is the authoritative map of live connections. Sessions
// keep insertion order so presence snapshots and name lookups are stable,
// and a name index preserves first-match-wins resolution when display
// names collide.
type sessionRegistry struct {
	nextID   uint64
	sessions map[*Client]*Session
	order    []*Session
	byName   map[string][]*Session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[*Client]*Session),
		byName:   make(map[string][]*Session),
	}
}

// register allocates a fresh session for the client: monotonic id, no
// identity, no room.
func (r *sessionRegistry) register(c *Client) *Session {
	r.nextID++
	s := &Session{id: r.nextID, client: c}
	r.sessions[c] = s
	r.order = append(r.order, s)
	return s
}

func (r *sessionRegistry) lookup(c *Client) *Session {
	return r.sessions[c]
}

// setIdentity assigns the session's display name. An empty or whitespace
// name falls back to a generated UserN. Returns the effective name.
func (r *sessionRegistry) setIdentity(s *Session, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = fmt.Sprintf("User%d", s.id)
	}
	if s.name == name {
		return name
	}
	if s.name != "" {
		r.dropNameIndex(s)
	}
	s.name = name
	r.byName[name] = append(r.byName[name], s)
	return name
}

// remove deletes the session. The caller is responsible for clearing room
// directory membership first.
func (r *sessionRegistry) remove(s *Session) {
	if _, ok := r.sessions[s.client]; !ok {
		return
	}
	delete(r.sessions, s.client)
	if s.name != "" {
		r.dropNameIndex(s)
	}
	for i, other := range r.order {
		if other == s {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *sessionRegistry) dropNameIndex(s *Session) {
	indexed := r.byName[s.name]
	for i, other := range indexed {
		if other == s {
			indexed = append(indexed[:i], indexed[i+1:]...)
			break
		}
	}
	if len(indexed) == 0 {
		delete(r.byName, s.name)
	} else {
		r.byName[s.name] = indexed
	}
}

// findByName resolves a display name to the earliest-registered session
// carrying it. Names are not unique; first match wins.
func (r *sessionRegistry) findByName(name string) *Session {
	indexed := r.byName[name]
	if len(indexed) == 0 {
		return nil
	}
	return indexed[0]
}

// snapshot lists {name, room} for every identified session in insertion
// order. Pre-login sessions are invisible.
func (r *sessionRegistry) snapshot() []userEntry {
	out := make([]userEntry, 0, len(r.order))
	for _, s := range r.order {
		if !s.identified() {
			continue
		}
		out = append(out, userEntry{Username: s.name, Room: s.room})
	}
	return out
}

// all returns every session, identified or not, in insertion order.
func (r *sessionRegistry) all() []*Session {
	out := make([]*Session, len(r.order))
	copy(out, r.order)
	return out
}

func (r *sessionRegistry) len() int { return len(r.sessions) }
