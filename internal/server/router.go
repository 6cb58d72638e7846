// Package server implements the event router: every inbound client payload
// is validated, dispatched by kind, applied to the session registry and
// room directory, persisted, and fanned out to its recipients.
package server

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/parleychat/parley/internal/store"
)

// route dispatches one inbound payload. It runs on the hub's event loop,
// so handlers never interleave. Malformed payloads and unknown event kinds
// are dropped without a reply.
func (h *Hub) route(client *Client, payload []byte) {
	var evt clientEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return
	}

	h.mutex.RLock()
	session := h.registry.lookup(client)
	h.mutex.RUnlock()
	if session == nil {
		return
	}

	switch evt.Type {
	case eventLogin:
		h.handleLogin(session, evt)
	case eventCreate:
		if h.requireIdentity(session) {
			h.handleCreateRoom(session, evt)
		}
	case eventJoin:
		if h.requireIdentity(session) {
			h.handleJoinRoom(session, evt)
		}
	case eventLeave:
		if h.requireIdentity(session) {
			h.handleLeaveRoom(session)
		}
	case eventMessage:
		if h.requireIdentity(session) {
			h.handleMessage(session, evt)
		}
	case eventDM:
		if h.requireIdentity(session) {
			h.handleDM(session, evt)
		}
	case eventTyping:
		if h.requireIdentity(session) {
			h.handleTyping(session, evt)
		}
	case eventHistory:
		if h.requireIdentity(session) {
			h.handleHistory(session, evt)
		}
	default:
		return
	}
	metricEvents.WithLabelValues(evt.Type).Inc()
}

// requireIdentity rejects any action other than login from a session that
// has not logged in yet. The error reply is the only effect.
func (h *Hub) requireIdentity(session *Session) bool {
	if session.identified() {
		return true
	}
	h.safeSend(session.client, errorPayload("not logged in"))
	return false
}

// handleLogin sets the session identity and places it in the default room.
// Re-login is idempotent: the session still ends up with exactly one
// membership.
func (h *Hub) handleLogin(session *Session, evt clientEvent) {
	cfg := currentConfig()
	lobby := cfg.DefaultRoom

	h.mutex.Lock()
	prevRoom := session.room
	name := h.registry.setIdentity(session, evt.Username)
	h.rooms.join(lobby, session)
	users := h.registry.snapshot()
	roomNames := h.rooms.names()
	h.mutex.Unlock()

	if err := h.store.EnsureRoom(h.ctx, lobby); err != nil {
		h.storeError("ensure room", err)
	}

	h.safeSend(session.client, loginSuccessPayload(name, users, roomNames, lobby))
	h.sendHistory(session, lobby, cfg.History.LoginReplay)
	if prevRoom != "" && prevRoom != lobby {
		h.notifyRoom(prevRoom, notificationPayload(name+" left "+prevRoom), nil)
	}
	h.notifyRoom(lobby, notificationPayload(name+" joined "+lobby), nil)
	h.broadcastPresence()
}

func (h *Hub) handleCreateRoom(session *Session, evt clientEvent) {
	room := strings.TrimSpace(evt.Room)
	if room == "" {
		h.safeSend(session.client, errorPayload("room required"))
		return
	}

	h.mutex.Lock()
	h.rooms.ensure(room)
	roomNames := h.rooms.names()
	h.mutex.Unlock()

	if err := h.store.EnsureRoom(h.ctx, room); err != nil {
		h.storeError("ensure room", err)
	}

	h.broadcastAll(roomListPayload(roomNames))
}

func (h *Hub) handleJoinRoom(session *Session, evt clientEvent) {
	room := strings.TrimSpace(evt.Room)
	if room == "" {
		h.safeSend(session.client, errorPayload("room required"))
		return
	}
	cfg := currentConfig()

	h.mutex.Lock()
	prevRoom := session.room
	name := session.name
	h.rooms.join(room, session)
	roomNames := h.rooms.names()
	h.mutex.Unlock()

	if err := h.store.EnsureRoom(h.ctx, room); err != nil {
		h.storeError("ensure room", err)
	}

	if prevRoom != "" && prevRoom != room {
		h.notifyRoom(prevRoom, notificationPayload(name+" left "+prevRoom), nil)
	}
	h.sendHistory(session, room, cfg.History.LoginReplay)
	h.notifyRoom(room, notificationPayload(name+" joined "+room), nil)
	h.broadcastAll(roomListPayload(roomNames))
	h.broadcastPresence()
}

func (h *Hub) handleLeaveRoom(session *Session) {
	h.mutex.Lock()
	room := session.room
	name := session.name
	if room != "" {
		h.rooms.leave(room, session)
	}
	h.mutex.Unlock()

	if room != "" {
		h.notifyRoom(room, notificationPayload(name+" left "+room), nil)
	}
	h.broadcastPresence()
}

// handleMessage appends a room message to durable history and fans it out
// to the room's membership, read at send time. A store failure is logged
// and delivery proceeds; the in-memory effect is never rolled back.
func (h *Hub) handleMessage(session *Session, evt clientEvent) {
	room := strings.TrimSpace(evt.Room)
	if room == "" {
		room = session.room
	}
	if room == "" {
		h.safeSend(session.client, errorPayload("not in a room"))
		return
	}

	ts := nowMillis()
	msg := store.Message{Username: session.name, Text: evt.Text, Ts: ts}
	if err := h.store.AppendRoom(h.ctx, room, msg); err != nil {
		h.storeError("append room message", err)
	}
	metricRoomMessages.Inc()

	h.notifyRoom(room, roomMessagePayload(room, session.name, evt.Text, ts), nil)
}

// handleDM resolves the recipient by display name, first match winning
// when names collide. The message persists under the canonical pair key
// whether or not the recipient is online, and is always echoed to the
// sender.
func (h *Hub) handleDM(session *Session, evt clientEvent) {
	to := strings.TrimSpace(evt.To)
	if to == "" {
		h.safeSend(session.client, errorPayload("recipient required"))
		return
	}

	ts := nowMillis()
	msg := store.Message{Username: session.name, Text: evt.Text, Ts: ts}
	if err := h.store.AppendDM(h.ctx, session.name, to, msg); err != nil {
		h.storeError("append dm", err)
	}
	metricDirectMessages.Inc()

	h.mutex.RLock()
	target := h.registry.findByName(to)
	h.mutex.RUnlock()

	payload := dmMessagePayload(session.name, to, evt.Text, ts)
	if target != nil && target != session {
		h.safeSend(target.client, payload)
	}
	h.safeSend(session.client, payload)
}

func (h *Hub) handleTyping(session *Session, evt clientEvent) {
	h.mutex.Lock()
	session.typing = evt.IsTyping
	room := session.room
	h.mutex.Unlock()

	if room == "" {
		return
	}
	h.notifyRoom(room, typingPayload(room, session.name, evt.IsTyping), session)
}

// handleHistory replies with a room's full stored log, untruncated.
func (h *Hub) handleHistory(session *Session, evt clientEvent) {
	room := strings.TrimSpace(evt.Room)
	if room == "" {
		h.safeSend(session.client, errorPayload("room required"))
		return
	}
	h.sendHistory(session, room, 0)
}

// sendHistory replies with up to limit stored messages for the room; a
// limit of zero means the full log.
func (h *Hub) sendHistory(session *Session, room string, limit int) {
	messages, err := h.store.RoomHistory(h.ctx, room, limit)
	if err != nil {
		h.storeError("read history", err)
		messages = nil
	}
	h.safeSend(session.client, historyPayload(room, messages))
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
