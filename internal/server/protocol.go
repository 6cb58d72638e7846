// Package server defines the JSON wire protocol spoken over each WebSocket
// connection: the tagged inbound event union and the outbound event payloads.
package server

import (
	"encoding/json"
	"log"

	"github.com/parleychat/parley/internal/store"
)

// Inbound event types.
const (
	eventLogin   = "login"
	eventCreate  = "create_room"
	eventJoin    = "join_room"
	eventLeave   = "leave_room"
	eventMessage = "message"
	eventDM      = "dm"
	eventTyping  = "typing"
	eventHistory = "history"
)

// clientEvent is the tagged union for everything a client may send. Only
// the fields relevant to the given Type are populated; unknown types are
// dropped by the router.
type clientEvent struct {
	Type     string `json:"type"`
	Username string `json:"username,omitempty"`
	Room     string `json:"room,omitempty"`
	To       string `json:"to,omitempty"`
	Text     string `json:"text,omitempty"`
	IsTyping bool   `json:"isTyping,omitempty"`
}

// userEntry is one row of a presence listing.
type userEntry struct {
	Username string `json:"username"`
	Room     string `json:"room,omitempty"`
}

type welcomeEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type loginSuccessEvent struct {
	Type     string      `json:"type"`
	Username string      `json:"username"`
	Users    []userEntry `json:"users"`
	Rooms    []string    `json:"rooms"`
	Room     string      `json:"room"`
}

type historyEvent struct {
	Type     string          `json:"type"`
	Room     string          `json:"room"`
	Messages []store.Message `json:"messages"`
}

type presenceEvent struct {
	Type  string      `json:"type"`
	Users []userEntry `json:"users"`
}

type roomListEvent struct {
	Type  string   `json:"type"`
	Rooms []string `json:"rooms"`
}

type notificationEvent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type roomMessageEvent struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	Username string `json:"username"`
	Text     string `json:"text"`
	Ts       int64  `json:"ts"`
}

type dmMessageEvent struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

type typingEvent struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	Username string `json:"username"`
	IsTyping bool   `json:"isTyping"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func welcomePayload(message string) []byte {
	return encodeEvent(welcomeEvent{Type: "welcome", Message: message})
}

func loginSuccessPayload(username string, users []userEntry, rooms []string, room string) []byte {
	return encodeEvent(loginSuccessEvent{
		Type:     "login_success",
		Username: username,
		Users:    users,
		Rooms:    rooms,
		Room:     room,
	})
}

func historyPayload(room string, messages []store.Message) []byte {
	if messages == nil {
		messages = []store.Message{}
	}
	return encodeEvent(historyEvent{Type: "history", Room: room, Messages: messages})
}

func presencePayload(users []userEntry) []byte {
	if users == nil {
		users = []userEntry{}
	}
	return encodeEvent(presenceEvent{Type: "presence", Users: users})
}

func roomListPayload(rooms []string) []byte {
	if rooms == nil {
		rooms = []string{}
	}
	return encodeEvent(roomListEvent{Type: "room_list", Rooms: rooms})
}

func notificationPayload(text string) []byte {
	return encodeEvent(notificationEvent{Type: "notification", Text: text})
}

func roomMessagePayload(room, username, text string, ts int64) []byte {
	return encodeEvent(roomMessageEvent{
		Type:     "room_message",
		Room:     room,
		Username: username,
		Text:     text,
		Ts:       ts,
	})
}

func dmMessagePayload(from, to, text string, ts int64) []byte {
	return encodeEvent(dmMessageEvent{Type: "dm_message", From: from, To: to, Text: text, Ts: ts})
}

func typingPayload(room, username string, isTyping bool) []byte {
	return encodeEvent(typingEvent{Type: "typing", Room: room, Username: username, IsTyping: isTyping})
}

func errorPayload(message string) []byte {
	return encodeEvent(errorEvent{Type: "error", Message: message})
}

func encodeEvent(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Every payload type above marshals cleanly; this only fires on a
		// programming error.
		log.Printf("Error encoding outbound event: %v", err)
		return nil
	}
	return data
}
