// Package store persists chat history as bounded per-key message logs.
//
// Each room and each direct-message pair maps to one log. Logs are
// append-only with FIFO retention: once a log reaches the configured cap,
// appending drops the oldest entry. Three backends implement the same
// contract: an in-memory store, an embedded SQLite database, and Redis.
package store

import (
	"context"
	"strings"
)

// Message is a single stored chat message. The JSON shape matches the wire
// format sent to clients inside history payloads.
type Message struct {
	Username string `json:"username"`
	Text     string `json:"text"`
	Ts       int64  `json:"ts"`
}

// Store is the durable history log consumed by the routing hub and the
// read-only query endpoints. Implementations must be safe for concurrent
// use; the hub serializes writes through its event loop, but HTTP readers
// call History methods from other goroutines.
type Store interface {
	// EnsureRoom records a room key so it shows up in Rooms even while
	// its log is empty. Idempotent.
	EnsureRoom(ctx context.Context, room string) error

	// Rooms lists every known room key, including empty ones.
	Rooms(ctx context.Context) ([]string, error)

	// AppendRoom appends one message to a room log, applying retention.
	AppendRoom(ctx context.Context, room string, msg Message) error

	// RoomHistory returns a room's log in append order. A positive limit
	// returns only the newest limit entries; limit <= 0 returns the full
	// log.
	RoomHistory(ctx context.Context, room string, limit int) ([]Message, error)

	// AppendDM appends one message to the log of the (a, b) participant
	// pair, applying retention. The pair is canonicalized, so the call
	// direction does not matter.
	AppendDM(ctx context.Context, a, b string, msg Message) error

	// DMHistory returns the full log for the (a, b) pair in append order.
	DMHistory(ctx context.Context, a, b string) ([]Message, error)

	Close() error
}

// DMKey canonicalizes a direct-message participant pair into a single log
// key. Both participants resolve to the same key regardless of direction.
func DMKey(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "|" + b
}
