// Package server exposes HTTP handlers: the WebSocket upgrade endpoint,
// a health check, and the read-only query surface over relay state.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/parleychat/parley/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     checkOrigin,
}

// NewWebSocketHandler returns the upgrade handler for the given hub. It
// upgrades the HTTP connection, creates a Client, and hands it to the hub,
// which starts the read/write pumps.
func NewWebSocketHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		hub.register <- NewClient(conn, hub, r.RemoteAddr)
	}
}

// HealthHandler provides a simple health check endpoint that returns server status.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Parley relay is running!")
}

// queryAPI serves the read-only views: room listing, present users, room
// history, and DM-pair history. Everything is a pure read over the hub
// snapshot or the store; nothing here mutates state.
type queryAPI struct {
	hub   *Hub
	store store.Store
}

func newQueryAPI(hub *Hub, st store.Store) *queryAPI {
	return &queryAPI{hub: hub, store: st}
}

func (q *queryAPI) handleRooms(w http.ResponseWriter, _ *http.Request) {
	rooms := q.hub.roomsSnapshot()
	if rooms == nil {
		rooms = []string{}
	}
	writeJSON(w, map[string]any{"rooms": rooms})
}

func (q *queryAPI) handleUsers(w http.ResponseWriter, _ *http.Request) {
	users := q.hub.usersSnapshot()
	if users == nil {
		users = []userEntry{}
	}
	writeJSON(w, map[string]any{"users": users})
}

func (q *queryAPI) handleHistory(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		http.Error(w, "room query parameter required", http.StatusBadRequest)
		return
	}

	messages, err := q.store.RoomHistory(r.Context(), room, 0)
	if err != nil {
		log.Printf("Error reading history for room %q: %v", room, err)
		http.Error(w, "failed to read history", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, map[string]any{"room": room, "messages": messages})
}

func (q *queryAPI) handleDMHistory(w http.ResponseWriter, r *http.Request) {
	a := r.URL.Query().Get("user1")
	b := r.URL.Query().Get("user2")
	if a == "" || b == "" {
		http.Error(w, "user1 and user2 query parameters required", http.StatusBadRequest)
		return
	}

	messages, err := q.store.DMHistory(r.Context(), a, b)
	if err != nil {
		log.Printf("Error reading dm history for %q/%q: %v", a, b, err)
		http.Error(w, "failed to read history", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, map[string]any{"key": store.DMKey(a, b), "messages": messages})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error writing JSON response: %v", err)
	}
}
