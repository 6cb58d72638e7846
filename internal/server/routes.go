// Package server wires HTTP handlers into a ServeMux for the Parley
// application via routing helpers.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/parleychat/parley/internal/store"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, WebSocket endpoint, read-only query API, and
// Prometheus metrics.
func SetupRoutes(hub *Hub, st store.Store) *http.ServeMux {
	api := newQueryAPI(hub, st)

	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.HandleFunc("/ws", NewWebSocketHandler(hub))
	mux.HandleFunc("/api/rooms", api.handleRooms)
	mux.HandleFunc("/api/users", api.handleUsers)
	mux.HandleFunc("/api/history", api.handleHistory)
	mux.HandleFunc("/api/dm", api.handleDMHistory)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
