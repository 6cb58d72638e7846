// Package server coordinates client registration, event routing, and
// connection cleanup for the Parley relay via the Hub type.
package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/parleychat/parley/internal/store"
)

// inboundEvent pairs a raw client payload with its originating connection
// for the hub's event loop.
type inboundEvent struct {
	client  *Client
	payload []byte
}

// Hub is the routing engine. A single goroutine (Run) consumes the
// register, unregister, and inbound channels and is the only mutator of
// the session registry and room directory, so event handlers never
// interleave and the store's read-modify-write operations stay safe. The
// mutex exists for the read-only HTTP handlers, which snapshot state from
// other goroutines.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbound    chan inboundEvent

	mutex    sync.RWMutex
	registry *sessionRegistry
	rooms    *roomDirectory
	store    store.Store

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a hub routing through the given durable store. Rooms
// already present in the store are re-registered in the directory so they
// survive restarts.
func NewHub(st store.Store) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inboundEvent),
		registry:   newSessionRegistry(),
		rooms:      newRoomDirectory(),
		store:      st,
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	if names, err := st.Rooms(ctx); err != nil {
		log.Printf("Error loading stored rooms: %v", err)
	} else {
		for _, name := range names {
			h.rooms.ensure(name)
		}
	}
	return h
}

// Run starts the hub's event loop. It should be called in its own
// goroutine and exits only on Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case evt := <-h.inbound:
			h.route(evt.client, evt.payload)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		log.Printf("Received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	client.closed = false
	session := h.registry.register(client)
	clientCount := h.registry.len()
	h.mutex.Unlock()

	metricConnections.Inc()
	log.Printf("Client %s registered from %s as session %d. Total clients: %d",
		client.connID, client.addr, session.id, clientCount)

	h.safeSend(client, welcomePayload("Welcome to Parley. Send a login event to join the conversation."))

	if client.conn != nil {
		h.wg.Add(2)
		go func() {
			defer h.wg.Done()
			client.writePump()
		}()
		go func() {
			defer h.wg.Done()
			client.readPump()
		}()
	}
}

func (h *Hub) handleUnregister(client *Client) {
	h.mutex.Lock()
	session := h.registry.lookup(client)
	if session == nil {
		h.mutex.Unlock()
		return
	}
	name, room := session.name, session.room
	if room != "" {
		h.rooms.leave(room, session)
	}
	h.registry.remove(session)
	client.closed = true
	clientCount := h.registry.len()
	h.mutex.Unlock()

	close(client.send)
	metricConnections.Dec()
	log.Printf("Client %s unregistered from %s. Total clients: %d", client.connID, client.addr, clientCount)

	if name == "" {
		return
	}
	if room != "" {
		h.notifyRoom(room, notificationPayload(name+" disconnected"), nil)
	}
	h.broadcastPresence()
}

// safeSend delivers a payload to one client without ever blocking the
// event loop or propagating a send failure to the caller. A client whose
// buffer is full is disconnected; cleanup then flows through the normal
// unregister path once its pumps exit.
func (h *Hub) safeSend(client *Client, payload []byte) bool {
	if payload == nil {
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in safeSend: %v", r)
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if h.registry.lookup(client) == nil || client.closed {
		return false
	}

	select {
	case client.send <- payload:
		return true
	default:
		metricDroppedSends.Inc()
		log.Printf("Send buffer full for client %s; disconnecting", client.connID)
		if client.conn != nil {
			_ = client.conn.Close()
		}
		return false
	}
}

// clientSnapshot returns every registered connection, identified or not.
func (h *Hub) clientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, h.registry.len())
	for _, session := range h.registry.all() {
		clients = append(clients, session.client)
	}
	return clients
}

// shutdownClients closes all active client connections.
func (h *Hub) shutdownClients() {
	log.Println("Shutting down all client connections...")

	clients := h.clientSnapshot()
	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Error closing client connection from %s: %v", client.addr, err)
				}
			}
		}
	}

	log.Printf("Closed %d client connections", len(clients))
}

// Shutdown initiates graceful shutdown of the hub and waits for all client
// goroutines to complete, or until the timeout is reached.
func (h *Hub) Shutdown(timeout time.Duration) error {
	log.Println("Initiating hub shutdown...")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Hub shutdown completed successfully")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
