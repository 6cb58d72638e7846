package server

import "log"

// broadcastPresence pushes the current identified-user snapshot to every
// registered channel, including pre-login connections.
func (h *Hub) broadcastPresence() {
	h.mutex.RLock()
	users := h.registry.snapshot()
	h.mutex.RUnlock()

	h.broadcastAll(presencePayload(users))
}

// broadcastAll fans a payload out to every registered connection. Failed
// sends are isolated per recipient by safeSend.
func (h *Hub) broadcastAll(payload []byte) {
	for _, client := range h.clientSnapshot() {
		h.safeSend(client, payload)
	}
}

// notifyRoom sends a payload to the room's membership as it stands at send
// time, not a captured copy. A non-nil except session is skipped, which
// typing notifications use to exclude the author.
func (h *Hub) notifyRoom(room string, payload []byte, except *Session) {
	h.mutex.RLock()
	members := h.rooms.members(room)
	h.mutex.RUnlock()

	for _, member := range members {
		if member == except {
			continue
		}
		h.safeSend(member.client, payload)
	}
}

// usersSnapshot and roomsSnapshot feed the read-only query endpoints.
func (h *Hub) usersSnapshot() []userEntry {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.registry.snapshot()
}

func (h *Hub) roomsSnapshot() []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return h.rooms.names()
}

func (h *Hub) storeError(op string, err error) {
	metricStoreErrors.Inc()
	log.Printf("Store error during %s: %v", op, err)
}
