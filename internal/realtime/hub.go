// Package realtime fans events out to connected clients. The hub keeps two
// kinds of membership: every connection joins its tenant channel at
// subscribe time, and may additionally join per-number rooms to follow one
// conversation. Delivery is best effort; slow clients get dropped events,
// never a blocked publisher.
package realtime

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Event is what goes over the wire to a client.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Standard event types emitted by the messaging pipeline.
const (
	EventMessageNew      = "message:new"
	EventMessageStatus   = "message:statusUpdate"
	EventContactsUpdated = "contacts:updated"
	EventUnreadUpdated   = "unread:updated"
)

// Connection is one subscribed client. TrySend must not block; it reports
// false when the event was dropped.
type Connection interface {
	TrySend(event Event) bool
}

type Hub struct {
	mu      sync.RWMutex
	tenants map[uuid.UUID]map[Connection]struct{}
	rooms   map[roomKey]map[Connection]struct{}
	logger  *slog.Logger
}

type roomKey struct {
	tenantID uuid.UUID
	room     string
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		tenants: make(map[uuid.UUID]map[Connection]struct{}),
		rooms:   make(map[roomKey]map[Connection]struct{}),
		logger:  logger.With("service", "realtime"),
	}
}

// Join registers a connection on its tenant channel.
func (h *Hub) Join(tenantID uuid.UUID, conn Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.tenants[tenantID] == nil {
		h.tenants[tenantID] = make(map[Connection]struct{})
	}
	h.tenants[tenantID][conn] = struct{}{}
}

// Leave removes the connection from the tenant channel and every room it
// joined.
func (h *Hub) Leave(tenantID uuid.UUID, conn Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns := h.tenants[tenantID]; conns != nil {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.tenants, tenantID)
		}
	}
	for key, conns := range h.rooms {
		if key.tenantID != tenantID {
			continue
		}
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, key)
		}
	}
}

// JoinRoom subscribes the connection to one conversation room, keyed by
// phone number within the tenant.
func (h *Hub) JoinRoom(tenantID uuid.UUID, room string, conn Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := roomKey{tenantID: tenantID, room: room}
	if h.rooms[key] == nil {
		h.rooms[key] = make(map[Connection]struct{})
	}
	h.rooms[key][conn] = struct{}{}
}

func (h *Hub) LeaveRoom(tenantID uuid.UUID, room string, conn Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := roomKey{tenantID: tenantID, room: room}
	if conns := h.rooms[key]; conns != nil {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.rooms, key)
		}
	}
}

// Publish sends the event to every connection on the tenant channel.
func (h *Hub) Publish(tenantID uuid.UUID, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.tenants[tenantID] {
		if !conn.TrySend(event) {
			h.logger.Warn("dropped event for slow client", "tenant_id", tenantID, "event", event.Type)
		}
	}
}

// PublishRoom sends the event to connections that joined the given room.
func (h *Hub) PublishRoom(tenantID uuid.UUID, room string, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn := range h.rooms[roomKey{tenantID: tenantID, room: room}] {
		if !conn.TrySend(event) {
			h.logger.Warn("dropped room event for slow client", "tenant_id", tenantID, "room", room, "event", event.Type)
		}
	}
}
