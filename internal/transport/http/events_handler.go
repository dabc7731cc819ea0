package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/textlane/textlane/internal/realtime"
)

// sseConn is one event stream. Sends are non-blocking; a full buffer means
// the client is too slow and the event is dropped.
type sseConn struct {
	id       uuid.UUID
	tenantID uuid.UUID
	ch       chan realtime.Event
}

func (c *sseConn) TrySend(event realtime.Event) bool {
	select {
	case c.ch <- event:
		return true
	default:
		return false
	}
}

// EventsHandler serves the realtime surface over server-sent events. The
// stream auto-joins the actor's tenant channel; conversation rooms are
// joined per connection via POST /events/join with the connection id the
// stream announced.
type EventsHandler struct {
	hub    *realtime.Hub
	logger *slog.Logger

	mu    sync.Mutex
	conns map[uuid.UUID]*sseConn
}

func NewEventsHandler(hub *realtime.Hub, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		hub:    hub,
		logger: logger.With("service", "events"),
		conns:  make(map[uuid.UUID]*sseConn),
	}
}

func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED", "response writer cannot stream")
		return
	}

	actor, _ := ActorFromContext(r.Context())
	conn := &sseConn{
		id:       uuid.New(),
		tenantID: actor.TenantID(),
		ch:       make(chan realtime.Event, 32),
	}

	h.mu.Lock()
	h.conns[conn.id] = conn
	h.mu.Unlock()
	h.hub.Join(conn.tenantID, conn)
	defer func() {
		h.hub.Leave(conn.tenantID, conn)
		h.mu.Lock()
		delete(h.conns, conn.id)
		h.mu.Unlock()
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// The client needs the connection id to join rooms.
	writeSSE(w, realtime.Event{Type: "connected", Payload: map[string]string{"connectionId": conn.id.String()}})
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event := <-conn.ch:
			writeSSE(w, event)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, event realtime.Event) {
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
}

func (h *EventsHandler) connForActor(r *http.Request, connectionID uuid.UUID) (*sseConn, bool) {
	actor, _ := ActorFromContext(r.Context())
	h.mu.Lock()
	defer h.mu.Unlock()
	conn, ok := h.conns[connectionID]
	if !ok || conn.tenantID != actor.TenantID() {
		return nil, false
	}
	return conn, true
}

func (h *EventsHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	connectionID, err := uuid.Parse(req.ConnectionID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "connectionId is not a uuid")
		return
	}

	conn, ok := h.connForActor(r, connectionID)
	if !ok {
		respondError(w, http.StatusNotFound, "CONNECTION_NOT_FOUND", "no such event stream")
		return
	}
	h.hub.JoinRoom(conn.tenantID, req.PhoneNumber, conn)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *EventsHandler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	connectionID, err := uuid.Parse(req.ConnectionID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "BAD_ID", "connectionId is not a uuid")
		return
	}

	conn, ok := h.connForActor(r, connectionID)
	if !ok {
		respondError(w, http.StatusNotFound, "CONNECTION_NOT_FOUND", "no such event stream")
		return
	}
	h.hub.LeaveRoom(conn.tenantID, req.PhoneNumber, conn)
	respondJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
