// Package ws streams capture, fusion, and edge-health events to
// WebSocket subscribers.
package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/your-org/skycam/internal/observability"
	"github.com/your-org/skycam/pkg/dto"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for development
	},
}

// subscriber is one connected client together with its filters. An
// empty filter matches every event.
type subscriber struct {
	conn      *websocket.Conn
	send      chan []byte
	schedule  string
	eventType string
}

func (s *subscriber) wants(evt *dto.WSEvent) bool {
	if s.schedule != "" && evt.ScheduleName != s.schedule {
		return false
	}
	if s.eventType != "" && evt.Type != s.eventType {
		return false
	}
	return true
}

// envelope pairs the decoded event with its wire bytes so filtering
// happens once per broadcast, not once per client.
type envelope struct {
	event *dto.WSEvent
	raw   []byte
}

// Hub fans events out to subscribers. Slow subscribers are dropped
// rather than allowed to stall the broadcast loop.
type Hub struct {
	subscribers map[*subscriber]struct{}
	broadcast   chan envelope
	register    chan *subscriber
	unregister  chan *subscriber
	mu          sync.Mutex
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
		broadcast:   make(chan envelope, 256),
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
	}
}

// Run starts the hub event loop. Call this in a goroutine.
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			h.subscribers[sub] = struct{}{}
			h.mu.Unlock()
			observability.WSConnections.Inc()
			slog.Debug("ws subscriber connected",
				"schedule", sub.schedule, "type", sub.eventType)

		case sub := <-h.unregister:
			h.drop(sub)
			slog.Debug("ws subscriber disconnected")

		case env := <-h.broadcast:
			h.mu.Lock()
			var stalled []*subscriber
			for sub := range h.subscribers {
				if !sub.wants(env.event) {
					continue
				}
				select {
				case sub.send <- env.raw:
				default:
					stalled = append(stalled, sub)
				}
			}
			for _, sub := range stalled {
				delete(h.subscribers, sub)
				close(sub.send)
				observability.WSConnections.Dec()
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
		observability.WSConnections.Dec()
	}
}

// BroadcastEvent queues an event for all matching subscribers. It
// never blocks the caller; events are shed when the hub backlog is
// full.
func (h *Hub) BroadcastEvent(event *dto.WSEvent) {
	raw, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal ws event", "error", err)
		return
	}
	select {
	case h.broadcast <- envelope{event: event, raw: raw}:
	default:
		slog.Warn("ws broadcast backlog full, event dropped", "type", event.Type)
	}
}

// HandleWS upgrades the request and registers a subscriber. Filters
// come from the schedule and type query parameters.
func (h *Hub) HandleWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Error("ws upgrade failed", "error", err)
		return
	}

	sub := &subscriber{
		conn:      conn,
		send:      make(chan []byte, 64),
		schedule:  c.Query("schedule"),
		eventType: c.Query("type"),
	}

	h.register <- sub

	go sub.writePump()
	go sub.readPump(h)
}

func (s *subscriber) writePump() {
	defer s.conn.Close()
	for msg := range s.send {
		if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// readPump discards inbound frames; it exists to notice disconnects.
func (s *subscriber) readPump(h *Hub) {
	defer func() {
		h.unregister <- s
		s.conn.Close()
	}()

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}
