package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relaydesk/inbox-pilot/internal/orchestrator"
)

// Hub fans item and batch events out to every connected WebSocket client. It
// implements orchestrator.Notifier, so the presentation layer gets pushed
// state transitions instead of polling the snapshot.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
	logger     *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		logger:     logger,
	}
}

// Start runs the hub loop until ctx is done.
func (h *Hub) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				for client := range h.clients {
					_ = client.Close()
					delete(h.clients, client)
				}
				h.mu.Unlock()
				return
			case client := <-h.register:
				h.mu.Lock()
				h.clients[client] = true
				n := len(h.clients)
				h.mu.Unlock()
				h.logger.Debug("websocket client connected", zap.Int("clients", n))
			case client := <-h.unregister:
				h.mu.Lock()
				if _, ok := h.clients[client]; ok {
					delete(h.clients, client)
					_ = client.Close()
				}
				n := len(h.clients)
				h.mu.Unlock()
				h.logger.Debug("websocket client disconnected", zap.Int("clients", n))
			case message := <-h.broadcast:
				h.mu.Lock()
				for client := range h.clients {
					if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
						h.logger.Warn("websocket write failed, dropping client", zap.Error(err))
						_ = client.Close()
						delete(h.clients, client)
					}
				}
				h.mu.Unlock()
			}
		}
	}()
}

func (h *Hub) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		h.logger.Warn("failed to marshal websocket event", zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn("websocket broadcast buffer full, dropping event")
	}
}

// ItemUpdated implements orchestrator.Notifier.
func (h *Hub) ItemUpdated(file string, st orchestrator.ItemState) {
	h.send(map[string]any{
		"type":       "item_update",
		"file":       file,
		"status":     st.Status,
		"last_error": st.LastError,
	})
}

// BatchDone implements orchestrator.Notifier.
func (h *Hub) BatchDone(sum orchestrator.Summary) {
	h.send(map[string]any{
		"type":         "batch_done",
		"routed_count": sum.RoutedCount,
		"error_count":  sum.ErrorCount,
	})
}

// ListingRefresh tells clients to re-fetch the visible inbox listing. Sent a
// short delay after items are routed, since the backend's listing is only
// eventually consistent.
func (h *Hub) ListingRefresh() {
	h.send(map[string]any{"type": "listing_refresh"})
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Local desktop shell only; the listener binds loopback.
	CheckOrigin: func(*http.Request) bool { return true },
}

func (h *Hub) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	h.register <- conn

	// Drain (and discard) client frames so pings and close frames are handled.
	go func() {
		defer func() { h.unregister <- conn }()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
