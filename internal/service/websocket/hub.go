package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"framerelay/internal/logger"
	"framerelay/internal/metrics"
	"framerelay/internal/model"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

// HubService fans relay events out to connected viewers.
type HubService struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	done       chan struct{}
	mutex      sync.RWMutex
	logger     *logger.Logger
	metrics    *metrics.Relay
}

// NewHubService creates a hub. Events published while the broadcast buffer is full are dropped.
func NewHubService(logger *logger.Logger, m *metrics.Relay) *HubService {
	return &HubService{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    m,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then closes every client.
func (h *HubService) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for client := range h.clients {
				client.Close()
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			h.metrics.ViewersActive.Set(0)
			return

		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mutex.Unlock()
			h.metrics.ViewersActive.Set(float64(total))
			h.logger.Info("Viewer connected. Total: %d", total)

		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.metrics.ViewersActive.Set(float64(total))
			h.logger.Info("Viewer disconnected. Total: %d", total)

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				client.SetWriteDeadline(time.Now().Add(writeWait))
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warning("Error sending event to viewer: %v", err)
					delete(h.clients, client)
					client.Close()
				}
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.metrics.ViewersActive.Set(float64(total))
		}
	}
}

// Register adds a viewer connection. After the hub has stopped the connection is closed instead.
func (h *HubService) Register(client *websocket.Conn) {
	select {
	case h.register <- client:
	case <-h.done:
		client.Close()
	}
}

// Unregister removes and closes a viewer connection.
func (h *HubService) Unregister(client *websocket.Conn) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish encodes event and queues it for every viewer without blocking the caller.
func (h *HubService) Publish(event model.RelayEvent) {
	message, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to encode relay event: %v", err)
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warning("Event buffer full, dropping relay event for %s", event.Filename)
	}
}

// GetClientCount returns the number of connected viewers.
func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}
