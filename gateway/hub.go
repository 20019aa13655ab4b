// Package gateway bridges fan-out subscription streams to WebSocket clients.
// Each connected client joins rooms explicitly; every join opens a dedicated
// stream so room isolation and ordering come straight from the fan-out core.
package gateway

import (
	"chat-relay/services"
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Hub tracks connected clients and runs as a supervised worker.
type Hub struct {
	log        *slog.Logger
	chat       services.IChatService
	register   chan *Client
	unregister chan *Client

	mu      sync.RWMutex
	clients map[*Client]struct{}
}

func NewHub(log *slog.Logger, chat services.IChatService) *Hub {
	return &Hub{
		log:        log,
		chat:       chat,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]struct{}),
	}
}

// Run implements contract.Worker.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("Client connected", "total_clients", total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.shutdown()
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info("Client disconnected", "total_clients", total)

		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				client.shutdown()
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return nil
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// The gateway sits behind the same origin in production; the demo
		// deployment accepts all origins like the rest of the stack.
		return true
	},
}

// ServeWS upgrades the connection and hands it to a new client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	client := newClient(h, conn)
	h.register <- client

	go client.writePump()
	go client.readPump()
}
