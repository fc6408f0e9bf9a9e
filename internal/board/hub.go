package board

import (
	"context"
	"fmt"

	"github.com/gorilla/websocket"

	"taxi-fleet/internal/shared/util"
)

// Client is one connected dispatcher screen.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan []byte
}

// Hub fans dispatch events out to every connected board. All state is
// owned by the Run goroutine; handlers talk to it over channels only.
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	logger     *util.Logger
}

func NewHub(logger *util.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

func (h *Hub) Run(ctx context.Context) {
	instance := "Board.Hub"
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				close(client.Send)
			}
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.logger.Info(instance, fmt.Sprintf("board connected [user=%s, total=%d]", client.ID, len(h.clients)))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info(instance, fmt.Sprintf("board disconnected [user=%s, total=%d]", client.ID, len(h.clients)))
			}
		case msg := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.Send <- msg:
				default:
					// slow consumer, drop it
					delete(h.clients, client)
					close(client.Send)
				}
			}
		}
	}
}

// Broadcast, add and drop give up instead of blocking once Run has
// exited, so pump goroutines do not hang on shutdown.
func (h *Hub) Broadcast(msg []byte) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	}
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
