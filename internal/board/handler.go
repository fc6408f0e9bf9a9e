package board

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"taxi-fleet/internal/shared/middleware"
	"taxi-fleet/internal/shared/permissions"
	"taxi-fleet/internal/shared/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	writeWait = 10 * time.Second
	pongWait  = 60 * time.Second
	pingEvery = 30 * time.Second
)

type Handler struct {
	hub    *Hub
	logger *util.Logger
}

func NewHandler(hub *Hub, logger *util.Logger) *Handler {
	return &Handler{hub: hub, logger: logger}
}

// WatchHandler upgrades an authenticated dispatcher to a live board
// connection. The bearer token travels in the normal header, so the
// regular auth middleware runs before this handler.
func (h *Handler) WatchHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if !permissions.Allowed(actor.Role, permissions.ActionWatchDispatch) {
		util.WriteJSONError(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Board.Watch", err)
		return
	}

	client := &Client{ID: actor.ID, Conn: conn, Send: make(chan []byte, 16)}
	if !h.hub.add(client) {
		conn.Close()
		return
	}

	go h.writePump(client)
	go h.readPump(client)
}

func (h *Handler) writePump(c *Client) {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames; the board is watch-only. It exists
// to notice disconnects and keep the pong deadline fresh.
func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.drop(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}
