package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/engine"
	"github.com/dougsko/ampd/pkg/logging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second
	clientBuffer  = 256
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // LAN shack displays connect from anywhere
	},
}

// snapshotMessage is the first message every websocket client receives
type snapshotMessage struct {
	Type   string      `json:"type"`
	Status interface{} `json:"status"`
	Panel  interface{} `json:"panel"`
}

// Hub fans session events out to websocket clients. HandleEvent only
// queues; a stalled client must not hold up the other subscribers.
type Hub struct {
	engine    *engine.CoreEngine
	clients   map[*wsClient]bool
	clientsMu sync.RWMutex
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// NewHub creates a hub reading snapshots from e
func NewHub(e *engine.CoreEngine) *Hub {
	return &Hub{
		engine:  e,
		clients: make(map[*wsClient]bool),
	}
}

// HandleEvent queues ev for every client. Slow clients lose events rather
// than stall the session.
func (h *Hub) HandleEvent(ev amp.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			logging.Debug("websocket", "client buffer full, event dropped", map[string]interface{}{
				"event": string(ev.Type),
			})
		}
	}
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams events to the client
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn("websocket", "upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}

	client := &wsClient{
		conn: conn,
		send: make(chan []byte, clientBuffer),
		hub:  h,
	}

	// Snapshot goes first so the client never renders from a partial state
	data, _ := json.Marshal(snapshotMessage{
		Type:   "snapshot",
		Status: h.engine.Status(),
		Panel:  h.engine.Panel(),
	})
	client.send <- data

	h.clientsMu.Lock()
	h.clients[client] = true
	h.clientsMu.Unlock()

	logging.Debug("websocket", "client connected", map[string]interface{}{"remote": conn.RemoteAddr().String()})

	go client.writePump()
	go client.readPump()
}

// Close disconnects every client
func (h *Hub) Close() {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) removeClient(c *wsClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// readPump discards client messages and notices disconnects
func (c *wsClient) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.Debug("websocket", "read error", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
