package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/joshuasalcedo-dev/fx/internal/database"
)

// WebSocket event types carried in the envelope.
const (
	EventEntryCreated = "clipboard.created"
	EventEntryUpdated = "clipboard.updated"
	EventEntryDeleted = "clipboard.deleted"
	EventCleared      = "clipboard.cleared"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	clientBuffer   = 256
	broadcastDepth = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local-only service; the listener binds to loopback.
		return true
	},
}

// Envelope wraps every broadcast message.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub maintains live WebSocket connections and broadcasts change events to
// all of them. It implements Subscriber; the subscriber methods only enqueue,
// so the engine's critical path never waits on a socket.
type Hub struct {
	clients    map[string]*client
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	log        zerolog.Logger

	mu sync.RWMutex
}

func NewHub(log zerolog.Logger) *Hub {
	hub := &Hub{
		clients:    make(map[string]*client),
		broadcast:  make(chan []byte, broadcastDepth),
		register:   make(chan *client),
		unregister: make(chan *client),
		log:        log.With().Str("component", "ws").Logger(),
	}
	go hub.run()
	return hub
}

func (h *Hub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Str("client", c.id).Int("total", total).Msg("client connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.log.Info().Str("client", c.id).Int("total", total).Msg("client disconnected")

		case message := <-h.broadcast:
			h.mu.Lock()
			for id, c := range h.clients {
				select {
				case c.send <- message:
				default:
					// Slow client, drop the connection rather than the engine.
					close(c.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast enqueues an enveloped event for every connected client. A full
// broadcast queue drops the event rather than blocking.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	envelope := Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		h.log.Error().Err(err).Str("type", eventType).Msg("failed to marshal event")
		return
	}

	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn().Str("type", eventType).Msg("broadcast queue full, event dropped")
	}
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Subscriber implementation.

func (h *Hub) EntryCreated(entry *database.ClipboardEntry) {
	h.Broadcast(EventEntryCreated, entry)
}

func (h *Hub) EntryUpdated(entry *database.ClipboardEntry) {
	h.Broadcast(EventEntryUpdated, entry)
}

func (h *Hub) EntryDeleted(id int64) {
	h.Broadcast(EventEntryDeleted, map[string]int64{"id": id})
}

func (h *Hub) Cleared(includePinned bool) {
	h.Broadcast(EventCleared, map[string]bool{"includePinned": includePinned})
}

// HandleWebSocket upgrades the request and attaches the connection to the hub.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, clientBuffer),
		hub:  h,
	}

	h.register <- c

	go c.writePump()
	go c.readPump()
}

// readPump drains client messages; the protocol is broadcast-only, so inbound
// frames are discarded and only keep the connection's read deadline fresh.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug().Err(err).Str("client", c.id).Msg("read error")
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
