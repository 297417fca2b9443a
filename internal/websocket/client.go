package websocket

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/frostdev-ops/satwatch/pkg/utils"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin policy is enforced by the CORS middleware
		return true
	},
}

// Client is a middleman between the websocket connection and the hub
type Client struct {
	// Unique client identifier
	ID string

	// The websocket connection
	conn *websocket.Conn

	// Buffered channel of outbound messages
	send chan []byte

	hub    *Hub
	logger *logrus.Logger

	// Client metadata
	UserAgent   string    `json:"user_agent"`
	RemoteAddr  string    `json:"remote_addr"`
	ConnectedAt time.Time `json:"connected_at"`

	// Satellite subscriptions; empty means all
	mu            sync.RWMutex
	subscriptions map[string]bool
	closed        bool
}

func newClient(hub *Hub, conn *websocket.Conn, r *http.Request) *Client {
	return &Client{
		ID:            uuid.New().String(),
		conn:          conn,
		send:          make(chan []byte, 256),
		hub:           hub,
		logger:        hub.logger,
		UserAgent:     r.Header.Get("User-Agent"),
		RemoteAddr:    r.RemoteAddr,
		ConnectedAt:   time.Now(),
		subscriptions: make(map[string]bool),
	}
}

// HandleWebSocket handles websocket requests from clients
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.WithError(err).Error("Failed to upgrade WebSocket connection")
		return
	}

	client := newClient(hub, conn, r)
	if !hub.Register(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// HandleWebSocketGin is a Gin-compatible wrapper for HandleWebSocket
func HandleWebSocketGin(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		HandleWebSocket(hub, c.Writer, c.Request)
	}
}

// HandleStatsGin serves the hub's connection and message totals
func HandleStatsGin(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.SendOK(c, http.StatusOK, gin.H{"websocket": hub.GetStats()})
	}
}

// readPump pumps messages from the websocket connection to the hub
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.WithError(err).Warn("WebSocket connection error")
			}
			break
		}

		c.hub.messageReceived()
		c.handleMessage(message)
	}
}

// writePump pumps messages from the hub to the websocket connection
func (c *Client) writePump() {
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
				// The hub closed the channel
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

// handleMessage processes incoming messages from the client
func (c *Client) handleMessage(message []byte) {
	var msg Message
	if err := json.Unmarshal(message, &msg); err != nil {
		c.trySend(ErrorMessage("invalid message").ToJSON())
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		ids := satIDsFromData(msg.Data)
		if len(ids) == 0 {
			c.trySend(ErrorMessage("subscribe needs sat_id or sat_ids").ToJSON())
			return
		}
		c.Subscribe(ids...)
		c.trySend(SubscriptionUpdateMessage(c.Subscriptions()).ToJSON())
	case MessageTypeUnsubscribe:
		c.Unsubscribe(satIDsFromData(msg.Data)...)
		c.trySend(SubscriptionUpdateMessage(c.Subscriptions()).ToJSON())
	case MessageTypePing:
		c.trySend(Message{Type: MessageTypePong}.ToJSON())
	default:
		c.logger.WithField("message_type", msg.Type).Debug("Unknown WebSocket message type")
		c.trySend(ErrorMessage("unknown message type").ToJSON())
	}
}

// trySend queues data without blocking. It reports false when the buffer
// is full or the client is closed.
func (c *Client) trySend(data []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Subscribe limits the client to the given satellites (added to any existing)
func (c *Client) Subscribe(satIDs ...string) {
	c.mu.Lock()
	for _, id := range satIDs {
		c.subscriptions[id] = true
	}
	c.mu.Unlock()

	c.logger.WithFields(logrus.Fields{
		"client_id": c.ID,
		"sat_ids":   satIDs,
	}).Debug("Client subscribed")
}

// Unsubscribe removes satellites; with no ids it clears every subscription
func (c *Client) Unsubscribe(satIDs ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(satIDs) == 0 {
		c.subscriptions = make(map[string]bool)
		return
	}
	for _, id := range satIDs {
		delete(c.subscriptions, id)
	}
}

// IsSubscribed reports whether updates for satID go to this client
func (c *Client) IsSubscribed(satID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subscriptions) == 0 || c.subscriptions[satID]
}

// Subscriptions returns the subscribed ids, sorted
func (c *Client) Subscriptions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.subscriptions))
	for id := range c.subscriptions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
