package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/frostdev-ops/satwatch/internal/core/monitor"
	"github.com/sirupsen/logrus"
)

// ConnectionRecorder receives connection and message events for metrics
type ConnectionRecorder interface {
	RecordWebSocketConnection(action string)
}

type outbound struct {
	satID string // empty for messages every client gets
	data  []byte
}

// Hub maintains the set of active clients and fans state updates out to them
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Messages to fan out
	broadcast chan outbound

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed when Run returns
	done chan struct{}

	logger   *logrus.Logger
	recorder ConnectionRecorder

	heartbeatInterval time.Duration

	// Mutex for thread-safe operations
	mu sync.RWMutex

	// Statistics
	stats HubStats
}

// HubStats contains hub statistics
type HubStats struct {
	ConnectedClients int       `json:"connected_clients"`
	TotalConnections int64     `json:"total_connections"`
	MessagesSent     int64     `json:"messages_sent"`
	MessagesReceived int64     `json:"messages_received"`
	LastActivity     time.Time `json:"last_activity"`
}

// NewHub creates a new WebSocket hub
func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients:           make(map[*Client]bool),
		broadcast:         make(chan outbound, 256),
		register:          make(chan *Client),
		unregister:        make(chan *Client),
		done:              make(chan struct{}),
		logger:            logger,
		heartbeatInterval: 30 * time.Second,
		stats: HubStats{
			LastActivity: time.Now(),
		},
	}
}

// SetRecorder sets the metrics recorder. Call before Run.
func (h *Hub) SetRecorder(r ConnectionRecorder) { h.recorder = r }

// Run handles registration and fan-out until ctx is done, then disconnects
// every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("WebSocket hub started")

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			h.logger.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.broadcastMessage(msg)

		case <-ticker.C:
			h.sendHeartbeat()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	h.stats.TotalConnections++
	h.stats.ConnectedClients = len(h.clients)
	h.stats.LastActivity = time.Now()
	count := len(h.clients)
	h.mu.Unlock()

	h.record("connect")

	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"remote_addr":       client.RemoteAddr,
		"connected_clients": count,
	}).Info("WebSocket client connected")

	welcome := Message{
		Type: MessageTypeConnection,
		Data: map[string]interface{}{
			"status":    "connected",
			"client_id": client.ID,
		},
	}
	client.trySend(welcome.ToJSON())
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	_, ok := h.clients[client]
	if ok {
		delete(h.clients, client)
		client.closeSend()
		h.stats.ConnectedClients = len(h.clients)
		h.stats.LastActivity = time.Now()
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}

	h.record("disconnect")
	h.logger.WithFields(logrus.Fields{
		"client_id":         client.ID,
		"connected_clients": count,
	}).Info("WebSocket client disconnected")
}

func (h *Hub) broadcastMessage(msg outbound) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if msg.satID == "" || client.IsSubscribed(msg.satID) {
			clients = append(clients, client)
		}
	}
	h.mu.RUnlock()

	var slow []*Client
	for _, client := range clients {
		if client.trySend(msg.data) {
			h.record("message_sent")
		} else {
			slow = append(slow, client)
		}
	}

	// A client that cannot keep up is dropped
	for _, client := range slow {
		h.unregisterClient(client)
	}

	h.mu.Lock()
	h.stats.MessagesSent += int64(len(clients) - len(slow))
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()
}

func (h *Hub) sendHeartbeat() {
	heartbeat := Message{
		Type: MessageTypeHeartbeat,
		Data: map[string]interface{}{
			"clients": h.GetClientCount(),
		},
	}
	h.enqueue(outbound{data: heartbeat.ToJSON()})
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.unregisterClient(client)
	}
}

// Register hands a client to the hub. It returns false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; it is a no-op once the hub has stopped
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) enqueue(msg outbound) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("Broadcast channel is full, message dropped")
	}
}

func (h *Hub) record(action string) {
	if h.recorder != nil {
		h.recorder.RecordWebSocketConnection(action)
	}
}

func (h *Hub) messageReceived() {
	h.mu.Lock()
	h.stats.MessagesReceived++
	h.stats.LastActivity = time.Now()
	h.mu.Unlock()
	h.record("message_received")
}

// PublishEntityState sends a satellite's new state to subscribed clients
func (h *Hub) PublishEntityState(satID string, state monitor.EntityState) {
	msg := EntityStateUpdatedMessage(satID, state.Metrics, state.Alerts)
	h.enqueue(outbound{satID: satID, data: msg.ToJSON()})
}

// GetStats returns current hub statistics
func (h *Hub) GetStats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	stats := h.stats
	stats.ConnectedClients = len(h.clients)
	return stats
}

// GetClientCount returns the current number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GetClientByID returns a client by its ID, or nil if not found
func (h *Hub) GetClientByID(clientID string) *Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client.ID == clientID {
			return client
		}
	}

	return nil
}
