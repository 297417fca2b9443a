package websocket

import (
	"encoding/json"
	"time"
)

// Message types for WebSocket communication
const (
	// Server to client
	MessageTypeConnection         = "connection"
	MessageTypeHeartbeat          = "heartbeat"
	MessageTypeEntityStateUpdated = "entity_state_updated"
	MessageTypeSubscriptionUpdate = "subscription_update"
	MessageTypePong               = "pong"
	MessageTypeError              = "error"

	// Client to server
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypePing        = "ping"
)

// Message represents a WebSocket message
type Message struct {
	Type      string                 `json:"type"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m Message) ToJSON() []byte {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	data, _ := json.Marshal(m)
	return data
}

// EntityStateUpdatedMessage creates a message carrying a satellite's new state
func EntityStateUpdatedMessage(satID string, metrics, alerts interface{}) Message {
	return Message{
		Type: MessageTypeEntityStateUpdated,
		Data: map[string]interface{}{
			"sat_id":  satID,
			"metrics": metrics,
			"alerts":  alerts,
		},
	}
}

// SubscriptionUpdateMessage reports a client's current subscriptions. An
// empty list means the client receives every satellite.
func SubscriptionUpdateMessage(satIDs []string) Message {
	return Message{
		Type: MessageTypeSubscriptionUpdate,
		Data: map[string]interface{}{
			"sat_ids": satIDs,
		},
	}
}

// ErrorMessage creates a message describing a rejected client request
func ErrorMessage(msg string) Message {
	return Message{
		Type: MessageTypeError,
		Data: map[string]interface{}{
			"error": msg,
		},
	}
}

// satIDsFromData extracts "sat_ids" (a list) or "sat_id" (a single id)
func satIDsFromData(data map[string]interface{}) []string {
	var ids []string
	if raw, ok := data["sat_ids"].([]interface{}); ok {
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				ids = append(ids, s)
			}
		}
	}
	if s, ok := data["sat_id"].(string); ok && s != "" {
		ids = append(ids, s)
	}
	return ids
}
