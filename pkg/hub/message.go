// Package hub fans session lifecycle events out to websocket observers
// using a channel-based broadcast loop.
package hub

import "time"

// MessageType indicates the websocket message format
type MessageType int

const (
	// JSONMessage is a JSON-encoded message
	JSONMessage MessageType = iota
	// BinaryMessage is raw binary data
	BinaryMessage
)

// Message represents a message to be broadcast to clients
type Message struct {
	Type MessageType
	Data []byte
}

// NewJSONMessage creates a JSON message from pre-encoded bytes
func NewJSONMessage(data []byte) Message {
	return Message{Type: JSONMessage, Data: data}
}

// NewBinaryMessage creates a binary message
func NewBinaryMessage(data []byte) Message {
	return Message{Type: BinaryMessage, Data: data}
}

// EventType names a session lifecycle transition.
type EventType string

const (
	EventSessionStarted  EventType = "session.started"
	EventSessionEnded    EventType = "session.ended"
	EventSessionFallback EventType = "session.fallback"
	EventSessionRejected EventType = "session.rejected"
)

// Event is published on every session lifecycle transition.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Source    string    `json:"source,omitempty"`
	Encoding  string    `json:"encoding,omitempty"`
	Remote    string    `json:"remote,omitempty"`
	Ticks     uint64    `json:"ticks,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Time      time.Time `json:"time"`
}
