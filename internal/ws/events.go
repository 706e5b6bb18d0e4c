// Package ws implements the live broadcast subsystem: gorilla/websocket
// connections, the room registry, and block-aware fan-out.
//
// This file defines the wire envelopes exchanged with clients. Inbound events
// are join-group, send-message, and leave-group; outbound events are
// joined-group, new-message, and error. The error event is the sole failure
// channel and only ever goes to the originating connection.
package ws

import (
	"encoding/json"
	"time"
)

// Inbound and outbound event names.
const (
	EventJoinGroup   = "join-group"
	EventSendMessage = "send-message"
	EventLeaveGroup  = "leave-group"

	EventJoinedGroup = "joined-group"
	EventNewMessage  = "new-message"
	EventError       = "error"
)

// Envelope is the frame read from a client connection.
type Envelope struct {
	Event   string `json:"event"`
	GroupID string `json:"group_id"`
	Text    string `json:"text,omitempty"`
}

// JoinedGroupPayload confirms a successful room join.
type JoinedGroupPayload struct {
	GroupID string `json:"group_id"`
	Handle  string `json:"handle"`
}

// NewMessagePayload is the broadcast frame for one room message.
type NewMessagePayload struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"group_id"`
	Handle    string    `json:"handle"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorPayload is sent to the originating connection on operation failure.
type ErrorPayload struct {
	Message string `json:"message"`
}

// outbound wraps an event name and payload into the frame written to clients.
type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// encode marshals an outbound frame. Payload types are all marshalable, so
// an error here indicates a programming mistake; callers treat it as a
// dropped frame.
func encode(event string, data any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Data: data})
}
