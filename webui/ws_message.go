// Package webui is the browser-facing view layer of the studio: an embedded
// single-page front-end, a JSON API over the per-session studio, WebSocket
// snapshot push and request logging.
package webui

import (
	"time"

	"spooktrunt/studio"
)

// Message type constants for WebSocket communication.
const (
	// MessageTypeSnapshot carries a full studio.Snapshot.
	MessageTypeSnapshot = "snapshot"

	// MessageTypeError indicates a server-side error message.
	MessageTypeError = "error"
)

// WSMessage is the envelope for all WebSocket messages.
type WSMessage struct {
	// Type identifies the message kind (use MessageType* constants)
	Type string `json:"type"`

	// Timestamp is when the message was created
	Timestamp time.Time `json:"timestamp"`

	// Data contains the type-specific payload
	Data any `json:"data,omitempty"`
}

// ErrorData contains error information sent to clients.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewWSMessage creates a message stamped with the current time.
func NewWSMessage(msgType string, data any) WSMessage {
	return WSMessage{
		Type:      msgType,
		Timestamp: time.Now(),
		Data:      data,
	}
}

// NewSnapshotMessage wraps a studio snapshot.
func NewSnapshotMessage(snap studio.Snapshot) WSMessage {
	return NewWSMessage(MessageTypeSnapshot, snap)
}

// NewErrorMessage creates an error message.
func NewErrorMessage(code, message string) WSMessage {
	return NewWSMessage(MessageTypeError, ErrorData{Code: code, Message: message})
}
