package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageReading     MessageType = "reading"
	MessageAlertSent   MessageType = "alert.sent"
	MessageAlertFailed MessageType = "alert.failed"
)

// Message is the envelope for all WebSocket messages.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}
