package websocket

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RAWENTERISLIVE/music-ai/domain/repositories"
)

// MessageType defines the type of WebSocket message
type MessageType string

// Supported message types
const (
	MessageTypeProgress MessageType = "progress"
	MessageTypePing     MessageType = "ping"
	MessageTypePong     MessageType = "pong"
	MessageTypeError    MessageType = "error"
)

// BaseMessage defines the common structure for all WebSocket messages
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp string      `json:"timestamp"`
	MessageID string      `json:"message_id,omitempty"`
}

func newBase(t MessageType) BaseMessage {
	return BaseMessage{
		Type:      t,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		MessageID: uuid.New().String(),
	}
}

// ProgressMessage carries one generation progress event
type ProgressMessage struct {
	BaseMessage
	Event repositories.ProgressEvent `json:"event"`
}

// PongMessage answers a client ping
type PongMessage struct {
	BaseMessage
}

// ErrorMessage represents an error response
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func NewProgressMessage(event repositories.ProgressEvent) *ProgressMessage {
	return &ProgressMessage{BaseMessage: newBase(MessageTypeProgress), Event: event}
}

func NewPongMessage() *PongMessage {
	return &PongMessage{BaseMessage: newBase(MessageTypePong)}
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{BaseMessage: newBase(MessageTypeError), Code: code, Message: message}
}

func (m *ProgressMessage) Marshal() ([]byte, error) { return json.Marshal(m) }
func (m *PongMessage) Marshal() ([]byte, error)     { return json.Marshal(m) }
func (m *ErrorMessage) Marshal() ([]byte, error)    { return json.Marshal(m) }

// ParseMessageType extracts the type of an incoming message
func ParseMessageType(data []byte) (MessageType, error) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return "", fmt.Errorf("failed to parse message: %w", err)
	}
	if base.Type == "" {
		return "", fmt.Errorf("message missing type field")
	}
	return base.Type, nil
}
