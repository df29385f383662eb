package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"walletflow/internal/core"
)

// EventMessage carries one analytics event over the broker. The routing key
// is the queue name; the event name travels in the body.
type EventMessage struct {
	Name        core.EventName    `json:"name"`
	At          time.Time         `json:"at"`
	Properties  map[string]string `json:"properties,omitempty"`
	PublishedAt time.Time         `json:"published_at"`
}

// NewEventMessage wraps an event for publishing
func NewEventMessage(e core.Event) *EventMessage {
	return &EventMessage{
		Name:        e.Name,
		At:          e.At,
		Properties:  e.Properties,
		PublishedAt: time.Now(),
	}
}

// Event returns the wrapped analytics event
func (m *EventMessage) Event() core.Event {
	return core.Event{Name: m.Name, At: m.At, Properties: m.Properties}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON creates a message from JSON bytes
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Name == "" {
		return nil, errors.New("event message without name")
	}
	return &msg, nil
}
