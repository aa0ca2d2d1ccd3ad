package broadcast

import (
	"encoding/json"
	"fmt"
)

type EventType string

const (
	EventStateUpdate EventType = "state-update"
	EventScanStatus  EventType = "scan-status"
	EventPrices      EventType = "prices"
)

// Event is an encoded envelope shared read-only by every subscriber.
type Event struct {
	Type    EventType
	Payload []byte
}

type envelope struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// NewEvent encodes data once as {"type": t, "data": data}.
func NewEvent(t EventType, data interface{}) (Event, error) {
	b, err := json.Marshal(envelope{Type: t, Data: data})
	if err != nil {
		return Event{}, fmt.Errorf("encode %s event: %w", t, err)
	}
	return Event{Type: t, Payload: b}, nil
}

// Envelope is the decoded wire form for consumers of the channel.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}
