package history

import (
	"encoding/hex"
	"encoding/json"
	"time"
)

// Direction says whether a message was sent or received.
type Direction string

// Message directions.
const (
	DirectionPublish Direction = "publish"
	DirectionReceive Direction = "receive"
)

// Entry is one recorded message.
type Entry struct {
	ID            int64
	BrokerID      int64
	Direction     Direction
	Topic         string
	Payload       []byte
	PayloadFormat Format
	QoS           byte
	Retain        bool
	CreatedAt     time.Time
}

type entryJSON struct {
	ID            int64     `json:"id"`
	BrokerID      int64     `json:"broker_id"`
	Direction     Direction `json:"direction"`
	Topic         string    `json:"topic"`
	Payload       string    `json:"payload"`
	PayloadFormat Format    `json:"payload_format"`
	QoS           byte      `json:"qos"`
	Retain        bool      `json:"retain"`
	CreatedAt     time.Time `json:"created_at"`
}

// PayloadString renders the payload as text, or as hex for binary payloads.
func (e Entry) PayloadString() string {
	if e.PayloadFormat == FormatHex {
		return hex.EncodeToString(e.Payload)
	}
	return string(e.Payload)
}

// MarshalJSON implements json.Marshaler.
func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		ID:            e.ID,
		BrokerID:      e.BrokerID,
		Direction:     e.Direction,
		Topic:         e.Topic,
		Payload:       e.PayloadString(),
		PayloadFormat: e.PayloadFormat,
		QoS:           e.QoS,
		Retain:        e.Retain,
		CreatedAt:     e.CreatedAt,
	})
}
