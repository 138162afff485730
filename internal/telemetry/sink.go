// Package telemetry forwards connection events to a time-series backend.
package telemetry

import (
	"time"

	"github.com/nerrad567/mqttdesk/internal/connection"
)

// Writer is the subset of influxdb.Client used by Sink.
type Writer interface {
	WriteMessage(brokerID int64, topic string, qos byte, size int, retain bool, at time.Time)
	WriteConnectionState(brokerID int64, status string, reason string, at time.Time)
}

// Sink writes one point per inbound message and one per state change.
// Writes are handed to the writer's batching buffer and never wait on the
// network. Sink implements connection.Sink.
type Sink struct {
	w Writer
}

// NewSink creates a telemetry sink over w.
func NewSink(w Writer) *Sink {
	return &Sink{w: w}
}

// ConnectionStateChanged implements connection.Sink.
func (s *Sink) ConnectionStateChanged(ev connection.StateEvent) {
	s.w.WriteConnectionState(ev.BrokerID, string(ev.Status), ev.Error, ev.Timestamp)
}

// MessageReceived implements connection.Sink.
func (s *Sink) MessageReceived(msg connection.Message) {
	s.w.WriteMessage(msg.BrokerID, msg.Topic, msg.QoS, len(msg.Payload), msg.Retain, msg.Timestamp)
}
