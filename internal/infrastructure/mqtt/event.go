package mqtt

import (
	"fmt"

	"github.com/eclipse/paho.mqtt.golang/packets"
)

// EventKind identifies what a protocol event carries.
type EventKind int

// Protocol event kinds.
const (
	EventConnAck EventKind = iota + 1
	EventPublish
	EventSubAck
	EventUnsubAck
)

func (k EventKind) String() string {
	switch k {
	case EventConnAck:
		return "connack"
	case EventPublish:
		return "publish"
	case EventSubAck:
		return "suback"
	case EventUnsubAck:
		return "unsuback"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is one item from a session's event stream.
type Event struct {
	Kind EventKind

	// ReturnCode is the CONNACK return code; zero means accepted.
	ReturnCode     byte
	SessionPresent bool

	// Message is set for EventPublish.
	Message Message

	// Topic is set for EventSubAck and EventUnsubAck.
	Topic string
}

// Accepted reports whether a CONNACK event carries a success code.
func (e Event) Accepted() bool {
	return e.Kind == EventConnAck && e.ReturnCode == packets.Accepted
}

// Message is an inbound application message.
type Message struct {
	Topic   string
	Payload []byte
	QoS     byte
	Retain  bool
}

// IsRefusal reports whether code is a broker-issued CONNACK refusal, as
// opposed to a locally synthesised network or protocol failure.
func IsRefusal(code byte) bool {
	return code >= packets.ErrRefusedBadProtocolVersion && code <= packets.ErrRefusedNotAuthorised
}

// ReturnCodeText describes a CONNACK return code.
func ReturnCodeText(code byte) string {
	if text, ok := packets.ConnackReturnCodes[code]; ok {
		return text
	}
	return fmt.Sprintf("unknown return code %d", code)
}
