package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type panickingSink struct{}

func (panickingSink) ConnectionStateChanged(StateEvent) { panic("state") }
func (panickingSink) MessageReceived(Message)           { panic("message") }

func TestNopSink(t *testing.T) {
	var s Sink = NopSink{}
	assert.NotPanics(t, func() {
		s.ConnectionStateChanged(StateEvent{BrokerID: 1, Status: StatusConnected})
		s.MessageReceived(Message{BrokerID: 1, Topic: "a"})
	})
}

func TestMultiSink_FansOutInOrder(t *testing.T) {
	first := &recordingSink{}
	second := &recordingSink{}
	m := NewMultiSink(first, nil, second)

	m.ConnectionStateChanged(StateEvent{BrokerID: 1, Status: StatusConnecting})
	m.ConnectionStateChanged(StateEvent{BrokerID: 1, Status: StatusConnected})
	m.MessageReceived(Message{BrokerID: 1, Topic: "a/b"})

	for _, s := range []*recordingSink{first, second} {
		assert.Equal(t, []Status{StatusConnecting, StatusConnected}, s.statuses(1))
		assert.Len(t, s.received(), 1)
	}
}

func TestMultiSink_IsolatesPanics(t *testing.T) {
	after := &recordingSink{}
	m := NewMultiSink(panickingSink{}, after)

	assert.NotPanics(t, func() {
		m.ConnectionStateChanged(StateEvent{BrokerID: 3, Status: StatusError})
		m.MessageReceived(Message{BrokerID: 3})
	})
	assert.Equal(t, []Status{StatusError}, after.statuses(3))
	assert.Len(t, after.received(), 1)
}
