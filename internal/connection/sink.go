package connection

import "fmt"

// Sink receives connection events. Calls are made from driver goroutines and
// must not block: a slow sink stalls event processing for that broker.
// Events for one broker arrive in the order they happened.
type Sink interface {
	ConnectionStateChanged(ev StateEvent)
	MessageReceived(msg Message)
}

// NopSink discards every event.
type NopSink struct{}

// ConnectionStateChanged implements Sink.
func (NopSink) ConnectionStateChanged(StateEvent) {}

// MessageReceived implements Sink.
func (NopSink) MessageReceived(Message) {}

// MultiSink delivers each event to every sink in order. A panicking sink is
// logged and skipped so it cannot break delivery to the others.
type MultiSink struct {
	sinks  []Sink
	logger Logger
}

// NewMultiSink creates a fan-out over sinks. Nil entries are ignored.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{logger: noopLogger{}}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// SetLogger sets the logger used to report sink panics.
func (m *MultiSink) SetLogger(logger Logger) {
	m.logger = logger
}

// ConnectionStateChanged implements Sink.
func (m *MultiSink) ConnectionStateChanged(ev StateEvent) {
	for _, s := range m.sinks {
		m.deliver(s, "state", func() { s.ConnectionStateChanged(ev) })
	}
}

// MessageReceived implements Sink.
func (m *MultiSink) MessageReceived(msg Message) {
	for _, s := range m.sinks {
		m.deliver(s, "message", func() { s.MessageReceived(msg) })
	}
}

func (m *MultiSink) deliver(s Sink, kind string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("event sink panic recovered",
				"sink", fmt.Sprintf("%T", s),
				"event", kind,
				"panic", r,
			)
		}
	}()
	fn()
}
