package mqtt

import (
	"context"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/eclipse/paho.mqtt.golang/packets"
)

// Logger is the logging surface used by Session.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Session is a single-shot paho client exposed as a pollable event stream.
//
// The network connection is opened by the first Poll call. paho callbacks
// (CONNACK, inbound publish, connection lost, request completion) are
// funnelled into one buffered queue that Poll drains, so the consumer sees
// events in the order the engine produced them. A Session never reconnects;
// once Poll returns an error the session is finished.
//
// Thread Safety:
//   - Publish, Subscribe and Unsubscribe are safe to call concurrently with
//     Poll and with each other.
//   - Poll must be called from a single goroutine.
type Session struct {
	client  pahomqtt.Client
	quiesce uint
	logger  Logger

	events chan pollResult
	done   chan struct{}

	connectOnce sync.Once
	closeOnce   sync.Once
}

type pollResult struct {
	event Event
	err   error
}

// NewSession builds a session for opts without touching the network.
//
// Parameters:
//   - opts: Broker address, credentials, TLS config and session options
//   - logger: Receives debug and warning output; nil discards it
//
// Returns:
//   - *Session: Unconnected session; the first Poll dials the broker
//   - error: If opts fails validation
func NewSession(opts Options, logger Logger) (*Session, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = noopLogger{}
	}

	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = defaultEventBuffer
	}
	quiesce := opts.DisconnectQuiesce
	if quiesce <= 0 {
		quiesce = defaultDisconnectQuiesce
	}

	s := &Session{
		quiesce: uint(quiesce / time.Millisecond),
		logger:  logger,
		events:  make(chan pollResult, buffer),
		done:    make(chan struct{}),
	}

	po := buildClientOptions(opts)
	po.SetDefaultPublishHandler(s.handleMessage)
	po.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.push(pollResult{err: err})
	})
	s.client = pahomqtt.NewClient(po)

	return s, nil
}

// Poll returns the next protocol event. A non-nil error is a transport
// failure and ends the session; ctx cancellation returns ctx.Err().
func (s *Session) Poll(ctx context.Context) (Event, error) {
	s.connectOnce.Do(s.startConnect)

	select {
	case r := <-s.events:
		return r.event, r.err
	case <-s.done:
		return Event{}, ErrSessionClosed
	case <-ctx.Done():
		return Event{}, ctx.Err()
	}
}

func (s *Session) startConnect() {
	token := s.client.Connect()
	go func() {
		select {
		case <-token.Done():
		case <-s.done:
			return
		}

		code := byte(packets.Accepted)
		sessionPresent := false
		if ct, ok := token.(*pahomqtt.ConnectToken); ok {
			code = ct.ReturnCode()
			sessionPresent = ct.SessionPresent()
		}

		err := token.Error()
		switch {
		case err == nil:
			s.push(pollResult{event: Event{Kind: EventConnAck, ReturnCode: packets.Accepted, SessionPresent: sessionPresent}})
		case IsRefusal(code):
			s.push(pollResult{event: Event{Kind: EventConnAck, ReturnCode: code}})
		default:
			s.push(pollResult{err: err})
		}
	}()
}

func (s *Session) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	payload := make([]byte, len(msg.Payload()))
	copy(payload, msg.Payload())

	s.push(pollResult{event: Event{
		Kind: EventPublish,
		Message: Message{
			Topic:   msg.Topic(),
			Payload: payload,
			QoS:     msg.Qos(),
			Retain:  msg.Retained(),
		},
	}})
}

// push queues r unless the session has been closed. A full queue applies
// backpressure to the paho router.
func (s *Session) push(r pollResult) {
	select {
	case s.events <- r:
	case <-s.done:
	}
}

// Publish hands a message to the engine. It returns once paho has queued the
// packet; QoS 1 and 2 acknowledgements are tracked by paho.
func (s *Session) Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	token := s.client.Publish(topic, qos, retain, payload)
	return s.submitted(token, "publish", topic, nil)
}

// Subscribe requests a subscription. The SUBACK arrives later as EventSubAck.
func (s *Session) Subscribe(ctx context.Context, topic string, qos byte) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	token := s.client.Subscribe(topic, qos, nil)
	return s.submitted(token, "subscribe", topic, &Event{Kind: EventSubAck, Topic: topic})
}

// Unsubscribe removes a subscription. The UNSUBACK arrives later as EventUnsubAck.
func (s *Session) Unsubscribe(ctx context.Context, topic string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	token := s.client.Unsubscribe(topic)
	return s.submitted(token, "unsubscribe", topic, &Event{Kind: EventUnsubAck, Topic: topic})
}

func (s *Session) ready(ctx context.Context) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	return ctx.Err()
}

// submitted returns an immediate rejection from paho, if any. Otherwise it
// watches the token in the background and queues ack when it completes.
func (s *Session) submitted(token pahomqtt.Token, op, topic string, ack *Event) error {
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return err
		}
		if ack != nil {
			go s.push(pollResult{event: *ack})
		}
		return nil
	default:
	}

	go func() {
		select {
		case <-token.Done():
		case <-s.done:
			return
		}
		if err := token.Error(); err != nil {
			s.logger.Warn("mqtt request failed", "op", op, "topic", topic, "error", err)
			return
		}
		if ack != nil {
			s.push(pollResult{event: *ack})
		}
	}()
	return nil
}

// Close ends the session. An open connection is disconnected with up to the
// configured quiesce period for in-flight work; a connection attempt still in
// progress is abandoned and torn down in the background once paho gives up
// on it. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		if s.client.IsConnectionOpen() {
			s.client.Disconnect(s.quiesce)
			return
		}
		go s.client.Disconnect(0)
	})
	return nil
}
