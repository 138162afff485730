package connection

import (
	"context"
	"time"

	"github.com/nerrad567/mqttdesk/internal/infrastructure/mqtt"
)

// driver runs the event loop for one handle. It owns the engine's lifetime
// but not the registry slot; on exit it removes the slot only if it still
// holds its own handle.
type driver struct {
	id       int64
	handle   *handle
	registry *Registry
	sink     Sink
	logger   Logger
}

// run polls until shutdown, a refusal, or a transport error. Each iteration
// checks the shutdown signal before polling, and the poll itself is cancelled
// by the signal, so shutdown is never delayed by a quiet broker.
func (d *driver) run(ctx context.Context) {
	defer d.finish()

	pollCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-d.handle.shutdown:
			cancel()
		case <-pollCtx.Done():
		}
	}()

	connected := false
	for {
		if d.handle.signalled() {
			d.emit(StatusDisconnected, nil)
			return
		}

		ev, err := d.handle.engine.Poll(pollCtx)
		if err != nil {
			if d.handle.signalled() || ctx.Err() != nil {
				d.emit(StatusDisconnected, nil)
				return
			}
			d.emit(StatusError, &TransportError{Connected: connected, Err: err})
			return
		}

		switch ev.Kind {
		case mqtt.EventConnAck:
			if !ev.Accepted() {
				d.emit(StatusError, &RefusedError{Code: ev.ReturnCode})
				return
			}
			connected = true
			d.handle.accepted.Store(true)
			d.logger.Info("broker connected", "broker_id", d.id, "session_present", ev.SessionPresent)
			d.emit(StatusConnected, nil)

		case mqtt.EventPublish:
			d.sink.MessageReceived(Message{
				BrokerID:  d.id,
				Topic:     ev.Message.Topic,
				Payload:   ev.Message.Payload,
				QoS:       ev.Message.QoS,
				Retain:    ev.Message.Retain,
				Timestamp: time.Now().UTC(),
			})

		default:
			d.logger.Debug("protocol event ignored", "broker_id", d.id, "event", ev.Kind.String(), "topic", ev.Topic)
		}
	}
}

func (d *driver) emit(status Status, cause error) {
	ev := StateEvent{
		BrokerID:  d.id,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Err:       cause,
	}
	if cause != nil {
		ev.Error = cause.Error()
		d.logger.Warn("broker session failed", "broker_id", d.id, "error", cause)
	}
	d.sink.ConnectionStateChanged(ev)
}

// finish closes the engine before releasing the registry slot, so a handle
// absent from the registry never has a live engine behind it.
func (d *driver) finish() {
	if r := recover(); r != nil {
		d.logger.Error("driver panic recovered", "broker_id", d.id, "panic", r)
	}
	if err := d.handle.engine.Close(); err != nil {
		d.logger.Warn("closing session", "broker_id", d.id, "error", err)
	}
	d.registry.removeHandle(d.id, d.handle)
	close(d.handle.done)
	d.logger.Debug("driver exited", "broker_id", d.id)
}
