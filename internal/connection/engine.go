package connection

import (
	"context"

	"github.com/nerrad567/mqttdesk/internal/infrastructure/mqtt"
)

// Engine is one protocol session as seen by a driver.
//
// Poll blocks until the next event, a transport error, or ctx is done. Any
// error ends the session. The request methods return once the engine has
// accepted the request for transmission, not when the broker acknowledges it.
type Engine interface {
	Poll(ctx context.Context) (mqtt.Event, error)
	Publish(ctx context.Context, topic string, payload []byte, qos byte, retain bool) error
	Subscribe(ctx context.Context, topic string, qos byte) error
	Unsubscribe(ctx context.Context, topic string) error
	Close() error
}

// EngineFactory creates an unconnected Engine for the given options.
type EngineFactory func(opts mqtt.Options) (Engine, error)

// PahoEngine returns a factory producing paho-backed sessions.
func PahoEngine(logger mqtt.Logger) EngineFactory {
	return func(opts mqtt.Options) (Engine, error) {
		s, err := mqtt.NewSession(opts, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
