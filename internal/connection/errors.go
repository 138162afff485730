package connection

import (
	"errors"
	"fmt"

	"github.com/nerrad567/mqttdesk/internal/infrastructure/mqtt"
)

// Domain-specific errors for connection operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrMissingID is returned by Connect for a config without an identifier.
	ErrMissingID = errors.New("connection: broker id is required")

	// ErrTLSConfig wraps any failure to build TLS settings from broker PEM
	// material. The underlying mqtt.ErrCertificateParse, mqtt.ErrKeyParse,
	// mqtt.ErrNoPrivateKey or mqtt.ErrClientAuthConfig is also matchable.
	ErrTLSConfig = errors.New("connection: invalid TLS configuration")

	// ErrNotConnected is returned when no live session exists for the broker.
	ErrNotConnected = errors.New("connection: not connected")

	// ErrInvalidQoS is returned for QoS values other than 0, 1 or 2.
	ErrInvalidQoS = errors.New("connection: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic is returned for an empty topic.
	ErrInvalidTopic = errors.New("connection: topic cannot be empty")

	// ErrTransport marks network or protocol failures reported by the engine.
	ErrTransport = errors.New("connection: transport error")

	// ErrConnectionRefused matches a *RefusedError.
	ErrConnectionRefused = errors.New("connection: refused by broker")

	// ErrManagerClosed is returned by Connect after Shutdown.
	ErrManagerClosed = errors.New("connection: manager is shut down")
)

// RefusedError is a negative CONNACK from the broker.
type RefusedError struct {
	Code byte
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("connection refused: %s (code %d)", mqtt.ReturnCodeText(e.Code), e.Code)
}

// Is reports whether target is ErrConnectionRefused.
func (e *RefusedError) Is(target error) bool {
	return target == ErrConnectionRefused
}

// TransportError is a network or protocol failure reported by the engine.
// Connected records whether the broker had accepted the session first.
type TransportError struct {
	Connected bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Connected {
		return fmt.Sprintf("connection error: %v", e.Err)
	}
	return fmt.Sprintf("failed to connect: %v", e.Err)
}

// Unwrap returns the engine error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
