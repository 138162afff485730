package connection

import "time"

// BrokerConfig is everything needed to open a session to one broker.
// TLS material is only consulted when UseTLS is set.
type BrokerConfig struct {
	ID   int64
	Host string
	Port int

	// ProtocolVersion is "3.1" or "3.1.1"; empty means 3.1.1.
	ProtocolVersion  string
	KeepAliveSeconds int
	CleanSession     bool

	// Credentials are sent only when Username is non-empty.
	Username string
	Password string

	// ClientID is generated when empty.
	ClientID string

	UseTLS     bool
	CACert     string
	ClientCert string
	ClientKey  string
}

// Status is the lifecycle state of a broker session.
type Status string

// Session states.
const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusError        Status = "error"
)

// StateEvent reports a state transition for one broker.
type StateEvent struct {
	BrokerID  int64     `json:"broker_id"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// Err is the classified cause for StatusError; match it with errors.Is
	// against ErrTransport, ErrConnectionRefused or ErrTLSConfig.
	Err error `json:"-"`
}

// Message is an inbound application message from a broker.
type Message struct {
	BrokerID  int64     `json:"broker_id"`
	Topic     string    `json:"topic"`
	Payload   []byte    `json:"payload"`
	QoS       byte      `json:"qos"`
	Retain    bool      `json:"retain"`
	Timestamp time.Time `json:"timestamp"`
}
