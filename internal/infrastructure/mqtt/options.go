package mqtt

import (
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Session defaults, used when the corresponding Options field is zero.
const (
	defaultConnectTimeout    = 10 * time.Second
	defaultDisconnectQuiesce = 250 * time.Millisecond
	defaultEventBuffer       = 100

	// MaxQoS is the highest MQTT QoS level.
	MaxQoS = 2
)

// Protocol levels understood by the engine.
const (
	ProtocolV31  uint = 3
	ProtocolV311 uint = 4
)

// Options describes one broker session.
type Options struct {
	Host string
	Port int

	// TLS enables ssl:// when non-nil.
	TLS *tls.Config

	ClientID string

	// Username enables credentials when non-empty; Password is sent with it.
	Username string
	Password string

	ProtocolVersion uint
	KeepAlive       time.Duration
	CleanSession    bool

	ConnectTimeout    time.Duration
	DisconnectQuiesce time.Duration
	EventBuffer       int
}

// ProtocolVersion maps a stored protocol version string to an engine
// protocol level. exact is false when the requested version is not
// supported and 3.1.1 was substituted.
func ProtocolVersion(version string) (level uint, exact bool) {
	switch strings.TrimSpace(version) {
	case "3.1", "3":
		return ProtocolV31, true
	case "", "3.1.1", "4":
		return ProtocolV311, true
	default:
		return ProtocolV311, false
	}
}

// BrokerURL returns the paho server URL for the options.
func (o Options) BrokerURL() string {
	scheme := "tcp"
	if o.TLS != nil {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s", scheme, net.JoinHostPort(o.Host, strconv.Itoa(o.Port)))
}

func (o Options) validate() error {
	if o.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidOptions)
	}
	if o.Port < 1 || o.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidOptions, o.Port)
	}
	if o.ProtocolVersion != 0 && o.ProtocolVersion != ProtocolV31 && o.ProtocolVersion != ProtocolV311 {
		return fmt.Errorf("%w: protocol level %d", ErrInvalidOptions, o.ProtocolVersion)
	}
	return nil
}

// buildClientOptions creates paho options for a single-shot session.
//
// Reconnection is disabled at every level: a lost or refused connection is
// terminal and surfaces through Poll.
func buildClientOptions(o Options) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(o.BrokerURL())
	opts.SetClientID(o.ClientID)

	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	opts.SetCleanSession(o.CleanSession)
	opts.SetKeepAlive(o.KeepAlive)

	version := o.ProtocolVersion
	if version == 0 {
		version = ProtocolV311
	}
	opts.SetProtocolVersion(version)

	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetResumeSubs(false)

	timeout := o.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	opts.SetConnectTimeout(timeout)

	if o.TLS != nil {
		opts.SetTLSConfig(o.TLS)
	}

	return opts
}
