package broker

import (
	"time"

	"github.com/nerrad567/mqttdesk/internal/connection"
)

// Protocol versions accepted in broker definitions.
const (
	ProtocolV31  = "3.1"
	ProtocolV311 = "3.1.1"
	ProtocolV5   = "5.0"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultPort      = 1883
	DefaultTLSPort   = 8883
	DefaultKeepAlive = 60
)

// Broker is a saved MQTT broker definition.
type Broker struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	ProtocolVersion string `json:"protocol_version"`
	Username        string `json:"username,omitempty"`
	Password        string `json:"password,omitempty"`
	ClientID        string `json:"client_id,omitempty"`
	KeepAlive       int    `json:"keep_alive"`
	CleanSession    bool   `json:"clean_session"`

	UseTLS     bool   `json:"use_tls"`
	CACert     string `json:"ca_cert,omitempty"`
	ClientCert string `json:"client_cert,omitempty"`
	ClientKey  string `json:"client_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConnectionConfig returns the session parameters for b.
func (b *Broker) ConnectionConfig() connection.BrokerConfig {
	return connection.BrokerConfig{
		ID:               b.ID,
		Host:             b.Host,
		Port:             b.Port,
		ProtocolVersion:  b.ProtocolVersion,
		KeepAliveSeconds: b.KeepAlive,
		CleanSession:     b.CleanSession,
		Username:         b.Username,
		Password:         b.Password,
		ClientID:         b.ClientID,
		UseTLS:           b.UseTLS,
		CACert:           b.CACert,
		ClientCert:       b.ClientCert,
		ClientKey:        b.ClientKey,
	}
}

// Redacted returns a copy of b without the password and client key.
func (b Broker) Redacted() Broker {
	if b.Password != "" {
		b.Password = redacted
	}
	if b.ClientKey != "" {
		b.ClientKey = redacted
	}
	return b
}

const redacted = "********"
