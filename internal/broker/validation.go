package broker

import (
	"fmt"
	"strings"
)

const (
	maxNameLength = 100
	maxHostLength = 253
	maxPEMLength  = 64 * 1024
)

var validProtocols = map[string]struct{}{
	ProtocolV31:  {},
	ProtocolV311: {},
	ProtocolV5:   {},
}

// ApplyDefaults fills zero-valued optional fields. A new broker has
// CleanSession true; callers creating from partial input set it explicitly.
func ApplyDefaults(b *Broker) {
	b.Name = strings.TrimSpace(b.Name)
	b.Host = strings.TrimSpace(b.Host)
	if b.Port == 0 {
		if b.UseTLS {
			b.Port = DefaultTLSPort
		} else {
			b.Port = DefaultPort
		}
	}
	if b.ProtocolVersion == "" {
		b.ProtocolVersion = ProtocolV311
	}
	if b.KeepAlive == 0 {
		b.KeepAlive = DefaultKeepAlive
	}
}

// Validate checks b for errors. All problems are reported together.
func Validate(b *Broker) error {
	var errs []string

	switch {
	case b.Name == "":
		errs = append(errs, "name is required")
	case len(b.Name) > maxNameLength:
		errs = append(errs, fmt.Sprintf("name exceeds %d characters", maxNameLength))
	}

	switch {
	case b.Host == "":
		errs = append(errs, "host is required")
	case len(b.Host) > maxHostLength:
		errs = append(errs, fmt.Sprintf("host exceeds %d characters", maxHostLength))
	case strings.ContainsAny(b.Host, " /"):
		errs = append(errs, "host must be a hostname or IP address")
	}

	if b.Port < 1 || b.Port > 65535 {
		errs = append(errs, "port must be between 1 and 65535")
	}
	if b.KeepAlive < 0 {
		errs = append(errs, "keep_alive must not be negative")
	}
	if _, ok := validProtocols[b.ProtocolVersion]; !ok {
		errs = append(errs, fmt.Sprintf("protocol_version %q is not supported", b.ProtocolVersion))
	}

	for _, f := range []struct{ name, pem string }{
		{"ca_cert", b.CACert},
		{"client_cert", b.ClientCert},
		{"client_key", b.ClientKey},
	} {
		if len(f.pem) > maxPEMLength {
			errs = append(errs, fmt.Sprintf("%s exceeds %d bytes", f.name, maxPEMLength))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidBroker, strings.Join(errs, "; "))
	}
	return nil
}
