package mqtt

import "errors"

// TLS material errors. The connection layer wraps these under its own
// TLS configuration error, so errors.Is matches at both levels.
var (
	// ErrCertificateParse is returned when CA or client certificate PEM is
	// malformed or contains no certificate.
	ErrCertificateParse = errors.New("mqtt: failed to parse certificate")

	// ErrKeyParse is returned when the client key PEM block cannot be decoded
	// as a PKCS#1, PKCS#8 or SEC 1 private key.
	ErrKeyParse = errors.New("mqtt: failed to parse private key")

	// ErrNoPrivateKey is returned when the client key PEM holds no private key block.
	ErrNoPrivateKey = errors.New("mqtt: no private key found")

	// ErrClientAuthConfig is returned when a parsed certificate and key cannot
	// be combined into a client identity (for example, they do not match).
	ErrClientAuthConfig = errors.New("mqtt: failed to configure client auth")
)

// Session errors.
var (
	// ErrSessionClosed is returned by Poll and the request methods after Close.
	ErrSessionClosed = errors.New("mqtt: session closed")

	// ErrInvalidOptions is returned by NewSession for options that cannot
	// describe a broker endpoint.
	ErrInvalidOptions = errors.New("mqtt: invalid session options")
)
