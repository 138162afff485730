package mqtt

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"
)

// tlsMinVersion is the minimum TLS version for broker connections.
const tlsMinVersion = tls.VersionTLS12

// TLSMaterial is the PEM-encoded certificate material stored with a broker.
// Blank fields are treated as absent.
type TLSMaterial struct {
	CACert     string
	ClientCert string
	ClientKey  string
}

// BuildTLSConfig turns PEM material into a client TLS configuration.
//
// The trust store always starts from the platform roots. A non-blank CACert
// adds every certificate it contains. Client authentication is configured
// only when both ClientCert and ClientKey are non-blank. Nothing is added to
// the trust store unless every CA certificate parses.
//
// Parameters:
//   - m: PEM material as stored with the broker
//
// Returns:
//   - *tls.Config: Client config with TLS 1.2 as the minimum version
//   - error: If a CA certificate, client certificate or key does not parse,
//     or the key does not match the certificate
func BuildTLSConfig(m TLSMaterial) (*tls.Config, error) {
	roots, err := x509.SystemCertPool()
	if err != nil {
		roots = x509.NewCertPool()
	}

	if strings.TrimSpace(m.CACert) != "" {
		certs, err := parseCertificates(m.CACert)
		if err != nil {
			return nil, fmt.Errorf("ca certificate: %w", err)
		}
		for _, cert := range certs {
			roots.AddCert(cert)
		}
	}

	cfg := &tls.Config{
		RootCAs:    roots,
		MinVersion: tlsMinVersion,
	}

	if strings.TrimSpace(m.ClientCert) == "" || strings.TrimSpace(m.ClientKey) == "" {
		return cfg, nil
	}

	identity, err := buildClientIdentity(m.ClientCert, m.ClientKey)
	if err != nil {
		return nil, err
	}
	cfg.Certificates = []tls.Certificate{identity}

	return cfg, nil
}

// parseCertificates decodes every CERTIFICATE block in data.
func parseCertificates(data string) ([]*x509.Certificate, error) {
	var certs []*x509.Certificate
	rest := []byte(data)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCertificateParse, err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: no PEM certificate blocks", ErrCertificateParse)
	}
	return certs, nil
}

func buildClientIdentity(certPEM, keyPEM string) (tls.Certificate, error) {
	chain, err := parseCertificates(certPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("client certificate: %w", err)
	}

	key, err := parsePrivateKey(keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("client key: %w", err)
	}

	leaf := chain[0]
	signer, ok := key.(crypto.Signer)
	if !ok {
		return tls.Certificate{}, fmt.Errorf("%w: unsupported key type %T", ErrClientAuthConfig, key)
	}
	pub, ok := signer.Public().(interface{ Equal(crypto.PublicKey) bool })
	if !ok || !pub.Equal(leaf.PublicKey) {
		return tls.Certificate{}, fmt.Errorf("%w: private key does not match certificate", ErrClientAuthConfig)
	}

	identity := tls.Certificate{
		PrivateKey: key,
		Leaf:       leaf,
	}
	for _, cert := range chain {
		identity.Certificate = append(identity.Certificate, cert.Raw)
	}
	return identity, nil
}

// parsePrivateKey returns the first private key block in data.
func parsePrivateKey(data string) (crypto.PrivateKey, error) {
	rest := []byte(data)
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			return nil, ErrNoPrivateKey
		}

		switch block.Type {
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrKeyParse, err)
			}
			return key, nil
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrKeyParse, err)
			}
			return key, nil
		case "EC PRIVATE KEY":
			key, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrKeyParse, err)
			}
			return key, nil
		case "ENCRYPTED PRIVATE KEY":
			return nil, fmt.Errorf("%w: %w", ErrKeyParse, errors.New("encrypted keys are not supported"))
		}
	}
}
