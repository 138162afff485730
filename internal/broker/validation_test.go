package broker

import (
	"errors"
	"strings"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	tests := []struct {
		name     string
		in       Broker
		wantPort int
	}{
		{name: "plain", in: Broker{Name: "a", Host: "h"}, wantPort: DefaultPort},
		{name: "tls", in: Broker{Name: "a", Host: "h", UseTLS: true}, wantPort: DefaultTLSPort},
		{name: "explicit port kept", in: Broker{Name: "a", Host: "h", Port: 2000, UseTLS: true}, wantPort: 2000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.in
			ApplyDefaults(&b)
			if b.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", b.Port, tt.wantPort)
			}
			if b.ProtocolVersion != ProtocolV311 {
				t.Errorf("ProtocolVersion = %q, want %q", b.ProtocolVersion, ProtocolV311)
			}
			if b.KeepAlive != DefaultKeepAlive {
				t.Errorf("KeepAlive = %d, want %d", b.KeepAlive, DefaultKeepAlive)
			}
		})
	}
}

func TestApplyDefaults_TrimsNameAndHost(t *testing.T) {
	b := Broker{Name: "  local  ", Host: " 10.0.0.1 "}
	ApplyDefaults(&b)
	if b.Name != "local" || b.Host != "10.0.0.1" {
		t.Errorf("got name %q host %q", b.Name, b.Host)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Broker {
		b := &Broker{Name: "local", Host: "localhost"}
		ApplyDefaults(b)
		return b
	}

	tests := []struct {
		name    string
		mutate  func(*Broker)
		wantErr string
	}{
		{name: "valid", mutate: func(*Broker) {}},
		{name: "protocol 3.1", mutate: func(b *Broker) { b.ProtocolVersion = ProtocolV31 }},
		{name: "protocol 5.0", mutate: func(b *Broker) { b.ProtocolVersion = ProtocolV5 }},
		{name: "missing name", mutate: func(b *Broker) { b.Name = "" }, wantErr: "name is required"},
		{name: "long name", mutate: func(b *Broker) { b.Name = strings.Repeat("n", maxNameLength+1) }, wantErr: "name exceeds"},
		{name: "missing host", mutate: func(b *Broker) { b.Host = "" }, wantErr: "host is required"},
		{name: "host with path", mutate: func(b *Broker) { b.Host = "mqtt://x/y" }, wantErr: "hostname or IP"},
		{name: "port zero", mutate: func(b *Broker) { b.Port = 0 }, wantErr: "port"},
		{name: "port too high", mutate: func(b *Broker) { b.Port = 65536 }, wantErr: "port"},
		{name: "negative keep alive", mutate: func(b *Broker) { b.KeepAlive = -1 }, wantErr: "keep_alive"},
		{name: "unknown protocol", mutate: func(b *Broker) { b.ProtocolVersion = "4.0" }, wantErr: "protocol_version"},
		{name: "huge ca cert", mutate: func(b *Broker) { b.CACert = strings.Repeat("x", maxPEMLength+1) }, wantErr: "ca_cert"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid()
			tt.mutate(b)
			err := Validate(b)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidBroker) {
				t.Fatalf("Validate() error = %v, want ErrInvalidBroker", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	err := Validate(&Broker{ProtocolVersion: ProtocolV311})
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	for _, want := range []string{"name is required", "host is required", "port"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Validate() error = %v, missing %q", err, want)
		}
	}
}

func TestBroker_ConnectionConfig(t *testing.T) {
	b := &Broker{
		ID: 3, Host: "h", Port: 8883, ProtocolVersion: ProtocolV31, KeepAlive: 15,
		CleanSession: true, Username: "u", Password: "p", ClientID: "c",
		UseTLS: true, CACert: "ca", ClientCert: "cert", ClientKey: "key",
	}
	cfg := b.ConnectionConfig()

	if cfg.ID != 3 || cfg.Host != "h" || cfg.Port != 8883 {
		t.Errorf("address = %+v", cfg)
	}
	if cfg.ProtocolVersion != ProtocolV31 || cfg.KeepAliveSeconds != 15 || !cfg.CleanSession {
		t.Errorf("session options = %+v", cfg)
	}
	if cfg.Username != "u" || cfg.Password != "p" || cfg.ClientID != "c" {
		t.Errorf("identity = %+v", cfg)
	}
	if !cfg.UseTLS || cfg.CACert != "ca" || cfg.ClientCert != "cert" || cfg.ClientKey != "key" {
		t.Errorf("tls = %+v", cfg)
	}
}

func TestBroker_Redacted(t *testing.T) {
	b := Broker{Password: "secret", ClientKey: "key", ClientCert: "cert"}
	r := b.Redacted()

	if r.Password != redacted || r.ClientKey != redacted {
		t.Errorf("Redacted() = %+v", r)
	}
	if r.ClientCert != "cert" {
		t.Errorf("ClientCert = %q, want unchanged", r.ClientCert)
	}
	if b.Password != "secret" {
		t.Error("Redacted() modified the receiver")
	}

	empty := Broker{}.Redacted()
	if empty.Password != "" || empty.ClientKey != "" {
		t.Errorf("Redacted() of empty secrets = %+v, want empty", empty)
	}
}
