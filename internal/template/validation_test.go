package template

import (
	"errors"
	"testing"

	"github.com/nerrad567/mqttdesk/internal/history"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		tpl   Template
		valid bool
	}{
		{"text", Template{BrokerID: 1, Name: "on", Topic: "home/light/set", Payload: "ON"}, true},
		{"json", Template{BrokerID: 1, Name: "j", Topic: "t", Payload: `{"a":1}`, PayloadFormat: history.FormatJSON}, true},
		{"hex", Template{BrokerID: 1, Name: "h", Topic: "t", Payload: "de ad", PayloadFormat: history.FormatHex}, true},
		{"json with placeholder", Template{BrokerID: 1, Name: "p", Topic: "t", Payload: `{"a":{{LEVEL}}}`, PayloadFormat: history.FormatJSON}, true},
		{"topic placeholder", Template{BrokerID: 1, Name: "p", Topic: "home/{{ROOM}}/set"}, true},
		{"qos 2", Template{BrokerID: 1, Name: "q", Topic: "t", QoS: 2}, true},
		{"no broker", Template{Name: "n", Topic: "t"}, false},
		{"blank name", Template{BrokerID: 1, Name: "  ", Topic: "t"}, false},
		{"no topic", Template{BrokerID: 1, Name: "n"}, false},
		{"plus wildcard", Template{BrokerID: 1, Name: "n", Topic: "a/+/b"}, false},
		{"hash wildcard", Template{BrokerID: 1, Name: "n", Topic: "a/#"}, false},
		{"qos 3", Template{BrokerID: 1, Name: "n", Topic: "t", QoS: 3}, false},
		{"bad format", Template{BrokerID: 1, Name: "n", Topic: "t", PayloadFormat: "xml"}, false},
		{"bad json", Template{BrokerID: 1, Name: "n", Topic: "t", Payload: "{", PayloadFormat: history.FormatJSON}, false},
		{"bad hex", Template{BrokerID: 1, Name: "n", Topic: "t", Payload: "zz", PayloadFormat: history.FormatHex}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(&tt.tpl)
			if tt.valid && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidTemplate) {
				t.Errorf("Validate() error = %v, want ErrInvalidTemplate", err)
			}
		})
	}
}

func TestValidate_Normalises(t *testing.T) {
	tpl := Template{BrokerID: 1, Name: "  lights on ", Topic: "t", Category: " home ", PayloadFormat: "JSON", Payload: "1"}
	if err := Validate(&tpl); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if tpl.Name != "lights on" || tpl.Category != "home" {
		t.Errorf("Name = %q, Category = %q, want trimmed", tpl.Name, tpl.Category)
	}
	if tpl.PayloadFormat != history.FormatJSON {
		t.Errorf("PayloadFormat = %q, want json", tpl.PayloadFormat)
	}

	plain := Template{BrokerID: 1, Name: "n", Topic: "t"}
	if err := Validate(&plain); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if plain.PayloadFormat != history.FormatText {
		t.Errorf("default PayloadFormat = %q, want text", plain.PayloadFormat)
	}
}
