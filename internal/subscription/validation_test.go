package subscription

import (
	"errors"
	"testing"
)

func TestValidateFilter(t *testing.T) {
	tests := []struct {
		filter string
		valid  bool
	}{
		{"a/b/c", true},
		{"#", true},
		{"+", true},
		{"sensors/+/temp", true},
		{"sensors/#", true},
		{"+/+/#", true},
		{"/leading/slash", true},
		{"", false},
		{"a/#/b", false},
		{"a#", false},
		{"sensors/temp+", false},
		{"a\x00b", false},
		{string([]byte{0xff, 0xfe}), false},
	}

	for _, tt := range tests {
		t.Run(tt.filter, func(t *testing.T) {
			err := ValidateFilter(tt.filter)
			if tt.valid && err != nil {
				t.Errorf("ValidateFilter(%q) error = %v, want nil", tt.filter, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidSubscription) {
				t.Errorf("ValidateFilter(%q) error = %v, want ErrInvalidSubscription", tt.filter, err)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(&Subscription{BrokerID: 1, Topic: "t", QoS: 2}); err != nil {
		t.Errorf("Validate() valid error = %v", err)
	}
	if err := Validate(&Subscription{BrokerID: 1, Topic: "t", QoS: 3}); !errors.Is(err, ErrInvalidSubscription) {
		t.Errorf("Validate() qos 3 error = %v", err)
	}
	if err := Validate(&Subscription{Topic: "t"}); !errors.Is(err, ErrInvalidSubscription) {
		t.Errorf("Validate() missing broker error = %v", err)
	}
}
