package template

import (
	"fmt"
	"strings"

	"github.com/nerrad567/mqttdesk/internal/history"
)

// Validate normalises and checks a template before it is saved. The payload
// format defaults to text. A payload is checked against its format only
// when it has no {{NAME}} placeholders left to expand.
func Validate(t *Template) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Category = strings.TrimSpace(t.Category)

	if t.BrokerID == 0 {
		return fmt.Errorf("%w: broker id is required", ErrInvalidTemplate)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	if t.Topic == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidTemplate)
	}
	if strings.ContainsAny(t.Topic, "+#") {
		return fmt.Errorf("%w: wildcards are not allowed in a publish topic", ErrInvalidTemplate)
	}
	if t.QoS > 2 {
		return fmt.Errorf("%w: qos must be 0, 1 or 2", ErrInvalidTemplate)
	}

	format, err := history.ParseFormat(string(t.PayloadFormat))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}
	t.PayloadFormat = format

	if !strings.Contains(t.Payload, "{{") {
		if _, err := history.DecodePayload(t.Payload, format); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
		}
	}
	return nil
}

// apply copies the set fields of p onto t.
func (p Patch) apply(t *Template) error {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Topic != nil {
		t.Topic = *p.Topic
	}
	if p.Payload != nil {
		t.Payload = *p.Payload
	}
	if p.PayloadFormat != nil {
		t.PayloadFormat = history.Format(*p.PayloadFormat)
	}
	if p.QoS != nil {
		if *p.QoS < 0 || *p.QoS > 2 {
			return fmt.Errorf("%w: qos must be 0, 1 or 2", ErrInvalidTemplate)
		}
		t.QoS = byte(*p.QoS)
	}
	if p.Retain != nil {
		t.Retain = *p.Retain
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	return nil
}
