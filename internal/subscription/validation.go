package subscription

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxTopicLength = 65535

// ValidateFilter checks an MQTT topic filter: non-empty UTF-8 without NUL,
// with '#' only as the whole last level and '+' only as a whole level.
func ValidateFilter(filter string) error {
	if filter == "" {
		return fmt.Errorf("%w: topic is required", ErrInvalidSubscription)
	}
	if len(filter) > maxTopicLength {
		return fmt.Errorf("%w: topic exceeds %d bytes", ErrInvalidSubscription, maxTopicLength)
	}
	if !utf8.ValidString(filter) || strings.ContainsRune(filter, 0) {
		return fmt.Errorf("%w: topic must be valid UTF-8 without NUL", ErrInvalidSubscription)
	}

	levels := strings.Split(filter, "/")
	for i, level := range levels {
		switch {
		case level == "#":
			if i != len(levels)-1 {
				return fmt.Errorf("%w: '#' must be the last level", ErrInvalidSubscription)
			}
		case strings.Contains(level, "#"):
			return fmt.Errorf("%w: '#' must occupy a whole level", ErrInvalidSubscription)
		case level != "+" && strings.Contains(level, "+"):
			return fmt.Errorf("%w: '+' must occupy a whole level", ErrInvalidSubscription)
		}
	}
	return nil
}

// Validate checks a subscription before it is saved.
func Validate(s *Subscription) error {
	if s.BrokerID == 0 {
		return fmt.Errorf("%w: broker id is required", ErrInvalidSubscription)
	}
	if s.QoS > 2 {
		return fmt.Errorf("%w: qos must be 0, 1 or 2", ErrInvalidSubscription)
	}
	return ValidateFilter(s.Topic)
}
