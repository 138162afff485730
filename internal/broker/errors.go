package broker

import "errors"

var (
	// ErrBrokerNotFound is returned when a broker id does not exist.
	ErrBrokerNotFound = errors.New("broker not found")

	// ErrBrokerExists is returned when a broker name is already taken.
	ErrBrokerExists = errors.New("broker name already exists")

	// ErrInvalidBroker is returned when a broker fails validation.
	ErrInvalidBroker = errors.New("invalid broker")
)
