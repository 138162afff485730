package history

import "errors"

var (
	// ErrInvalidPayload is returned when a payload does not match its format.
	ErrInvalidPayload = errors.New("invalid payload")

	// ErrRecorderClosed is returned by Start after Close.
	ErrRecorderClosed = errors.New("recorder closed")
)
