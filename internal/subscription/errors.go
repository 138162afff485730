package subscription

import "errors"

var (
	// ErrSubscriptionNotFound is returned when a subscription id does not exist.
	ErrSubscriptionNotFound = errors.New("subscription not found")

	// ErrSubscriptionExists is returned when the broker already has the topic saved.
	ErrSubscriptionExists = errors.New("subscription already exists")

	// ErrInvalidSubscription is returned when a topic filter or QoS is invalid.
	ErrInvalidSubscription = errors.New("invalid subscription")
)
