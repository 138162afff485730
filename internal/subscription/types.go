package subscription

import "time"

// Subscription is a saved topic filter for one broker.
type Subscription struct {
	ID        int64     `json:"id"`
	BrokerID  int64     `json:"broker_id"`
	Topic     string    `json:"topic"`
	QoS       byte      `json:"qos"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
