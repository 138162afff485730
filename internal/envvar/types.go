package envvar

import "time"

// Variable is a named value scoped to one broker.
type Variable struct {
	ID          int64     `json:"id"`
	BrokerID    int64     `json:"broker_id"`
	Name        string    `json:"name"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
