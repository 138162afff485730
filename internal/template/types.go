package template

import (
	"time"

	"github.com/nerrad567/mqttdesk/internal/history"
)

// Template is a saved publish command for one broker.
type Template struct {
	ID            int64          `json:"id"`
	BrokerID      int64          `json:"broker_id"`
	Name          string         `json:"name"`
	Topic         string         `json:"topic"`
	Payload       string         `json:"payload"`
	PayloadFormat history.Format `json:"payload_format"`
	QoS           byte           `json:"qos"`
	Retain        bool           `json:"retain"`
	Description   string         `json:"description,omitempty"`
	Category      string         `json:"category,omitempty"`
	UseCount      int64          `json:"use_count"`
	LastUsedAt    *time.Time     `json:"last_used_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Name          *string `json:"name"`
	Topic         *string `json:"topic"`
	Payload       *string `json:"payload"`
	PayloadFormat *string `json:"payload_format"`
	QoS           *int    `json:"qos"`
	Retain        *bool   `json:"retain"`
	Description   *string `json:"description"`
	Category      *string `json:"category"`
}
