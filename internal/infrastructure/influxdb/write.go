package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementMessage    = "mqtt_message"
	MeasurementConnection = "mqtt_connection"
)

// WriteMessage records one inbound MQTT message.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Parameters:
//   - brokerID: Broker the message arrived on (tag broker_id)
//   - topic: Message topic (tag)
//   - qos: Delivery QoS (tag)
//   - size: Payload length in bytes (field bytes)
//   - retain: Retain flag (field)
//   - at: Receive time; zero means now
//
// Example:
//
//	client.WriteMessage(1, "sensors/kitchen/temp", 0, 4, false, time.Now())
func (c *Client) WriteMessage(brokerID int64, topic string, qos byte, size int, retain bool, at time.Time) {
	c.WritePointWithTime(MeasurementMessage,
		map[string]string{
			"broker_id": strconv.FormatInt(brokerID, 10),
			"topic":     topic,
			"qos":       strconv.Itoa(int(qos)),
		},
		map[string]interface{}{
			"bytes":  size,
			"retain": retain,
		},
		at,
	)
}

// WriteConnectionState records a broker session state change. The connected
// field is 1 for connected and 0 otherwise so it can be graphed directly.
func (c *Client) WriteConnectionState(brokerID int64, status string, reason string, at time.Time) {
	connected := 0
	if status == "connected" {
		connected = 1
	}
	fields := map[string]interface{}{
		"connected": connected,
	}
	if reason != "" {
		fields["error"] = reason
	}
	c.WritePointWithTime(MeasurementConnection,
		map[string]string{
			"broker_id": strconv.FormatInt(brokerID, 10),
			"status":    status,
		},
		fields,
		at,
	)
}

// WritePointWithTime writes a custom point. A zero timestamp means now.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, timestamp))
}
