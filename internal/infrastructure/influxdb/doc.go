// Package influxdb writes mqttdesk telemetry to InfluxDB 2.x.
//
// It wraps the official influxdb-client-go v2 client: Connect pings the
// server and opens a batched, non-blocking write API. WriteMessage and
// WriteConnectionState produce the mqtt_message and mqtt_connection
// measurements; asynchronous write failures are delivered to the callback
// set with SetOnError.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package influxdb
