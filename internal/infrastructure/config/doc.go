// Package config loads and validates mqttdesk configuration.
//
// Configuration comes from three layers, later layers winning:
//   - Built-in defaults
//   - A YAML file (configs/config.yaml unless overridden)
//   - MQTTDESK_* environment variables
//
// Per-broker settings are not part of this file; they are records in the
// database managed through the API. This package only holds settings that
// apply to the process as a whole.
//
// Secrets (JWT signing secret, InfluxDB token) should be supplied through the
// environment rather than committed to the file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.API.Port)
package config
