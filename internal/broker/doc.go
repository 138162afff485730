// Package broker stores MQTT broker definitions for mqttdesk.
//
// A Broker is the persisted form of a connection target: address, protocol
// options, credentials and TLS material. The SQLiteRepository persists
// brokers; Store layers an LRU cache on top and is what the API and the
// connection layer read from.
//
// Broker.ConnectionConfig converts a record into the connection.BrokerConfig
// consumed by connection.Manager.Connect.
package broker
