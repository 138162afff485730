// Package history records published and received MQTT messages per broker.
//
// The Recorder is a connection.Sink. Inbound messages are queued and written
// by a single worker so a slow disk never stalls a broker session; when the
// queue is full the record is dropped and counted. Outbound publishes are
// recorded through the same queue by RecordPublish.
//
// Payloads are stored as raw bytes together with a detected format (json,
// text or hex) that controls how they are rendered back to clients.
package history
