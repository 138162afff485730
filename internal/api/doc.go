// Package api implements the HTTP REST API and WebSocket server for mqttdesk.
//
// This package provides:
//   - REST endpoints for broker definitions and saved subscriptions
//   - Session commands (connect, disconnect, publish, subscribe) routed to
//     the connection manager
//   - Publish templates and per-broker variables; every publish expands
//     {{NAME}} placeholders from the broker's variables first
//   - Message history paging
//   - A WebSocket hub that relays connection state changes and received
//     messages; the hub is itself a connection.Sink
//   - Middleware stack (request ID, logging, recovery, CORS, body limit,
//     optional bearer-token auth)
//
// # Security
//
// Authentication is off unless security.api_key_hash is configured. When on,
// clients exchange the API key for a JWT at POST /api/v1/auth/token and send
// it as a bearer token. Browsers connecting to /api/v1/ws may pass the token
// in the token query parameter instead.
package api
