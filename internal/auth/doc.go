// Package auth guards the mqttdesk API with a single API key.
//
// The key itself is never stored: configuration holds its Argon2id hash in
// PHC string form. A client exchanges the key for a short-lived HS256 JWT and
// presents that token as a bearer credential on later requests.
package auth
