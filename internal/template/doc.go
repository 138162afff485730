// Package template keeps reusable publish commands per broker.
//
// A Template holds a topic, payload, format, QoS and retain flag that can be
// published in one call. Topics and payloads may carry {{NAME}} placeholders
// that are expanded from the broker's variables at publish time, so payloads
// that still contain placeholders are only checked against their format once
// expanded. Library adds use counters, categories, JSON export and import,
// and duplication on top of the repository.
package template
