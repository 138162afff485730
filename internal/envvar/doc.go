// Package envvar stores per-broker variables and expands {{NAME}}
// placeholders in topics and payloads before they are published.
//
// Placeholders whose name has no variable are left as written, so a
// publish never fails because a variable is missing. Undefined reports
// them for callers that want to warn.
package envvar
