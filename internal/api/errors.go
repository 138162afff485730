package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/mqttdesk/internal/auth"
	"github.com/nerrad567/mqttdesk/internal/broker"
	"github.com/nerrad567/mqttdesk/internal/connection"
	"github.com/nerrad567/mqttdesk/internal/envvar"
	"github.com/nerrad567/mqttdesk/internal/history"
	"github.com/nerrad567/mqttdesk/internal/subscription"
	"github.com/nerrad567/mqttdesk/internal/template"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeNotFound       = "not_found"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeConflict       = "conflict"
	ErrCodeInternal       = "internal_error"
	ErrCodeValidation     = "validation_error"
	ErrCodeNotConnected   = "not_connected"
	ErrCodeTLSConfig      = "tls_config_error"
	ErrCodeTransport      = "transport_error"
	ErrCodeUnavailable    = "unavailable"
	ErrCodeAuthDisabled   = "auth_disabled"
	ErrCodeRequestTimeout = "request_timeout"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// errorMapping pairs a sentinel with the response it produces.
type errorMapping struct {
	target error
	status int
	code   string
}

var domainErrors = []errorMapping{
	{broker.ErrBrokerNotFound, http.StatusNotFound, ErrCodeNotFound},
	{subscription.ErrSubscriptionNotFound, http.StatusNotFound, ErrCodeNotFound},
	{template.ErrTemplateNotFound, http.StatusNotFound, ErrCodeNotFound},
	{envvar.ErrVariableNotFound, http.StatusNotFound, ErrCodeNotFound},
	{broker.ErrInvalidBroker, http.StatusBadRequest, ErrCodeValidation},
	{subscription.ErrInvalidSubscription, http.StatusBadRequest, ErrCodeValidation},
	{template.ErrInvalidTemplate, http.StatusBadRequest, ErrCodeValidation},
	{envvar.ErrInvalidVariable, http.StatusBadRequest, ErrCodeValidation},
	{history.ErrInvalidPayload, http.StatusBadRequest, ErrCodeValidation},
	{connection.ErrInvalidQoS, http.StatusBadRequest, ErrCodeValidation},
	{connection.ErrInvalidTopic, http.StatusBadRequest, ErrCodeValidation},
	{connection.ErrMissingID, http.StatusBadRequest, ErrCodeValidation},
	{connection.ErrTLSConfig, http.StatusBadRequest, ErrCodeTLSConfig},
	{broker.ErrBrokerExists, http.StatusConflict, ErrCodeConflict},
	{subscription.ErrSubscriptionExists, http.StatusConflict, ErrCodeConflict},
	{envvar.ErrVariableExists, http.StatusConflict, ErrCodeConflict},
	{connection.ErrNotConnected, http.StatusConflict, ErrCodeNotConnected},
	{connection.ErrTransport, http.StatusBadGateway, ErrCodeTransport},
	{connection.ErrManagerClosed, http.StatusServiceUnavailable, ErrCodeUnavailable},
	{auth.ErrInvalidCredentials, http.StatusUnauthorized, ErrCodeUnauthorized},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, ErrCodeRequestTimeout},
}

// writeDomainError maps a package sentinel error to its HTTP response.
// Unrecognised errors are logged and reported as 500 without detail.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range domainErrors {
		if errors.Is(err, m.target) {
			writeError(w, m.status, m.code, err.Error())
			return
		}
	}
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
		"request_id", r.Context().Value(ctxKeyRequestID),
	)
	writeInternalError(w, "internal server error")
}
