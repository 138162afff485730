package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nerrad567/mqttdesk/internal/connection"
	"github.com/nerrad567/mqttdesk/internal/envvar"
	"github.com/nerrad567/mqttdesk/internal/history"
	"github.com/nerrad567/mqttdesk/internal/subscription"
)

type publishRequest struct {
	Topic         string `json:"topic"`
	Payload       string `json:"payload"`
	PayloadFormat string `json:"payload_format"`
	QoS           int    `json:"qos"`
	Retain        bool   `json:"retain"`
}

type topicRequest struct {
	Topic string `json:"topic"`
	QoS   int    `json:"qos"`
}

// qosByte narrows a requested QoS. Values that do not fit a byte are
// rejected here; the session rejects the rest of the out-of-range values.
func qosByte(qos int) (byte, error) {
	if qos < 0 || qos > 255 {
		return 0, fmt.Errorf("%w: got %d", connection.ErrInvalidQoS, qos)
	}
	return byte(qos), nil
}

// handlePublish sends a message through a broker's session and records it
// in the message history.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	resp, ok := s.publish(w, r, id, req)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// publish expands the broker's {{NAME}} variables in the topic and payload,
// validates the result, then publishes and records it. On failure it writes
// the error response and returns false. Placeholders with no variable are
// sent as written and listed under "unresolved".
func (s *Server) publish(w http.ResponseWriter, r *http.Request, id int64, req publishRequest) (map[string]any, bool) {
	vars, err := s.variables.Values(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, false
	}
	topic := envvar.Expand(req.Topic, vars)
	if strings.ContainsAny(topic, "+#") {
		s.writeDomainError(w, r, fmt.Errorf("%w: wildcards are not allowed when publishing", connection.ErrInvalidTopic))
		return nil, false
	}

	format, err := history.ParseFormat(req.PayloadFormat)
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, false
	}
	payload, err := history.DecodePayload(envvar.Expand(req.Payload, vars), format)
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, false
	}
	qos, err := qosByte(req.QoS)
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, false
	}

	if err := s.sessions.Publish(r.Context(), id, topic, payload, qos, req.Retain); err != nil {
		s.writeDomainError(w, r, err)
		return nil, false
	}

	if s.recorder != nil {
		s.recorder.RecordPublish(id, topic, payload, format, qos, req.Retain)
	}

	resp := map[string]any{
		"broker_id": id,
		"topic":     topic,
		"qos":       qos,
		"bytes":     len(payload),
	}
	if missing := envvar.Undefined(req.Topic+"\n"+req.Payload, vars); len(missing) > 0 {
		resp["unresolved"] = missing
	}
	return resp, true
}

// handleSubscribe subscribes the live session to a filter without saving it.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := subscription.ValidateFilter(req.Topic); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	qos, err := qosByte(req.QoS)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.sessions.Subscribe(r.Context(), id, req.Topic, qos); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"broker_id": id, "subscribed": req.Topic, "qos": qos})
}

// handleUnsubscribe removes a filter from the live session.
func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if err := subscription.ValidateFilter(req.Topic); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.sessions.Unsubscribe(r.Context(), id, req.Topic); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"broker_id": id, "unsubscribed": req.Topic})
}
