package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/mqttdesk/internal/broker"
	"github.com/nerrad567/mqttdesk/internal/connection"
)

// brokerRequest is the body of broker create and update requests.
// CleanSession is a pointer so an omitted field defaults to true.
type brokerRequest struct {
	Name            string `json:"name"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	ProtocolVersion string `json:"protocol_version"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ClientID        string `json:"client_id"`
	KeepAlive       *int   `json:"keep_alive"`
	CleanSession    *bool  `json:"clean_session"`
	UseTLS          bool   `json:"use_tls"`
	CACert          string `json:"ca_cert"`
	ClientCert      string `json:"client_cert"`
	ClientKey       string `json:"client_key"`
}

func (req brokerRequest) broker(id int64) *broker.Broker {
	b := &broker.Broker{
		ID:              id,
		Name:            req.Name,
		Host:            req.Host,
		Port:            req.Port,
		ProtocolVersion: req.ProtocolVersion,
		Username:        req.Username,
		Password:        req.Password,
		ClientID:        req.ClientID,
		KeepAlive:       broker.DefaultKeepAlive,
		CleanSession:    true,
		UseTLS:          req.UseTLS,
		CACert:          req.CACert,
		ClientCert:      req.ClientCert,
		ClientKey:       req.ClientKey,
	}
	if req.KeepAlive != nil {
		b.KeepAlive = *req.KeepAlive
	}
	if req.CleanSession != nil {
		b.CleanSession = *req.CleanSession
	}
	return b
}

// pathID parses a numeric URL parameter, writing a 400 when it is invalid.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}

// handleListBrokers returns every saved broker with secrets redacted.
func (s *Server) handleListBrokers(w http.ResponseWriter, r *http.Request) {
	brokers, err := s.brokers.List(r.Context())
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]broker.Broker, 0, len(brokers))
	for _, b := range brokers {
		out = append(out, b.Redacted())
	}
	writeJSON(w, http.StatusOK, map[string]any{"brokers": out, "count": len(out)})
}

// handleGetBroker returns a single broker.
func (s *Server) handleGetBroker(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	b, err := s.brokers.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Redacted())
}

// handleCreateBroker saves a new broker definition.
func (s *Server) handleCreateBroker(w http.ResponseWriter, r *http.Request) {
	var req brokerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	b := req.broker(0)
	if err := s.brokers.Create(r.Context(), b); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, b.Redacted())
}

// handleUpdateBroker replaces a broker definition. A live session keeps its
// old settings until the next connect.
func (s *Server) handleUpdateBroker(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req brokerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	b := req.broker(id)
	if err := s.brokers.Update(r.Context(), b); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b.Redacted())
}

// handleDeleteBroker disconnects and then removes a broker. Its saved
// subscriptions and history go with it. The session is fully stopped before
// the hub forgets the broker, so no late state event can bring it back.
func (s *Server) handleDeleteBroker(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := s.brokers.Get(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.sessions.DisconnectWait(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.brokers.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	s.hub.Forget(id)

	w.WriteHeader(http.StatusNoContent)
}

// handleConnect starts a session for a saved broker. The result of the
// connection attempt arrives as connection.state_changed events.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	b, err := s.brokers.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	if err := s.sessions.Connect(r.Context(), b.ConnectionConfig()); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"broker_id": id,
		"status":    connection.StatusConnecting,
	})
}

// handleDisconnect stops a broker's session. It succeeds when no session
// exists.
func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := s.brokers.Get(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.sessions.Disconnect(id)
	writeJSON(w, http.StatusAccepted, map[string]any{"broker_id": id})
}

// handleStatus returns the last reported session state of a broker.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if _, err := s.brokers.Get(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	ev := s.hub.State(id)
	resp := map[string]any{
		"broker_id": id,
		"status":    ev.Status,
		"active":    s.sessions.IsConnected(id),
	}
	if ev.Error != "" {
		resp["error"] = ev.Error
	}
	if !ev.Timestamp.IsZero() {
		resp["timestamp"] = ev.Timestamp
	}
	writeJSON(w, http.StatusOK, resp)
}
