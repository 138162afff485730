package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/mqttdesk/internal/subscription"
)

type subscriptionRequest struct {
	Topic    string `json:"topic"`
	QoS      int    `json:"qos"`
	IsActive *bool  `json:"is_active"`
}

type subscriptionPatch struct {
	IsActive *bool `json:"is_active"`
}

// knownBroker reads the broker id from the path and checks it exists.
func (s *Server) knownBroker(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return 0, false
	}
	if _, err := s.brokers.Get(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return 0, false
	}
	return id, true
}

// handleListSubscriptions returns a broker's saved subscriptions.
func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	subs, err := s.subs.List(r.Context(), brokerID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if subs == nil {
		subs = []subscription.Subscription{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"subscriptions": subs, "count": len(subs)})
}

// handleCreateSubscription saves a subscription. New subscriptions are
// active unless is_active is false.
func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	var req subscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.QoS < 0 || req.QoS > 2 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "qos must be 0, 1 or 2")
		return
	}

	sub := &subscription.Subscription{
		BrokerID: brokerID,
		Topic:    req.Topic,
		QoS:      byte(req.QoS),
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := s.subs.Add(r.Context(), sub); err != nil {
		// The record exists even when the live subscribe failed.
		if sub.ID != 0 {
			s.logger.Warn("saved subscription not applied to session",
				"broker_id", brokerID,
				"topic", sub.Topic,
				"error", err,
			)
			writeJSON(w, http.StatusCreated, sub)
			return
		}
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// handleUpdateSubscription toggles a saved subscription on or off.
func (s *Server) handleUpdateSubscription(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	subID, ok := pathID(w, r, "subID")
	if !ok {
		return
	}

	var req subscriptionPatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.IsActive == nil {
		writeBadRequest(w, "is_active is required")
		return
	}

	sub, err := s.subs.SetActive(r.Context(), brokerID, subID, *req.IsActive)
	if err != nil {
		if sub != nil {
			s.logger.Warn("subscription change not applied to session",
				"broker_id", brokerID,
				"subscription_id", subID,
				"error", err,
			)
			writeJSON(w, http.StatusOK, sub)
			return
		}
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleDeleteSubscription removes a saved subscription.
func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	subID, ok := pathID(w, r, "subID")
	if !ok {
		return
	}

	if err := s.subs.Delete(r.Context(), brokerID, subID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
