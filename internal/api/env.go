package api

import (
	"encoding/json"
	"net/http"

	"github.com/nerrad567/mqttdesk/internal/envvar"
)

type variableRequest struct {
	Name        string `json:"name"`
	Value       string `json:"value"`
	Description string `json:"description"`
}

type variablePatch struct {
	Name        *string `json:"name"`
	Value       *string `json:"value"`
	Description *string `json:"description"`
}

// handleListVariables returns a broker's variables.
func (s *Server) handleListVariables(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	vars, err := s.variables.ListByBroker(r.Context(), brokerID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if vars == nil {
		vars = []envvar.Variable{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"variables": vars, "count": len(vars)})
}

// handleCreateVariable saves a new variable.
func (s *Server) handleCreateVariable(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	var req variableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	v := &envvar.Variable{
		BrokerID:    brokerID,
		Name:        req.Name,
		Value:       req.Value,
		Description: req.Description,
	}
	if err := envvar.Validate(v); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.variables.Create(r.Context(), v); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// handleGetVariable returns one variable.
func (s *Server) handleGetVariable(w http.ResponseWriter, r *http.Request) {
	v, ok := s.ownedVariable(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleUpdateVariable changes a variable's name, value or description.
func (s *Server) handleUpdateVariable(w http.ResponseWriter, r *http.Request) {
	v, ok := s.ownedVariable(w, r)
	if !ok {
		return
	}

	var req variablePatch
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Name != nil {
		v.Name = *req.Name
	}
	if req.Value != nil {
		v.Value = *req.Value
	}
	if req.Description != nil {
		v.Description = *req.Description
	}

	if err := envvar.Validate(v); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if err := s.variables.Update(r.Context(), v); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleDeleteVariable removes a variable.
func (s *Server) handleDeleteVariable(w http.ResponseWriter, r *http.Request) {
	v, ok := s.ownedVariable(w, r)
	if !ok {
		return
	}

	if err := s.variables.Delete(r.Context(), v.ID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownedVariable loads the variable named by the path. A variable that
// belongs to another broker is reported as not found.
func (s *Server) ownedVariable(w http.ResponseWriter, r *http.Request) (*envvar.Variable, bool) {
	brokerID, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}
	varID, ok := pathID(w, r, "varID")
	if !ok {
		return nil, false
	}

	v, err := s.variables.GetByID(r.Context(), varID)
	if err == nil && v.BrokerID != brokerID {
		err = envvar.ErrVariableNotFound
	}
	if err != nil {
		s.writeDomainError(w, r, err)
		return nil, false
	}
	return v, true
}
