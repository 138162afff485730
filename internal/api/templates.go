package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/nerrad567/mqttdesk/internal/history"
	"github.com/nerrad567/mqttdesk/internal/template"
)

type templateRequest struct {
	Name          string `json:"name"`
	Topic         string `json:"topic"`
	Payload       string `json:"payload"`
	PayloadFormat string `json:"payload_format"`
	QoS           int    `json:"qos"`
	Retain        bool   `json:"retain"`
	Description   string `json:"description"`
	Category      string `json:"category"`
}

type duplicateRequest struct {
	Name string `json:"name"`
}

// handleListTemplates returns a broker's templates.
//
// Query parameters:
//   - category: only return templates in this category
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	templates, err := s.templates.List(r.Context(), brokerID, r.URL.Query().Get("category"))
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if templates == nil {
		templates = []template.Template{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": templates, "count": len(templates)})
}

// handleCreateTemplate saves a new template.
func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.QoS < 0 || req.QoS > 2 {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "qos must be 0, 1 or 2")
		return
	}

	tpl := &template.Template{
		BrokerID:      brokerID,
		Name:          req.Name,
		Topic:         req.Topic,
		Payload:       req.Payload,
		PayloadFormat: history.Format(req.PayloadFormat),
		QoS:           byte(req.QoS),
		Retain:        req.Retain,
		Description:   req.Description,
		Category:      req.Category,
	}
	if err := s.templates.Create(r.Context(), tpl); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

// handleGetTemplate returns one template.
func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	brokerID, tplID, ok := s.templatePath(w, r)
	if !ok {
		return
	}

	tpl, err := s.templates.Get(r.Context(), brokerID, tplID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// handleUpdateTemplate applies a partial update. Omitted fields keep their
// saved values.
func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	brokerID, tplID, ok := s.templatePath(w, r)
	if !ok {
		return
	}

	var patch template.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	tpl, err := s.templates.Update(r.Context(), brokerID, tplID, patch)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// handleDeleteTemplate removes a template.
func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	brokerID, tplID, ok := s.templatePath(w, r)
	if !ok {
		return
	}

	if err := s.templates.Delete(r.Context(), brokerID, tplID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUseTemplate records a use of a template without publishing it and
// returns the template with its updated counters.
func (s *Server) handleUseTemplate(w http.ResponseWriter, r *http.Request) {
	brokerID, tplID, ok := s.templatePath(w, r)
	if !ok {
		return
	}

	tpl, err := s.templates.Use(r.Context(), brokerID, tplID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

// handlePublishTemplate publishes a saved template through the broker's
// session, expanding variables the same way as a direct publish, and
// counts the use when the publish succeeds.
func (s *Server) handlePublishTemplate(w http.ResponseWriter, r *http.Request) {
	brokerID, tplID, ok := s.templatePath(w, r)
	if !ok {
		return
	}

	tpl, err := s.templates.Get(r.Context(), brokerID, tplID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	resp, ok := s.publish(w, r, brokerID, publishRequest{
		Topic:         tpl.Topic,
		Payload:       tpl.Payload,
		PayloadFormat: string(tpl.PayloadFormat),
		QoS:           int(tpl.QoS),
		Retain:        tpl.Retain,
	})
	if !ok {
		return
	}

	used, err := s.templates.Use(r.Context(), brokerID, tplID)
	if err != nil {
		s.logger.Warn("template use not recorded",
			"broker_id", brokerID,
			"template_id", tplID,
			"error", err,
		)
		used = tpl
	}
	resp["template"] = used
	writeJSON(w, http.StatusOK, resp)
}

// handleDuplicateTemplate copies a template. The body is optional; without
// a name the copy is called "<name> (copy)".
func (s *Server) handleDuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	brokerID, tplID, ok := s.templatePath(w, r)
	if !ok {
		return
	}

	var req duplicateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dup, err := s.templates.Duplicate(r.Context(), brokerID, tplID, req.Name)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, dup)
}

// handleTemplateCategories lists the categories in use on a broker.
func (s *Server) handleTemplateCategories(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	categories, err := s.templates.Categories(r.Context(), brokerID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// handleExportTemplates downloads a broker's templates as a JSON array.
func (s *Server) handleExportTemplates(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	data, err := s.templates.Export(r.Context(), brokerID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="broker-%d-templates.json"`, brokerID))
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // Best-effort write to response; connection may be closed
}

// handleImportTemplates creates templates from an exported JSON array.
// Invalid entries are skipped and not counted.
func (s *Server) handleImportTemplates(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeBadRequest(w, "failed to read request body")
		return
	}

	n, err := s.templates.Import(r.Context(), brokerID, data)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"broker_id": brokerID, "imported": n})
}

// templatePath reads the broker and template ids from the path.
func (s *Server) templatePath(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	brokerID, ok := pathID(w, r, "id")
	if !ok {
		return 0, 0, false
	}
	tplID, ok := pathID(w, r, "tplID")
	if !ok {
		return 0, 0, false
	}
	return brokerID, tplID, true
}
