package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/mqttdesk/internal/history"
)

// handleListMessages returns a page of a broker's message history, newest
// first.
//
// Query parameters:
//   - limit: page size (default 100, capped by history.max_page_size)
//   - offset: entries to skip
func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	limit, ok := queryInt(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset")
	if !ok {
		return
	}

	entries, err := s.messages.List(r.Context(), brokerID, limit, offset)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"messages": entries,
		"count":    len(entries),
		"offset":   offset,
	})
}

// handleClearMessages deletes a broker's message history.
func (s *Server) handleClearMessages(w http.ResponseWriter, r *http.Request) {
	brokerID, ok := s.knownBroker(w, r)
	if !ok {
		return
	}

	n, err := s.messages.Clear(r.Context(), brokerID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": n})
}

// queryInt parses an optional non-negative integer query parameter. Absent
// means zero.
func queryInt(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		writeBadRequest(w, name+" must be a non-negative integer")
		return 0, false
	}
	return v, true
}
