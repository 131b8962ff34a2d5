package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/carrier-core/internal/event"
)

// Journal query bounds.
const (
	defaultJournalLimit = 50
	maxJournalLimit     = 500
)

// DispatchResponse is the result of delivering an event.
type DispatchResponse struct {
	Decision event.RebootDecision `json:"decision"`
	Status   event.Status         `json:"status"`
}

// handleGetSession returns the session status.
func (s *Server) handleGetSession(w http.ResponseWriter, _ *http.Request) {
	d := s.registry.Dispatcher()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  d.Status(),
		"pending": d.Pending(),
	})
}

// handleDispatchEvent delivers one event synchronously, exactly as the
// protocol engine would, and returns the host's reboot decision.
func (s *Server) handleDispatchEvent(w http.ResponseWriter, r *http.Request) {
	var e event.Event
	if err := decodeJSON(r, &e); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	d := s.registry.Dispatcher()
	decision, err := d.Dispatch(r.Context(), e)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DispatchResponse{Decision: decision, Status: d.Status()})
}

// handleJournal lists recorded deliveries, newest first.
//
// Query parameters:
//   - kind: restrict to one event kind (e.g. "registered")
//   - limit: maximum entries, default 50, capped at 500
func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "event journal not enabled")
		return
	}

	var kind event.Kind
	if name := r.URL.Query().Get("kind"); name != "" {
		k, err := event.ParseKind(name)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		kind = k
	}

	limit := defaultJournalLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxJournalLimit)
	}

	entries, err := s.journal.Recent(r.Context(), kind, limit)
	if err != nil {
		s.logger.Error("journal query failed", "error", err)
		writeInternalError(w, "failed to query journal")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"count":   len(entries),
	})
}
