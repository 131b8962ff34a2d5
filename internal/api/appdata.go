package api

import (
	"errors"
	"io"
	"net/http"
)

// AppDataStatus reports the outbox state.
type AppDataStatus struct {
	Provisioned bool   `json:"provisioned"`
	Pending     bool   `json:"pending"`
	Sent        uint64 `json:"sent"`
	Overwritten uint64 `json:"overwritten"`
}

// handleAppDataStatus returns the outbox state.
func (s *Server) handleAppDataStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.appDataStatus())
}

// handleSendAppData queues the raw request body as the uplink payload,
// replacing any payload not yet taken.
func (s *Server) handleSendAppData(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeBadRequest(w, "request body too large")
			return
		}
		writeBadRequest(w, "reading body: "+err.Error())
		return
	}
	if body == nil {
		body = []byte{}
	}

	if err := s.registry.Outbox().Send(body); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, s.appDataStatus())
}

// handleTakeAppData removes and returns the pending payload. It answers
// 204 when nothing is pending.
func (s *Server) handleTakeAppData(w http.ResponseWriter, _ *http.Request) {
	buf, ok := s.registry.Outbox().Take()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": buf})
}

func (s *Server) appDataStatus() AppDataStatus {
	outbox := s.registry.Outbox()
	sent, overwritten := outbox.Stats()
	return AppDataStatus{
		Provisioned: outbox.Provisioned(),
		Pending:     outbox.Pending(),
		Sent:        sent,
		Overwritten: overwritten,
	}
}
