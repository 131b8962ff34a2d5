package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/carrier-core/internal/portfolio"
)

// CreateInstanceRequest creates a Portfolio instance.
type CreateInstanceRequest struct {
	ID *uint16 `json:"id"`
}

// IdentityRequest writes one identity value.
type IdentityRequest struct {
	Value string `json:"value"`
}

// IdentityResponse is the result of an identity read. Length counts the
// NUL terminator, matching the buffer size a device-side read needs.
type IdentityResponse struct {
	ID     uint16 `json:"id"`
	Field  string `json:"field"`
	Value  string `json:"value"`
	Length int    `json:"length"`
}

// handleListInstances returns every Portfolio instance.
func (s *Server) handleListInstances(w http.ResponseWriter, _ *http.Request) {
	instances := s.registry.Portfolio().Instances()
	writeJSON(w, http.StatusOK, map[string]any{
		"instances": instances,
		"count":     len(instances),
	})
}

// handleCreateInstance creates an instance with no identities set.
func (s *Server) handleCreateInstance(w http.ResponseWriter, r *http.Request) {
	var req CreateInstanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.ID == nil {
		writeBadRequest(w, "id is required")
		return
	}

	reg := s.registry.Portfolio()
	if err := reg.CreateInstance(*req.ID); err != nil {
		writeStoreError(w, err)
		return
	}
	inst, err := reg.Instance(*req.ID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

// handleGetInstance returns one instance.
func (s *Server) handleGetInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := instanceID(w, r)
	if !ok {
		return
	}
	inst, err := s.registry.Portfolio().Instance(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// handleDeleteInstance deletes an instance. The Primary Host is refused.
func (s *Server) handleDeleteInstance(w http.ResponseWriter, r *http.Request) {
	id, ok := instanceID(w, r)
	if !ok {
		return
	}
	if err := s.registry.Portfolio().DeleteInstance(id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleReadIdentity reads an identity value.
//
// The optional max query parameter sizes the read buffer the way a
// device-side caller would. A value that does not fit is rejected with
// buffer_too_small and the message names the required size.
func (s *Server) handleReadIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := instanceID(w, r)
	if !ok {
		return
	}
	field, err := portfolio.ParseIdentity(chi.URLParam(r, "field"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	reg := s.registry.Portfolio()
	var buf []byte
	if raw := r.URL.Query().Get("max"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 0 {
			writeBadRequest(w, "max must be a non-negative integer")
			return
		}
		buf = make([]byte, size)
	} else {
		need, err := reg.ReadIdentity(id, field, nil)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		buf = make([]byte, need)
	}

	n, err := reg.ReadIdentity(id, field, buf)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, IdentityResponse{
		ID:     id,
		Field:  field.String(),
		Value:  string(buf[:n-1]),
		Length: n,
	})
}

// handleWriteIdentity writes an identity value.
func (s *Server) handleWriteIdentity(w http.ResponseWriter, r *http.Request) {
	id, ok := instanceID(w, r)
	if !ok {
		return
	}
	field, err := portfolio.ParseIdentity(chi.URLParam(r, "field"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req IdentityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	reg := s.registry.Portfolio()
	if err := reg.WriteIdentity(id, field, req.Value); err != nil {
		writeStoreError(w, err)
		return
	}
	inst, err := reg.Instance(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// instanceID parses the {id} URL parameter, writing a 400 on failure.
func instanceID(w http.ResponseWriter, r *http.Request) (uint16, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 16)
	if err != nil {
		writeBadRequest(w, "instance id must be an integer between 0 and 65535")
		return 0, false
	}
	return uint16(id), true
}
