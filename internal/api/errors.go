package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/carrier-core/internal/lwm2m"
)

// Error represents a structured error response.
// Recoverable is false when retrying with different input cannot help.
type Error struct {
	Status      int    `json:"status"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// Common error codes.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeForbidden        = "forbidden"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeValidation       = "validation_error"
	ErrCodeMethodNotAllow   = "method_not_allowed"
	ErrCodeBufferTooSmall   = "buffer_too_small"
	ErrCodeStorageExhausted = "storage_exhausted"
	ErrCodeUnavailable      = "unavailable"
)

// kindStatus maps a store error kind to its HTTP status and code.
var kindStatus = map[error]struct {
	status int
	code   string
}{
	lwm2m.ErrInvalidArgument:  {http.StatusBadRequest, ErrCodeValidation},
	lwm2m.ErrNotFound:         {http.StatusNotFound, ErrCodeNotFound},
	lwm2m.ErrAlreadyExists:    {http.StatusConflict, ErrCodeConflict},
	lwm2m.ErrCapacityExceeded: {http.StatusConflict, ErrCodeConflict},
	lwm2m.ErrSourceNotActive:  {http.StatusConflict, ErrCodeConflict},
	lwm2m.ErrPermissionDenied: {http.StatusForbidden, ErrCodeForbidden},
	lwm2m.ErrBufferTooSmall:   {http.StatusBadRequest, ErrCodeBufferTooSmall},
	lwm2m.ErrAllocationFailed: {http.StatusInsufficientStorage, ErrCodeStorageExhausted},
	lwm2m.ErrNotInitialized:   {http.StatusServiceUnavailable, ErrCodeUnavailable},
}

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
		Status:      status,
		Code:        code,
		Message:     message,
		Recoverable: status < http.StatusInternalServerError,
	})
}

// writeStoreError writes the response for an error returned by a store.
// Errors without a kind are internal.
func writeStoreError(w http.ResponseWriter, err error) {
	m, ok := kindStatus[lwm2m.Kind(err)]
	if !ok {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, m.status, Error{
		Status:      m.status,
		Code:        m.code,
		Message:     err.Error(),
		Recoverable: lwm2m.Recoverable(err),
	})
}

// statusFor returns the HTTP status writeStoreError would use for err.
func statusFor(err error) int {
	if m, ok := kindStatus[lwm2m.Kind(err)]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}
