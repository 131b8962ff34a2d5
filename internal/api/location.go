package api

import (
	"net/http"

	"github.com/nerrad567/carrier-core/internal/location"
)

// LocationRequest replaces the cached position fix.
type LocationRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Altitude    float32  `json:"altitude"`
	Timestamp   uint32   `json:"timestamp"`
	Uncertainty float32  `json:"uncertainty"`
}

// handleGetLocation returns the cached fix, or 404 before the first one.
func (s *Server) handleGetLocation(w http.ResponseWriter, _ *http.Request) {
	fix, ok := s.registry.Location().Location()
	if !ok {
		writeNotFound(w, "no location reported")
		return
	}
	writeJSON(w, http.StatusOK, fix)
}

// handleSetLocation replaces the cached fix.
func (s *Server) handleSetLocation(w http.ResponseWriter, r *http.Request) {
	var req LocationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeBadRequest(w, "latitude and longitude are required")
		return
	}

	cache := s.registry.Location()
	if err := cache.SetLocation(*req.Latitude, *req.Longitude, req.Altitude, req.Timestamp, req.Uncertainty); err != nil {
		writeStoreError(w, err)
		return
	}
	fix, _ := cache.Location()
	writeJSON(w, http.StatusOK, fix)
}

// handleGetVelocity returns the cached velocity, or 404 before the first one.
func (s *Server) handleGetVelocity(w http.ResponseWriter, _ *http.Request) {
	v, ok := s.registry.Location().Velocity()
	if !ok {
		writeNotFound(w, "no velocity reported")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleSetVelocity replaces the cached velocity. Optional fields that
// are missing or null are stored as absent.
func (s *Server) handleSetVelocity(w http.ResponseWriter, r *http.Request) {
	var req location.Velocity
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	cache := s.registry.Location()
	if err := cache.SetVelocity(req.Heading, req.SpeedH, req.SpeedV, req.UncertaintyH, req.UncertaintyV); err != nil {
		writeStoreError(w, err)
		return
	}
	v, _ := cache.Velocity()
	writeJSON(w, http.StatusOK, v)
}
