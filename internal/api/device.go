package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/carrier-core/internal/device"
)

// PowerSourcesRequest declares the active power source set.
type PowerSourcesRequest struct {
	Sources []string `json:"sources"`
}

// MeasurementRequest writes the readings of one power source.
// Omitted fields are left unchanged.
type MeasurementRequest struct {
	VoltageMV *int32 `json:"voltage_mv"`
	CurrentMA *int32 `json:"current_ma"`
}

// BatteryRequest writes the internal battery readings.
type BatteryRequest struct {
	Level  *int    `json:"level"`
	Status *string `json:"status"`
}

// ErrorCodeRequest raises a device error code.
type ErrorCodeRequest struct {
	Code string `json:"code"`
}

// MemoryRequest sets the total memory.
type MemoryRequest struct {
	TotalKB uint32 `json:"total_kb"`
}

// TimeRequest writes the time resources. Omitted fields are left unchanged.
type TimeRequest struct {
	UTCTime   *int32  `json:"utc_time"`
	UTCOffset *int    `json:"utc_offset"`
	Timezone  *string `json:"timezone"`
}

// handleGetDevice returns the Device object resources.
func (s *Server) handleGetDevice(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.registry.Device().Snapshot())
}

// handleSetPowerSources replaces the active power source set.
func (s *Server) handleSetPowerSources(w http.ResponseWriter, r *http.Request) {
	var req PowerSourcesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	sources := make([]device.PowerSource, 0, len(req.Sources))
	for _, name := range req.Sources {
		p, err := device.ParsePowerSource(name)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		sources = append(sources, p)
	}

	store := s.registry.Device()
	if err := store.SetAvailablePowerSources(sources); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, store.Snapshot())
}

// handleSetMeasurement records voltage and/or current for one source.
func (s *Server) handleSetMeasurement(w http.ResponseWriter, r *http.Request) {
	p, err := device.ParsePowerSource(chi.URLParam(r, "source"))
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req MeasurementRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.VoltageMV == nil && req.CurrentMA == nil {
		writeBadRequest(w, "voltage_mv or current_ma is required")
		return
	}

	store := s.registry.Device()
	if req.VoltageMV != nil {
		if err := store.SetVoltage(p, *req.VoltageMV); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	if req.CurrentMA != nil {
		if err := store.SetCurrent(p, *req.CurrentMA); err != nil {
			writeStoreError(w, err)
			return
		}
	}

	st, _ := store.Snapshot().Source(p)
	writeJSON(w, http.StatusOK, st)
}

// handleSetBattery records the internal battery level and/or status.
func (s *Server) handleSetBattery(w http.ResponseWriter, r *http.Request) {
	var req BatteryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	if req.Level == nil && req.Status == nil {
		writeBadRequest(w, "level or status is required")
		return
	}

	store := s.registry.Device()
	if req.Status != nil {
		status, err := device.ParseBatteryStatus(*req.Status)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if err := store.SetBatteryStatus(status); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	if req.Level != nil {
		if err := store.SetBatteryLevel(*req.Level); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, store.Battery())
}

// handleAddError raises an error code.
func (s *Server) handleAddError(w http.ResponseWriter, r *http.Request) {
	var req ErrorCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	code, err := device.ParseErrorCode(req.Code)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	store := s.registry.Device()
	if err := store.AddError(code); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"error_codes": store.ErrorCodes()})
}

// handleRemoveError clears an error code.
func (s *Server) handleRemoveError(w http.ResponseWriter, r *http.Request) {
	code, err := device.ParseErrorCode(chi.URLParam(r, "code"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	store := s.registry.Device()
	if err := store.RemoveError(code); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"error_codes": store.ErrorCodes()})
}

// handleSetMemory sets the total memory.
func (s *Server) handleSetMemory(w http.ResponseWriter, r *http.Request) {
	var req MemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	store := s.registry.Device()
	if err := store.SetMemoryTotal(req.TotalKB); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"memory_total_kb": store.MemoryTotal(),
		"memory_free_kb":  store.MemoryFree(),
	})
}

// handleGetTime returns the time resources.
func (s *Server) handleGetTime(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, device.ReadTime(s.registry.Device().Clock()))
}

// handleSetTime writes the time resources.
func (s *Server) handleSetTime(w http.ResponseWriter, r *http.Request) {
	var req TimeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	clock := s.registry.Device().Clock()
	if req.UTCTime != nil {
		if err := clock.SetUTCTime(*req.UTCTime); err != nil {
			writeStoreError(w, err)
			return
		}
	}
	if req.UTCOffset != nil {
		clock.SetUTCOffset(*req.UTCOffset)
	}
	if req.Timezone != nil {
		clock.SetTimezone(*req.Timezone)
	}
	writeJSON(w, http.StatusOK, device.ReadTime(clock))
}
