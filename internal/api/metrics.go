package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Carrier       CarrierMetrics  `json:"carrier"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected bool `json:"connected"`
}

// CarrierMetrics contains carrier store statistics.
type CarrierMetrics struct {
	HeapUsed           int64  `json:"heap_used"`
	HeapCapacity       int64  `json:"heap_capacity"`
	PowerSources       int    `json:"power_sources"`
	PortfolioInstances int    `json:"portfolio_instances"`
	AppDataSent        uint64 `json:"app_data_sent"`
	AppDataOverwritten uint64 `json:"app_data_overwritten"`
	EventsDelivered    uint64 `json:"events_delivered"`
	EventsQueued       int    `json:"events_queued"`
	SessionState       string `json:"session_state"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		MQTT: MQTTMetrics{
			Connected: s.mqtt.IsConnected(),
		},
	}

	// Carrier stores
	budget := s.registry.Budget()
	sent, overwritten := s.registry.Outbox().Stats()
	dispatcher := s.registry.Dispatcher()
	status := dispatcher.Status()
	metrics.Carrier = CarrierMetrics{
		HeapUsed:           budget.Used(),
		HeapCapacity:       budget.Capacity(),
		PowerSources:       len(s.registry.Device().PowerSources()),
		PortfolioInstances: s.registry.Portfolio().Len(),
		AppDataSent:        sent,
		AppDataOverwritten: overwritten,
		EventsDelivered:    status.Events,
		EventsQueued:       dispatcher.Pending(),
		SessionState:       status.State.String(),
	}

	// Database stats (if available)
	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
