package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/aquarium-core/internal/protocol"
)

// SystemMetrics is the JSON snapshot served at /api/v1/metrics, meant for
// dashboards that do not scrape /metrics.
//
// Devices maps each device to its last known status ("MANUAL/ON") or
// "unknown". Pool is present only when history is enabled.
type SystemMetrics struct {
	Version          string            `json:"version"`
	Uptime           string            `json:"uptime"`
	Goroutines       int               `json:"goroutines"`
	HeapAllocBytes   uint64            `json:"heap_alloc_bytes"`
	GCCycles         uint32            `json:"gc_cycles"`
	WebSocketClients int               `json:"websocket_clients"`
	Devices          map[string]string `json:"devices"`
	Pool             *PoolStats        `json:"pool,omitempty"`
}

// PoolStats mirrors the sql.DBStats fields worth watching on SQLite.
type PoolStats struct {
	Open    int   `json:"open"`
	InUse   int   `json:"in_use"`
	Waits   int64 `json:"waits"`
	WaitsMS int64 `json:"waits_ms"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	devices := make(map[string]string, len(protocol.Devices()))
	for _, d := range protocol.Devices() {
		devices[string(d)] = "unknown"
		if v := s.deviceView(d); v.Known {
			devices[string(d)] = protocol.DeviceStatus{Mode: v.Mode, State: v.State}.String()
		}
	}

	snap := SystemMetrics{
		Version:          s.version,
		Uptime:           time.Since(s.startTime).Truncate(time.Second).String(),
		Goroutines:       runtime.NumGoroutine(),
		HeapAllocBytes:   mem.HeapAlloc,
		GCCycles:         mem.NumGC,
		WebSocketClients: s.hub.ClientCount(),
		Devices:          devices,
	}
	if s.db != nil {
		st := s.db.Stats()
		snap.Pool = &PoolStats{
			Open:    st.OpenConnections,
			InUse:   st.InUse,
			Waits:   st.WaitCount,
			WaitsMS: st.WaitDuration.Milliseconds(),
		}
	}

	writeJSON(w, http.StatusOK, snap)
}
