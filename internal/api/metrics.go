package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/cotbridge/internal/listener"
)

// Summary is the body of GET /api/v1/metrics: a human-sized view of the
// process next to the Prometheus exposition on /metrics.
type Summary struct {
	Version        string          `json:"version"`
	UptimeSeconds  int64           `json:"uptime_seconds"`
	Goroutines     int             `json:"goroutines"`
	HeapAllocBytes uint64          `json:"heap_alloc_bytes"`
	StreamClients  int             `json:"stream_clients"`
	CatalogEntries int             `json:"catalog_entries"`
	Listeners      ListenerSummary `json:"listeners"`
}

// ListenerSummary counts registered listeners.
type ListenerSummary struct {
	Total      int            `json:"total"`
	ByState    map[string]int `json:"by_state"`
	ByProtocol map[string]int `json:"by_protocol"`
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	respond(w, http.StatusOK, Summary{
		Version:        s.version,
		UptimeSeconds:  int64(time.Since(s.startTime) / time.Second),
		Goroutines:     runtime.NumGoroutine(),
		HeapAllocBytes: mem.HeapAlloc,
		StreamClients:  s.hub.Clients(),
		CatalogEntries: s.symbolizer.Catalog().Len(),
		Listeners:      countListeners(s.registry.Snapshot()),
	})
}

func countListeners(infos []listener.Info) ListenerSummary {
	sum := ListenerSummary{
		Total:      len(infos),
		ByState:    make(map[string]int),
		ByProtocol: make(map[string]int),
	}
	for _, info := range infos {
		sum.ByState[string(info.State)]++
		sum.ByProtocol[string(info.Protocol)]++
	}
	return sum
}
