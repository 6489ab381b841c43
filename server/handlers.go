package server

import (
	"encoding/json"
	"net/http"

	"nashidona/cache"
	"nashidona/config"
	"nashidona/core/delivery"
	"nashidona/repository"
)

// APIHandler carries the shared dependencies of all HTTP handlers.
type APIHandler struct {
	trackRepo  repository.TrackRepository
	reportRepo repository.ReportRepository
	resolver   *delivery.Resolver
	proxy      *delivery.Proxy
	counters   *cache.CounterCache
	cfg        *config.Config
}

// NewAPIHandler creates the handler set. reportRepo and counters may be nil
// when their backing stores are unavailable; the affected endpoints degrade
// instead of failing startup.
func NewAPIHandler(
	trackRepo repository.TrackRepository,
	reportRepo repository.ReportRepository,
	resolver *delivery.Resolver,
	proxy *delivery.Proxy,
	counters *cache.CounterCache,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		trackRepo:  trackRepo,
		reportRepo: reportRepo,
		resolver:   resolver,
		proxy:      proxy,
		counters:   counters,
		cfg:        cfg,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
