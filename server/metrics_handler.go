package server

import (
	"context"
	"encoding/json"
	"net/http"
)

type metricsRequest struct {
	TrackID int64 `json:"track_id"`
}

// PlayStartHandler serves POST /api/metrics/play-start.
func (h *APIHandler) PlayStartHandler(w http.ResponseWriter, r *http.Request) {
	trackID, ok := parseMetrics(w, r)
	if !ok {
		return
	}
	if h.counters != nil {
		go h.counters.IncrementPlays(context.Background(), trackID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// DownloadMetricHandler serves POST /api/metrics/download for clients that
// fetch the file out-of-band and only report the event.
func (h *APIHandler) DownloadMetricHandler(w http.ResponseWriter, r *http.Request) {
	trackID, ok := parseMetrics(w, r)
	if !ok {
		return
	}
	if h.counters != nil {
		go h.counters.IncrementDownloads(context.Background(), trackID)
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseMetrics(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var req metricsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TrackID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid track id")
		return 0, false
	}
	return req.TrackID, true
}
