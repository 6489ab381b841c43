package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"nashidona/core/delivery"
	"nashidona/logger"
)

// StreamHandler serves GET|HEAD /stream/{id}: resolve the track's candidate
// URLs and either redirect (browser-only hosts) or proxy the audio bytes.
func (h *APIHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	trackID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || trackID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		logger.Error("track lookup failed", logger.Int64("trackId", trackID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "track lookup failed")
		return
	}
	if track == nil {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}

	candidates, err := h.resolver.Resolve(r.Context(), track)
	if err != nil {
		if errors.Is(err, delivery.ErrNoSource) {
			writeError(w, http.StatusNotFound, "no source for track")
			return
		}
		logger.Error("resolve failed", logger.Int64("trackId", trackID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "resolve failed")
		return
	}

	// Hosts that only answer real browsers get a redirect; proxying them
	// would just burn an upstream attempt.
	if h.resolver.BrowserOnly(candidates[0]) {
		http.Redirect(w, r, delivery.ReencodeURL(candidates[0].URL), http.StatusFound)
		return
	}

	if err := h.proxy.ServeCandidates(w, r, trackID, candidates); err != nil {
		var ue *delivery.UpstreamError
		if errors.As(err, &ue) {
			logger.Warn("all upstream candidates failed",
				logger.Int64("trackId", trackID),
				logger.Int("attempts", len(ue.Attempts)))
			writeJSON(w, http.StatusBadGateway, map[string]interface{}{
				"error":    "upstream unavailable",
				"trackId":  trackID,
				"attempts": ue.Attempts,
			})
			return
		}
		writeError(w, http.StatusBadGateway, "upstream unavailable")
	}
}
