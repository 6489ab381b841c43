package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"unicode/utf8"

	"nashidona/logger"
	"nashidona/model"
)

const (
	maxReasonLen = 100
	maxDetailLen = 1000
)

type reportRequest struct {
	TrackID int64  `json:"track_id"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail"`
	Retries int    `json:"retries"`
}

// ReportBadLinkHandler serves POST /api/report-bad-link. Reports come from
// unattended players, so the endpoint is deliberately forgiving: a storage
// failure still answers 200 with an error body rather than making clients
// retry forever.
func (h *APIHandler) ReportBadLinkHandler(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.TrackID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	report := &model.BadLinkReport{
		TrackID:   req.TrackID,
		Reason:    clamp(req.Reason, maxReasonLen),
		Detail:    clamp(req.Detail, maxDetailLen),
		Retries:   req.Retries,
		UserAgent: clamp(r.UserAgent(), 500),
		IP:        clientIP(r),
	}

	if h.reportRepo == nil {
		writeJSON(w, http.StatusOK, map[string]string{"error": "report storage unavailable"})
		return
	}

	if err := h.reportRepo.CreateReport(r.Context(), report); err != nil {
		logger.Error("bad link report not stored",
			logger.Int64("trackId", req.TrackID),
			logger.ErrorField(err))
		writeJSON(w, http.StatusOK, map[string]string{"error": "report not stored"})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]bool{"ok": true})
}

// clamp truncates to at most max bytes without splitting a multi-byte rune,
// so Arabic reason strings survive truncation as valid UTF-8.
func clamp(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
