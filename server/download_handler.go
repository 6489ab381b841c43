package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"nashidona/core/delivery"
	"nashidona/logger"
	"nashidona/model"
)

// botTokens are User-Agent substrings that mark non-human download traffic;
// bots still get the redirect but never count.
var botTokens = []string{"bot", "crawl", "spider", "slurp", "curl", "wget", "python", "httpclient"}

func isBot(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, tok := range botTokens {
		if strings.Contains(ua, tok) {
			return true
		}
	}
	return false
}

func debounceCookieName(trackID int64) string {
	return fmt.Sprintf("nddl_%d", trackID)
}

// DownloadHandler serves GET /download/{id} (optionally /download/{id}/{name}
// so the path itself carries a human-readable filename). It never streams:
// the response is always a redirect to the chosen upstream, with the
// sanitized filename attached both as a Content-Disposition header and, for
// the managed CDN, as its ?download= query hint.
func (h *APIHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
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

	h.countDownload(w, r, trackID)

	name := downloadName(r, track, trackID)
	target := candidates[0].URL
	if candidates[0].Kind == model.KindCDN {
		target = withDownloadHint(target, name+".mp3")
	} else {
		target = delivery.ReencodeURL(target)
	}

	w.Header().Set("Content-Disposition", delivery.ContentDisposition(name, "mp3"))
	http.Redirect(w, r, target, http.StatusFound)
}

// downloadName picks the filename for the redirect: the freeform {name}
// path segment is a human-chosen filename and wins over the catalog's
// title/artist when present. Either way it goes through the sanitizer.
func downloadName(r *http.Request, track *model.Track, trackID int64) string {
	if raw := mux.Vars(r)["name"]; raw != "" {
		if strings.HasSuffix(strings.ToLower(raw), ".mp3") {
			raw = raw[:len(raw)-len(".mp3")]
		}
		if strings.TrimSpace(raw) != "" {
			return delivery.SanitizeName(raw, "", trackID)
		}
	}
	return delivery.SanitizeName(track.Title, track.Artist, trackID)
}

// countDownload increments the download counter at most once per debounce
// window per client, and never for bots. Counting is fire-and-forget.
func (h *APIHandler) countDownload(w http.ResponseWriter, r *http.Request, trackID int64) {
	if h.counters == nil || isBot(r.UserAgent()) {
		return
	}
	if _, err := r.Cookie(debounceCookieName(trackID)); err == nil {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     debounceCookieName(trackID),
		Value:    "1",
		Path:     "/",
		MaxAge:   int(h.cfg.DownloadDebounce.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// Off the request path so a slow Redis never delays the redirect.
	go h.counters.IncrementDownloads(context.Background(), trackID)
}

// withDownloadHint appends the B2-style ?download= filename hint so the CDN
// serves the file as an attachment under that name.
func withDownloadHint(rawURL, filename string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	q.Set("download", filename)
	u.RawQuery = q.Encode()
	return u.String()
}
