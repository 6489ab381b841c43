package delivery

import (
	"io"
	"net/http"
	"strings"
	"time"

	"nashidona/core/retry"
	"nashidona/logger"
	"nashidona/model"
)

// passthroughHeaders are forwarded from the accepted upstream response.
var passthroughHeaders = []string{
	"Content-Type",
	"Content-Length",
	"Accept-Ranges",
	"Content-Range",
	"ETag",
	"Last-Modified",
	"Cache-Control",
	"Content-Disposition",
}

// audioExtensions recognized in upstream Content-Disposition filenames.
var audioExtensions = []string{".mp3", ".m4a", ".aac", ".ogg", ".opus", ".wav", ".flac"}

// Proxy streams audio bytes from upstream hosts to the client, trying
// candidates in order until one yields a plausible audio response.
// Attempts are sequential: parallel speculative fetches against the same
// third-party host risk rate-limiting.
type Proxy struct {
	userAgent string
	referer   string
	client    *http.Client
}

// NewProxy creates a Proxy. headerTimeout bounds how long one candidate may
// take to start responding; the body itself streams unbounded.
func NewProxy(userAgent, referer string, headerTimeout time.Duration) *Proxy {
	return &Proxy{
		userAgent: userAgent,
		referer:   referer,
		client: &http.Client{
			Transport: &http.Transport{
				// Range semantics must stay byte-accurate; never let the
				// transport negotiate compression.
				DisableCompression:    true,
				ResponseHeaderTimeout: headerTimeout,
			},
		},
	}
}

// ServeCandidates attempts each candidate in order and streams the first
// acceptable one to the client. It returns an *UpstreamError when every
// candidate fails; on success it returns nil after the response is written.
func (p *Proxy) ServeCandidates(w http.ResponseWriter, r *http.Request, trackID int64, candidates []model.CandidateURL) error {
	attempts := make([]Attempt, 0, len(candidates))
	budget := retry.NewPolicy(len(candidates))

	for _, cand := range candidates {
		if !budget.Attempt() {
			break
		}

		resp, attempt := p.fetch(r, cand)
		attempts = append(attempts, attempt)
		if resp == nil {
			continue
		}

		p.stream(w, r, resp)
		return nil
	}

	return &UpstreamError{TrackID: trackID, Attempts: attempts}
}

// fetch issues one upstream request. A nil response means the candidate was
// rejected; the Attempt records why.
func (p *Proxy) fetch(r *http.Request, cand model.CandidateURL) (*http.Response, Attempt) {
	attempt := Attempt{URL: cand.URL, Kind: cand.Kind}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, cand.URL, nil)
	if err != nil {
		attempt.Err = err.Error()
		return nil, attempt
	}

	// Some hosts gate on these.
	req.Header.Set("User-Agent", p.userAgent)
	if p.referer != "" {
		req.Header.Set("Referer", p.referer)
	}
	req.Header.Set("Accept-Encoding", "identity")
	if rng := r.Header.Get("Range"); rng != "" {
		req.Header.Set("Range", rng)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		attempt.Err = err.Error()
		return nil, attempt
	}

	attempt.Status = resp.StatusCode
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, attempt
	}
	if !plausiblyAudio(resp.Header) {
		resp.Body.Close()
		attempt.Err = "not audio: " + resp.Header.Get("Content-Type")
		return nil, attempt
	}

	return resp, attempt
}

// stream copies the accepted upstream response to the client without
// buffering the whole file. A mid-stream upstream error aborts the client
// connection rather than finishing with corrupt trailing bytes.
func (p *Proxy) stream(w http.ResponseWriter, r *http.Request, resp *http.Response) {
	defer resp.Body.Close()

	for _, h := range passthroughHeaders {
		if v := resp.Header.Get(h); v != "" {
			w.Header().Set(h, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		logger.Warn("upstream stream aborted",
			logger.String("url", resp.Request.URL.String()),
			logger.ErrorField(err))
		panic(http.ErrAbortHandler)
	}
}

// plausiblyAudio reports whether an upstream response looks like audio.
// Third-party hosts are inconsistent, so octet-stream and a named audio
// extension both count.
func plausiblyAudio(h http.Header) bool {
	ct := strings.ToLower(h.Get("Content-Type"))
	if strings.Contains(ct, "audio/") ||
		strings.Contains(ct, "mpeg") ||
		strings.Contains(ct, "octet-stream") {
		return true
	}

	cd := strings.ToLower(h.Get("Content-Disposition"))
	for _, ext := range audioExtensions {
		if strings.Contains(cd, ext) {
			return true
		}
	}
	return false
}
