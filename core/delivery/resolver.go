package delivery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"nashidona/logger"
	"nashidona/model"
)

// Resolver turns a track into an ordered list of candidate audio URLs:
// the managed CDN when it answers a liveness probe, otherwise the recorded
// source host, plus a path-re-encoded variant for encoding-strict hosts.
type Resolver struct {
	cdnBaseURL   string
	probeTimeout time.Duration
	rules        *HostRules
	probeClient  *http.Client
}

// NewResolver creates a Resolver. probeTimeout bounds the CDN liveness
// check; it must never be allowed to stall the overall request.
func NewResolver(cdnBaseURL string, probeTimeout time.Duration, rules *HostRules) *Resolver {
	return &Resolver{
		cdnBaseURL:   cdnBaseURL,
		probeTimeout: probeTimeout,
		rules:        rules,
		probeClient: &http.Client{
			// Redirects are fine for the probe; the body is never read.
			Timeout: probeTimeout,
		},
	}
}

// Resolve returns the candidate list for a track, at least length 1, or
// ErrNoSource when no URL can be determined at all.
func (r *Resolver) Resolve(ctx context.Context, track *model.Track) ([]model.CandidateURL, error) {
	cdn := track.CDNURL
	if cdn == "" && r.cdnBaseURL != "" {
		cdn = fmt.Sprintf("%s/tracks/%d.mp3", r.cdnBaseURL, track.ID)
	}

	if cdn != "" && r.probeCDN(ctx, cdn) {
		return []model.CandidateURL{{URL: cdn, Kind: model.KindCDN}}, nil
	}

	if track.SourceURL == "" {
		if cdn != "" {
			// Probe failed but the CDN location is all we have; let the
			// proxy try it for real.
			return []model.CandidateURL{{URL: cdn, Kind: model.KindCDN}}, nil
		}
		return nil, ErrNoSource
	}

	candidates := []model.CandidateURL{{URL: track.SourceURL, Kind: model.KindSource}}

	if host := hostOf(track.SourceURL); host != "" &&
		r.rules.Classify(host) == FamilyStrictEncoding {
		reencoded := ReencodeURL(track.SourceURL)
		if reencoded != track.SourceURL {
			candidates = append(candidates, model.CandidateURL{
				URL:  reencoded,
				Kind: model.KindSourceReencoded,
			})
		}
	}

	return candidates, nil
}

// BrowserOnly reports whether a candidate's host serves only to real
// browsers; the caller must redirect rather than fetch it server-side.
func (r *Resolver) BrowserOnly(candidate model.CandidateURL) bool {
	host := hostOf(candidate.URL)
	return host != "" && r.rules.Classify(host) == FamilyBrowserOnly
}

// probeCDN does a short header-only existence check. Timeouts and errors
// just mean "CDN unavailable"; they are never fatal.
func (r *Resolver) probeCDN(ctx context.Context, cdnURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, cdnURL, nil)
	if err != nil {
		return false
	}

	resp, err := r.probeClient.Do(req)
	if err != nil {
		logger.Debug("cdn probe failed", logger.String("url", cdnURL), logger.ErrorField(err))
		return false
	}
	resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
