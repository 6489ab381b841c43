package delivery

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nashidona/model"
)

func newTestResolver(cdnBase string) *Resolver {
	return NewResolver(cdnBase, 500*time.Millisecond, NewHostRules())
}

func TestResolveCDNProbeSucceeds(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	track := &model.Track{ID: 5, SourceURL: "https://example.com/a.mp3"}

	candidates, err := r.Resolve(context.Background(), track)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, model.KindCDN, candidates[0].Kind)
	assert.Equal(t, srv.URL+"/tracks/5.mp3", candidates[0].URL)
}

func TestResolveExplicitCDNURLWins(t *testing.T) {
	t.Parallel()

	var probed string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probed = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	track := &model.Track{ID: 5, CDNURL: srv.URL + "/custom/object.mp3"}

	candidates, err := r.Resolve(context.Background(), track)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, srv.URL+"/custom/object.mp3", candidates[0].URL)
	assert.Equal(t, "/custom/object.mp3", probed)
}

func TestResolveProbeFailureFallsBackToSource(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	track := &model.Track{ID: 5, SourceURL: "https://example.com/audio/a.mp3"}

	candidates, err := r.Resolve(context.Background(), track)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, model.KindSource, candidates[0].Kind)
	assert.Equal(t, track.SourceURL, candidates[0].URL)
}

func TestResolveStrictEncodingHostAddsReencodedCandidate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	track := &model.Track{ID: 5, SourceURL: "https://archive.org/download/يا طيبة/a.mp3"}

	candidates, err := r.Resolve(context.Background(), track)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, model.KindSource, candidates[0].Kind)
	assert.Equal(t, model.KindSourceReencoded, candidates[1].Kind)
	assert.Equal(t, ReencodeURL(track.SourceURL), candidates[1].URL)
}

func TestResolveStrictHostAlreadyEncodedNoDuplicate(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	track := &model.Track{ID: 5, SourceURL: "https://archive.org/download/plain/a.mp3"}

	candidates, err := r.Resolve(context.Background(), track)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
}

func TestResolveNoSource(t *testing.T) {
	t.Parallel()

	r := newTestResolver("")
	_, err := r.Resolve(context.Background(), &model.Track{ID: 5})
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestResolveProbeTimeoutTreatedAsUnavailable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	r := NewResolver(srv.URL, 100*time.Millisecond, NewHostRules())
	track := &model.Track{ID: 5, SourceURL: "https://example.com/a.mp3"}

	start := time.Now()
	candidates, err := r.Resolve(context.Background(), track)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, model.KindSource, candidates[0].Kind)
}

func TestBrowserOnly(t *testing.T) {
	t.Parallel()

	r := newTestResolver("")
	assert.True(t, r.BrowserOnly(model.CandidateURL{URL: "https://f99.top4top.net/x.mp3"}))
	assert.False(t, r.BrowserOnly(model.CandidateURL{URL: "https://archive.org/x.mp3"}))
}
