package delivery

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nashidona/model"
)

func newTestProxy() *Proxy {
	return NewProxy("test-agent", "https://play.example/", 2*time.Second)
}

func TestServeCandidatesFirstSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		assert.Equal(t, "https://play.example/", r.Header.Get("Referer"))
		assert.Equal(t, "identity", r.Header.Get("Accept-Encoding"))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("ETag", `"abc"`)
		w.Write([]byte("mp3bytes"))
	}))
	defer srv.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/stream/1", nil)

	err := newTestProxy().ServeCandidates(w, r, 1, []model.CandidateURL{
		{URL: srv.URL + "/a.mp3", Kind: model.KindCDN},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, `"abc"`, w.Header().Get("ETag"))
	assert.Equal(t, "mp3bytes", w.Body.String())
}

func TestServeCandidatesFallsThroughToSecond(t *testing.T) {
	t.Parallel()

	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("ok"))
	}))
	defer good.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/stream/1", nil)

	err := newTestProxy().ServeCandidates(w, r, 1, []model.CandidateURL{
		{URL: bad.URL + "/a.mp3", Kind: model.KindCDN},
		{URL: good.URL + "/a.mp3", Kind: model.KindSource},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", w.Body.String())
}

func TestServeCandidatesRejectsNonAudio(t *testing.T) {
	t.Parallel()

	html := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>interstitial</html>"))
	}))
	defer html.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/stream/1", nil)

	err := newTestProxy().ServeCandidates(w, r, 7, []model.CandidateURL{
		{URL: html.URL + "/a.mp3", Kind: model.KindSource},
	})
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, int64(7), ue.TrackID)
	require.Len(t, ue.Attempts, 1)
	assert.Equal(t, http.StatusOK, ue.Attempts[0].Status)
	assert.Contains(t, ue.Attempts[0].Err, "not audio")
}

func TestServeCandidatesAcceptsAudioByDisposition(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/force-download")
		w.Header().Set("Content-Disposition", `attachment; filename="nasheed.mp3"`)
		w.Write([]byte("bytes"))
	}))
	defer srv.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/stream/1", nil)

	err := newTestProxy().ServeCandidates(w, r, 1, []model.CandidateURL{
		{URL: srv.URL + "/x", Kind: model.KindSource},
	})
	require.NoError(t, err)
	assert.Equal(t, "bytes", w.Body.String())
}

func TestServeCandidatesForwardsRange(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bytes=100-199", r.Header.Get("Range"))
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Header().Set("Content-Range", "bytes 100-199/5000")
		w.WriteHeader(http.StatusPartialContent)
		w.Write(make([]byte, 100))
	}))
	defer srv.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/stream/1", nil)
	r.Header.Set("Range", "bytes=100-199")

	err := newTestProxy().ServeCandidates(w, r, 1, []model.CandidateURL{
		{URL: srv.URL + "/a.mp3", Kind: model.KindCDN},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusPartialContent, w.Code)
	assert.Equal(t, "bytes 100-199/5000", w.Header().Get("Content-Range"))
	assert.Equal(t, 100, w.Body.Len())
}

func TestServeCandidatesHeadDoesNotStreamBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "audio/mpeg")
		w.Write([]byte("should not reach client"))
	}))
	defer srv.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodHead, "/stream/1", nil)

	err := newTestProxy().ServeCandidates(w, r, 1, []model.CandidateURL{
		{URL: srv.URL + "/a.mp3", Kind: model.KindCDN},
	})
	require.NoError(t, err)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Zero(t, w.Body.Len())
}

func TestServeCandidatesAllFailCollectsAttempts(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/stream/1", nil)

	err := newTestProxy().ServeCandidates(w, r, 9, []model.CandidateURL{
		{URL: srv.URL + "/a.mp3", Kind: model.KindCDN},
		{URL: srv.URL + "/b.mp3", Kind: model.KindSource},
	})
	var ue *UpstreamError
	require.ErrorAs(t, err, &ue)
	require.Len(t, ue.Attempts, 2)
	assert.Equal(t, model.KindCDN, ue.Attempts[0].Kind)
	assert.Equal(t, model.KindSource, ue.Attempts[1].Kind)
	assert.Equal(t, http.StatusNotFound, ue.Attempts[0].Status)
	// Nothing was written to the client; the handler still owns the status.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, w.Body.Len())
}

func TestPlausiblyAudio(t *testing.T) {
	t.Parallel()

	mk := func(ct, cd string) http.Header {
		h := http.Header{}
		if ct != "" {
			h.Set("Content-Type", ct)
		}
		if cd != "" {
			h.Set("Content-Disposition", cd)
		}
		return h
	}

	assert.True(t, plausiblyAudio(mk("audio/mpeg", "")))
	assert.True(t, plausiblyAudio(mk("application/octet-stream", "")))
	assert.True(t, plausiblyAudio(mk("video/mpeg", "")))
	assert.True(t, plausiblyAudio(mk("text/plain", `attachment; filename="a.OGG"`)))
	assert.False(t, plausiblyAudio(mk("text/html", "")))
	assert.False(t, plausiblyAudio(mk("", "")))
}
