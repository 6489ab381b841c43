package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nashidona/model"
)

type stubReportRepo struct {
	reports []*model.BadLinkReport
	err     error
}

func (s *stubReportRepo) CreateReport(ctx context.Context, report *model.BadLinkReport) error {
	if s.err != nil {
		return s.err
	}
	s.reports = append(s.reports, report)
	return nil
}

func newReportRouter(repo *stubReportRepo) *mux.Router {
	h := newTestHandler(&stubTrackRepo{})
	h.reportRepo = repo
	r := mux.NewRouter()
	r.HandleFunc("/api/report-bad-link", h.ReportBadLinkHandler).Methods(http.MethodPost)
	r.HandleFunc("/api/metrics/play-start", h.PlayStartHandler).Methods(http.MethodPost)
	return r
}

func postJSON(router *mux.Router, path, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	return w
}

func TestReportBadLinkStored(t *testing.T) {
	t.Parallel()

	repo := &stubReportRepo{}
	router := newReportRouter(repo)

	w := postJSON(router, "/api/report-bad-link",
		`{"track_id":5,"reason":"stuck, no progress","detail":"timeout","retries":2}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.reports, 1)
	rep := repo.reports[0]
	assert.Equal(t, int64(5), rep.TrackID)
	assert.Equal(t, "stuck, no progress", rep.Reason)
	assert.Equal(t, 2, rep.Retries)
}

func TestReportBadLinkClampsLongFields(t *testing.T) {
	t.Parallel()

	repo := &stubReportRepo{}
	router := newReportRouter(repo)

	body, _ := json.Marshal(map[string]interface{}{
		"track_id": 5,
		"reason":   strings.Repeat("r", 500),
		"detail":   strings.Repeat("d", 5000),
	})
	w := postJSON(router, "/api/report-bad-link", string(body))

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.reports, 1)
	assert.Len(t, repo.reports[0].Reason, 100)
	assert.Len(t, repo.reports[0].Detail, 1000)
}

func TestReportBadLinkClampKeepsArabicValid(t *testing.T) {
	t.Parallel()

	repo := &stubReportRepo{}
	router := newReportRouter(repo)

	// 60 two-byte Arabic runes = 120 bytes; a byte cut at 100 would land
	// mid-rune.
	body, _ := json.Marshal(map[string]interface{}{
		"track_id": 5,
		"reason":   strings.Repeat("ي", 60),
	})
	w := postJSON(router, "/api/report-bad-link", string(body))

	assert.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.reports, 1)
	reason := repo.reports[0].Reason
	assert.True(t, utf8.ValidString(reason))
	assert.Equal(t, 100, len(reason))
	assert.Equal(t, 50, utf8.RuneCountInString(reason))
}

func TestClampRuneBoundary(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", clamp("abc", 10))
	assert.Equal(t, "ab", clamp("abcd", 2))
	// "ع" is 2 bytes; a 3-byte cap cannot keep half of the second rune.
	assert.Equal(t, "ع", clamp("عع", 3))
	assert.True(t, utf8.ValidString(clamp(strings.Repeat("س", 80), 101)))
}

func TestReportBadLinkStorageFailureStillAnswers200(t *testing.T) {
	t.Parallel()

	router := newReportRouter(&stubReportRepo{err: errors.New("db down")})

	w := postJSON(router, "/api/report-bad-link", `{"track_id":5,"reason":"x"}`)

	// Clients must not retry forever over a server-side storage problem.
	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["error"])
}

func TestReportBadLinkInvalidBody(t *testing.T) {
	t.Parallel()

	router := newReportRouter(&stubReportRepo{})

	assert.Equal(t, http.StatusBadRequest, postJSON(router, "/api/report-bad-link", "{broken").Code)
	assert.Equal(t, http.StatusBadRequest, postJSON(router, "/api/report-bad-link", `{"track_id":0}`).Code)
}

func TestPlayStartMetric(t *testing.T) {
	t.Parallel()

	router := newReportRouter(&stubReportRepo{})

	assert.Equal(t, http.StatusNoContent,
		postJSON(router, "/api/metrics/play-start", `{"track_id":5}`).Code)
	assert.Equal(t, http.StatusBadRequest,
		postJSON(router, "/api/metrics/play-start", `{"track_id":-1}`).Code)
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", clientIP(r))
}
