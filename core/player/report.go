package player

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"nashidona/logger"
)

// ReportSink receives bad-link reports from the watchdog's escalation path.
type ReportSink interface {
	Report(trackID int64, reason, detail string, retries int)
}

// NoopSink discards reports.
type NoopSink struct{}

func (NoopSink) Report(int64, string, string, int) {}

// HTTPReportSink posts reports to the catalog's report endpoint. Submission
// is fire-and-forget with a few capped resubmission attempts; failures are
// logged and dropped, never surfaced to playback.
type HTTPReportSink struct {
	endpoint string
	client   *http.Client

	// retryInterval overrides the initial backoff interval; zero keeps the
	// library default.
	retryInterval time.Duration
}

// NewHTTPReportSink creates a sink posting to endpoint, e.g.
// "https://play.nashidona.net/api/report-bad-link".
func NewHTTPReportSink(endpoint string) *HTTPReportSink {
	return &HTTPReportSink{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type reportPayload struct {
	TrackID int64  `json:"track_id"`
	Reason  string `json:"reason"`
	Detail  string `json:"detail,omitempty"`
	Retries int    `json:"retries"`
}

// Report submits asynchronously.
func (s *HTTPReportSink) Report(trackID int64, reason, detail string, retries int) {
	go func() {
		body, err := json.Marshal(reportPayload{
			TrackID: trackID,
			Reason:  reason,
			Detail:  detail,
			Retries: retries,
		})
		if err != nil {
			return
		}

		op := func() error {
			resp, err := s.client.Post(s.endpoint, "application/json", bytes.NewReader(body))
			if err != nil {
				return err
			}
			resp.Body.Close()
			if resp.StatusCode >= 500 {
				return fmt.Errorf("report endpoint returned %d", resp.StatusCode)
			}
			return nil
		}

		bo := backoff.NewExponentialBackOff()
		if s.retryInterval > 0 {
			bo.InitialInterval = s.retryInterval
		}
		policy := backoff.WithMaxRetries(bo, 3)
		if err := backoff.Retry(op, policy); err != nil {
			logger.Warn("bad link report dropped",
				logger.Int64("trackId", trackID),
				logger.String("reason", reason),
				logger.ErrorField(err))
		}
	}()
}
