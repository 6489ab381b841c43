package delivery

import (
	"errors"
	"fmt"
	"strings"

	"nashidona/model"
)

// ErrNoSource signals that no audio URL could be determined for a track.
var ErrNoSource = errors.New("no audio source for track")

// Attempt records one upstream candidate try for diagnostics.
type Attempt struct {
	URL    string           `json:"url"`
	Kind   model.SourceKind `json:"kind"`
	Status int              `json:"status,omitempty"`
	Err    string           `json:"error,omitempty"`
}

// UpstreamError reports that every candidate failed. It carries the attempt
// list so the response (and any bad-link report) can say what was tried.
type UpstreamError struct {
	TrackID  int64
	Attempts []Attempt
}

func (e *UpstreamError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		if a.Err != "" {
			parts = append(parts, fmt.Sprintf("%s: %s", a.Kind, a.Err))
		} else {
			parts = append(parts, fmt.Sprintf("%s: status %d", a.Kind, a.Status))
		}
	}
	return fmt.Sprintf("all upstream candidates failed for track %d (%s)",
		e.TrackID, strings.Join(parts, "; "))
}
