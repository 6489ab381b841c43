package player

import (
	"time"

	"nashidona/core/retry"
	"nashidona/model"
)

// watchdog tuning; see Session/Watchdog docs.
const (
	watchdogInterval = 4 * time.Second
	stallThreshold   = 15 * time.Second
	retryCeiling     = 2
)

// Session is the transient per-track playback state. It is created when a
// track becomes current and torn down when the current track changes; the
// retry budget therefore spans one track-attempt lifetime, not one stall
// interval.
type Session struct {
	track        model.Track
	position     float64
	duration     float64
	lastProgress time.Time
	retries      *retry.Policy
	playing      bool
	escalated    bool
	state        TransportState
}

func newSession(track model.Track, now time.Time) *Session {
	return &Session{
		track:        track,
		lastProgress: now,
		retries:      retry.NewPolicy(retryCeiling),
		state:        StateLoading,
	}
}

// Track returns the session's track.
func (s *Session) Track() model.Track { return s.track }

// Position returns the last observed play position in seconds.
func (s *Session) Position() float64 { return s.position }

// Duration returns the track duration once metadata has loaded.
func (s *Session) Duration() float64 { return s.duration }

// State returns the transport state as last observed by the player.
func (s *Session) State() TransportState { return s.state }

// markProgress records forward progress, giving the watchdog a fresh window.
func (s *Session) markProgress(now time.Time) {
	s.lastProgress = now
}

// stalled reports whether no progress has been seen for longer than the
// stall threshold.
func (s *Session) stalled(now time.Time) bool {
	return now.Sub(s.lastProgress) > stallThreshold
}
