package player

import (
	"time"

	"nashidona/logger"
)

// Watchdog drives the periodic stall check for one playback session. The
// decision logic lives on the Player (it needs the player's lock and the
// current session); the watchdog is only the timer. It is torn down when
// the current track changes, and a late tick is harmless because the check
// always reads the player's current session.
type Watchdog struct {
	player *Player
	stop   chan struct{}
}

func newWatchdog(p *Player) *Watchdog {
	return &Watchdog{player: p, stop: make(chan struct{})}
}

func (w *Watchdog) run() {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.player.checkStall()
		}
	}
}

func (w *Watchdog) halt() {
	close(w.stop)
}

// checkStall is the watchdog tick: while nominally playing, a session with
// no progress past the stall threshold gets a bounded number of reload
// attempts, then one report and one skip.
func (p *Player) checkStall() {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session
	if s == nil || !s.playing {
		return
	}
	if !s.stalled(p.now()) {
		return
	}

	p.recoverSession(s, "stuck, no progress", "")
}

// recoverSession applies the bounded-retry-then-skip policy. Used by both
// the stall timer and hard transport errors. Caller holds the lock.
func (p *Player) recoverSession(s *Session, reason, detail string) {
	if s.escalated {
		return
	}

	if s.retries.Attempt() {
		logger.Warn("playback recovery attempt",
			logger.Int64("trackId", s.track.ID),
			logger.String("reason", reason),
			logger.Int("attempt", s.retries.Used()))
		p.transport.Reload()
		p.transport.Play()
		// Give the retry a fresh stall window.
		s.markProgress(p.now())
		return
	}

	s.escalated = true
	logger.Error("playback recovery exhausted, skipping track",
		logger.Int64("trackId", s.track.ID),
		logger.String("reason", reason),
		logger.Int("retries", s.retries.Used()))
	p.sink.Report(s.track.ID, reason, detail, s.retries.Used())
	p.nextLocked(true)
}

// OnTransportError handles a hard decode/network error from the transport.
// It follows the same bounded-retry-then-skip policy as a silent stall, but
// immediately rather than waiting for the next tick.
func (p *Player) OnTransportError(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session
	if s == nil {
		return
	}
	s.state = StateError

	detail := ""
	if err != nil {
		detail = err.Error()
	}
	p.recoverSession(s, "transport error", detail)
}
