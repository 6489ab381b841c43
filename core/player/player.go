package player

import (
	"math/rand"
	"sync"
	"time"

	"nashidona/logger"
	"nashidona/model"
)

// ResolveFunc turns persisted track ids back into full track metadata when a
// snapshot is restored. Ids that no longer resolve are silently dropped.
type ResolveFunc func(ids []int64) ([]model.Track, error)

// StreamURLFunc builds the playback URL for a track id, normally pointing at
// the delivery proxy's /stream/{id} route.
type StreamURLFunc func(trackID int64) string

// Options configures a Player. Transport and StreamURL are required; the
// rest default to no-ops.
type Options struct {
	Transport Transport
	StreamURL StreamURLFunc

	Controls MediaController
	Store    SnapshotStore
	Reports  ReportSink
	Resolve  ResolveFunc

	// ReportEndpoint is where playback-failure reports are POSTed when no
	// explicit Reports sink is supplied. Empty means reports are dropped.
	ReportEndpoint string

	// Rand seeds shuffle; defaults to a time-seeded source.
	Rand *rand.Rand
	// Clock is injectable for tests; defaults to time.Now.
	Clock func() time.Time
	// DisableTimers turns off the watchdog ticker and sleep timer so tests
	// can drive ticks explicitly.
	DisableTimers bool
}

// Player is the playback engine: it owns the queue, the per-track session,
// the stall watchdog and the platform control bindings, and serializes all
// of them behind one mutex. Transports must deliver their events (progress,
// metadata, ended, error) asynchronously, never from inside a transport call
// made by the player.
type Player struct {
	mu sync.Mutex

	queue     *Queue
	transport Transport
	controls  MediaController
	store     SnapshotStore
	sink      ReportSink
	streamURL StreamURLFunc

	now           func() time.Time
	disableTimers bool

	session  *Session
	watchdog *Watchdog

	// autoplayIntent carries the "start playing once loaded" decision from
	// the navigation that caused the track change to the metadata event.
	autoplayIntent bool

	sleepAt    time.Time
	sleepTimer *time.Timer

	// saveCh carries snapshots to the single save worker; capacity one plus
	// latest-wins replacement keeps writes ordered without blocking mutations.
	saveCh chan Snapshot

	closed bool
}

// New creates a Player and restores any persisted snapshot.
func New(opts Options) *Player {
	p := &Player{
		transport:     opts.Transport,
		controls:      opts.Controls,
		store:         opts.Store,
		sink:          opts.Reports,
		streamURL:     opts.StreamURL,
		now:           opts.Clock,
		disableTimers: opts.DisableTimers,
	}
	if p.controls == nil {
		p.controls = NoopController{}
	}
	if p.sink == nil && opts.ReportEndpoint != "" {
		p.sink = NewHTTPReportSink(opts.ReportEndpoint)
	}
	if p.sink == nil {
		p.sink = NoopSink{}
	}
	if p.store != nil {
		p.saveCh = make(chan Snapshot, 1)
		go p.saveLoop()
	}
	if p.now == nil {
		p.now = time.Now
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	p.queue = NewQueue(rng)

	p.controls.SetHandlers(p.controlHandlers())

	p.restore(opts.Resolve)
	return p
}

// controlHandlers builds the media-key bindings, registered at construction
// and again on every track change.
func (p *Player) controlHandlers() ControlHandlers {
	return ControlHandlers{
		Next:  func() { p.Next(true) },
		Prev:  func() { p.Prev(true) },
		Play:  p.Play,
		Pause: p.Pause,
		Seek:  p.Seek,
	}
}

// restore rebuilds queue state from the snapshot store. Restoration never
// starts playback; the restored current track sits paused until the user
// acts.
func (p *Player) restore(resolve ResolveFunc) {
	if p.store == nil || resolve == nil {
		return
	}

	snap, err := p.store.Load()
	if err != nil {
		logger.Warn("snapshot restore failed", logger.ErrorField(err))
		return
	}
	if snap == nil {
		return
	}

	tracks, err := resolve(snap.QueueIDs)
	if err != nil {
		logger.Warn("snapshot track resolution failed", logger.ErrorField(err))
		return
	}

	byID := make(map[int64]model.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range snap.QueueIDs {
		if t, ok := byID[id]; ok {
			p.queue.Add(t)
		}
	}

	switch LoopMode(snap.Loop) {
	case LoopQueue, LoopOne:
		p.queue.SetLoop(LoopMode(snap.Loop))
	default:
		p.queue.SetLoop(LoopNone)
	}

	// A current id that vanished from the catalog degrades to "none". The
	// restored track loads paused; playback waits for the user.
	if snap.CurrentID != 0 && p.queue.SetCurrent(snap.CurrentID) {
		p.autoplayIntent = false
		p.startSessionLocked()
		p.session.state = StatePaused
	}

	if snap.SleepAtMS > 0 {
		at := time.UnixMilli(snap.SleepAtMS)
		if at.After(p.now()) {
			p.scheduleSleepLocked(at)
		}
	}
}

// Tracks returns a copy of the queue order.
func (p *Player) Tracks() []model.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Tracks()
}

// Current returns the current track, or false when the queue has none.
func (p *Player) Current() (model.Track, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Current()
}

// State returns the transport state of the current session.
func (p *Player) State() TransportState {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session == nil {
		return StateIdle
	}
	return p.session.state
}

// Loop returns the active loop mode.
func (p *Player) Loop() LoopMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Loop()
}

// Shuffled reports whether shuffle is active.
func (p *Player) Shuffled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Shuffled()
}

// Add appends a track to the queue; the first track added to an empty queue
// becomes current and starts loading.
func (p *Player) Add(track model.Track) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	added := p.queue.Add(track)
	if !added {
		return false
	}

	if _, ok := p.queue.Current(); !ok {
		p.queue.SetCurrent(track.ID)
		p.autoplayIntent = false
		p.startSessionLocked()
	}

	p.saveLocked()
	return true
}

// PlayNow inserts the track (if absent), makes it current and starts
// playback.
func (p *Player) PlayNow(track model.Track) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queue.PlayNow(track)
	p.autoplayIntent = true
	p.startSessionLocked()
	p.saveLocked()
}

// Remove deletes a track from the queue. Removing the current track first
// advances so playback continues; when nothing remains the player stops.
func (p *Player) Remove(id int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	before, hadCurrent := p.queue.Current()
	if !p.queue.Remove(id) {
		return false
	}

	after, hasCurrent := p.queue.Current()
	switch {
	case hadCurrent && !hasCurrent:
		p.stopSessionLocked()
	case hadCurrent && after.ID != before.ID:
		p.autoplayIntent = p.session != nil && p.session.playing
		p.startSessionLocked()
	}

	p.saveLocked()
	return true
}

// Move swaps a track with its neighbor.
func (p *Player) Move(id int64, dir MoveDirection) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.queue.Move(id, dir) {
		return false
	}
	p.saveLocked()
	return true
}

// Next advances to the next track. Explicit navigation always moves the
// pointer regardless of loop mode; LoopOne restarts only on automatic
// end-of-track.
func (p *Player) Next(autoplay bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextWithIntentLocked(autoplay)
	p.saveLocked()
}

// Prev moves to the previous track.
func (p *Player) Prev(autoplay bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.queue.Prev() {
		p.autoplayIntent = autoplay
		p.startSessionLocked()
	}
	p.saveLocked()
}

// SetLoop sets the loop mode.
func (p *Player) SetLoop(mode LoopMode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.SetLoop(mode)
	p.saveLocked()
}

// ToggleShuffle toggles shuffle, keeping the current track at its index.
func (p *Player) ToggleShuffle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue.ToggleShuffle()
	p.saveLocked()
}

// Play resumes the current session.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return
	}
	p.transport.Play()
	p.session.playing = true
	p.session.state = StatePlaying
	// A paused session carries a stale progress timestamp; reset it so the
	// watchdog does not fire the instant playback resumes.
	p.session.markProgress(p.now())
}

// Pause pauses the current session. The watchdog ignores paused sessions.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return
	}
	p.transport.Pause()
	p.session.playing = false
	p.session.state = StatePaused
}

// TogglePlay flips between playing and paused.
func (p *Player) TogglePlay() {
	p.mu.Lock()
	playing := p.session != nil && p.session.playing
	p.mu.Unlock()

	if playing {
		p.Pause()
	} else {
		p.Play()
	}
}

// Seek jumps to the given position in seconds.
func (p *Player) Seek(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session == nil {
		return
	}
	p.transport.Seek(seconds)
	p.session.position = seconds
	p.session.markProgress(p.now())
}

// SetSleepTimer pauses playback at the given time. A zero time clears any
// pending timer.
func (p *Player) SetSleepTimer(at time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.cancelSleepLocked()
	if !at.IsZero() && at.After(p.now()) {
		p.scheduleSleepLocked(at)
	}
	p.saveLocked()
}

// SleepTimer returns the pending pause time, or zero when none is set.
func (p *Player) SleepTimer() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sleepAt
}

// OnProgress is called by the transport on playback position updates.
func (p *Player) OnProgress(position float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session
	if s == nil {
		return
	}
	s.position = position
	s.markProgress(p.now())
	p.controls.SetNowPlaying(s.track, s.position, s.duration)
}

// OnMetadata is called by the transport once track metadata (duration) has
// loaded. This is where a pending autoplay intent turns into playback.
func (p *Player) OnMetadata(duration float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session
	if s == nil {
		return
	}
	s.duration = duration
	s.markProgress(p.now())

	if p.autoplayIntent {
		p.autoplayIntent = false
		p.transport.Play()
		s.playing = true
		s.state = StatePlaying
	} else if s.state == StateLoading {
		s.state = StatePaused
	}
	p.controls.SetNowPlaying(s.track, s.position, s.duration)
}

// OnEnded is called by the transport when the current track finishes
// naturally. LoopOne restarts here and only here; explicit navigation always
// advances.
func (p *Player) OnEnded() {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.session
	if s == nil {
		return
	}

	if p.queue.Loop() == LoopOne {
		p.transport.Seek(0)
		p.transport.Play()
		s.position = 0
		s.playing = true
		s.state = StatePlaying
		s.markProgress(p.now())
		return
	}

	if !p.nextWithIntentLocked(true) {
		// End of queue without wraparound: stop, keep the pointer.
		p.transport.Pause()
		p.transport.Seek(0)
		s.position = 0
		s.playing = false
		s.state = StateEnded
	}
	p.saveLocked()
}

// Close tears down timers and the transport. The player is unusable after.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true

	p.stopWatchdogLocked()
	p.cancelSleepLocked()
	p.session = nil
	p.transport.Stop()
	p.controls.Clear()
	// All sends sit behind p.mu and the closed flag, so this cannot race.
	if p.saveCh != nil {
		close(p.saveCh)
	}
}

// nextWithIntentLocked advances the queue and, on success, starts the new
// session with the given autoplay intent. This is the single navigation
// path shared by media keys, end-of-track and the watchdog's skip.
func (p *Player) nextWithIntentLocked(autoplay bool) bool {
	if !p.queue.Next() {
		return false
	}
	p.autoplayIntent = autoplay
	p.startSessionLocked()
	return true
}

// nextLocked is the watchdog's entry into queue navigation.
func (p *Player) nextLocked(autoplay bool) {
	p.nextWithIntentLocked(autoplay)
	p.saveLocked()
}

// startSessionLocked tears down the previous session and begins loading the
// current track.
func (p *Player) startSessionLocked() {
	p.stopWatchdogLocked()

	cur, ok := p.queue.Current()
	if !ok {
		p.stopSessionLocked()
		return
	}

	p.session = newSession(cur, p.now())
	p.transport.Load(p.streamURL(cur.ID))
	// Handlers are rebound per track, not once at startup; platform control
	// surfaces drop bindings when the media item changes.
	p.controls.SetHandlers(p.controlHandlers())
	p.controls.SetNowPlaying(cur, 0, 0)

	if !p.disableTimers {
		p.watchdog = newWatchdog(p)
		go p.watchdog.run()
	}
}

func (p *Player) stopSessionLocked() {
	p.stopWatchdogLocked()
	p.session = nil
	p.autoplayIntent = false
	p.transport.Stop()
	p.controls.Clear()
}

func (p *Player) stopWatchdogLocked() {
	if p.watchdog != nil {
		p.watchdog.halt()
		p.watchdog = nil
	}
}

func (p *Player) scheduleSleepLocked(at time.Time) {
	p.sleepAt = at
	if p.disableTimers {
		return
	}
	p.sleepTimer = time.AfterFunc(at.Sub(p.now()), p.sleepExpired)
}

func (p *Player) cancelSleepLocked() {
	if p.sleepTimer != nil {
		p.sleepTimer.Stop()
		p.sleepTimer = nil
	}
	p.sleepAt = time.Time{}
}

func (p *Player) sleepExpired() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sleepAt = time.Time{}
	p.sleepTimer = nil

	if p.session != nil && p.session.playing {
		p.transport.Pause()
		p.session.playing = false
		p.session.state = StatePaused
	}
	p.saveLocked()
}

// saveLocked hands the current queue snapshot to the save worker.
// Persistence is best-effort and asynchronous so storage latency never holds
// the player lock hostage; a snapshot still waiting in the channel is
// replaced, so the worker only ever writes the newest state and mutations can
// never land on disk out of order.
func (p *Player) saveLocked() {
	if p.saveCh == nil || p.closed {
		return
	}

	snap := Snapshot{
		Loop: string(p.queue.Loop()),
	}
	for _, t := range p.queue.Tracks() {
		snap.QueueIDs = append(snap.QueueIDs, t.ID)
	}
	if cur, ok := p.queue.Current(); ok {
		snap.CurrentID = cur.ID
	}
	if !p.sleepAt.IsZero() {
		snap.SleepAtMS = p.sleepAt.UnixMilli()
	}

	for {
		select {
		case p.saveCh <- snap:
			return
		default:
			// Superseded snapshot still pending; drop it and retry.
			select {
			case <-p.saveCh:
			default:
			}
		}
	}
}

// saveLoop is the single snapshot writer; it drains until Close.
func (p *Player) saveLoop() {
	for snap := range p.saveCh {
		if err := p.store.Save(snap); err != nil {
			logger.Warn("snapshot save failed", logger.ErrorField(err))
		}
	}
}
