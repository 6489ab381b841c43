package player

import (
	"math/rand"

	"github.com/samber/lo"

	"nashidona/model"
)

// LoopMode controls what happens at queue boundaries and track end.
type LoopMode string

const (
	LoopNone  LoopMode = "none"
	LoopQueue LoopMode = "queue"
	LoopOne   LoopMode = "one"
)

// MoveDirection is the direction of a neighbor swap.
type MoveDirection int

const (
	MoveUp   MoveDirection = -1
	MoveDown MoveDirection = 1
)

// Queue is the ordered track list plus current-pointer, loop mode and
// shuffle state. IDs are unique within the queue (set semantics on id, list
// semantics on order). The zero current-pointer state is -1, "none".
//
// Queue is a pure state machine: no locking, no I/O. The owning Player
// serializes access and persists after mutations.
type Queue struct {
	tracks     []model.Track
	current    int
	loop       LoopMode
	shuffled   bool
	preShuffle []model.Track
	rng        *rand.Rand
}

// NewQueue creates an empty queue.
func NewQueue(rng *rand.Rand) *Queue {
	return &Queue{current: -1, loop: LoopNone, rng: rng}
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int { return len(q.tracks) }

// Tracks returns a copy of the queue order.
func (q *Queue) Tracks() []model.Track {
	out := make([]model.Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

// Current returns the current track, or false when there is none.
func (q *Queue) Current() (model.Track, bool) {
	if q.current < 0 || q.current >= len(q.tracks) {
		return model.Track{}, false
	}
	return q.tracks[q.current], true
}

// CurrentIndex returns the current pointer (-1 for none).
func (q *Queue) CurrentIndex() int { return q.current }

// Loop returns the loop mode.
func (q *Queue) Loop() LoopMode { return q.loop }

// SetLoop sets the loop mode.
func (q *Queue) SetLoop(mode LoopMode) { q.loop = mode }

// Shuffled reports whether shuffle is active.
func (q *Queue) Shuffled() bool { return q.shuffled }

func (q *Queue) indexOf(id int64) int {
	_, idx, _ := lo.FindIndexOf(q.tracks, func(t model.Track) bool {
		return t.ID == id
	})
	return idx
}

// Add appends a track. Duplicate ids are rejected; returns whether the
// track was added.
func (q *Queue) Add(track model.Track) bool {
	if q.indexOf(track.ID) >= 0 {
		return false
	}
	q.tracks = append(q.tracks, track)
	if q.shuffled {
		q.preShuffle = append(q.preShuffle, track)
	}
	return true
}

// PlayNow ensures the track is present (prepending when absent) and points
// current at it.
func (q *Queue) PlayNow(track model.Track) {
	idx := q.indexOf(track.ID)
	if idx < 0 {
		q.tracks = append([]model.Track{track}, q.tracks...)
		idx = 0
		if q.shuffled {
			q.preShuffle = append([]model.Track{track}, q.preShuffle...)
		}
	}
	q.current = idx
}

// SetCurrent points the current-pointer at the track with the given id.
// Returns false when the id is not queued.
func (q *Queue) SetCurrent(id int64) bool {
	idx := q.indexOf(id)
	if idx < 0 {
		return false
	}
	q.current = idx
	return true
}

// ClearCurrent drops the current pointer to "none".
func (q *Queue) ClearCurrent() { q.current = -1 }

// Remove deletes the track with the given id. When it is the current track
// the queue first navigates to the next track so playback continues; if no
// next track exists the pointer clears. Returns whether anything changed.
func (q *Queue) Remove(id int64) bool {
	idx := q.indexOf(id)
	if idx < 0 {
		return false
	}

	if idx == q.current {
		if !q.Next() {
			q.current = -1
		}
	}

	q.tracks = append(q.tracks[:idx], q.tracks[idx+1:]...)
	if q.shuffled {
		q.preShuffle = lo.Filter(q.preShuffle, func(t model.Track, _ int) bool {
			return t.ID != id
		})
	}

	// Repair the pointer after the removal shifted indices.
	if q.current > idx {
		q.current--
	}
	if q.current >= len(q.tracks) {
		q.current = len(q.tracks) - 1
	}
	return true
}

// Move swaps the track with its neighbor in the given direction. No-op at
// the boundaries.
func (q *Queue) Move(id int64, dir MoveDirection) bool {
	idx := q.indexOf(id)
	if idx < 0 {
		return false
	}

	target := idx + int(dir)
	if target < 0 || target >= len(q.tracks) {
		return false
	}

	q.tracks[idx], q.tracks[target] = q.tracks[target], q.tracks[idx]

	// Keep the pointer on the same track it referenced before the swap.
	switch q.current {
	case idx:
		q.current = target
	case target:
		q.current = idx
	}
	return true
}

// Next advances the current pointer. Wraparound is only permitted when loop
// mode is LoopQueue; otherwise the call is a no-op at the last track.
// Returns whether the pointer moved.
func (q *Queue) Next() bool {
	if len(q.tracks) == 0 || q.current < 0 {
		return false
	}
	if q.current < len(q.tracks)-1 {
		q.current++
		return true
	}
	if q.loop == LoopQueue {
		q.current = 0
		return true
	}
	return false
}

// Prev moves the current pointer back, wrapping only under LoopQueue.
func (q *Queue) Prev() bool {
	if len(q.tracks) == 0 || q.current < 0 {
		return false
	}
	if q.current > 0 {
		q.current--
		return true
	}
	if q.loop == LoopQueue {
		q.current = len(q.tracks) - 1
		return true
	}
	return false
}

// ToggleShuffle shuffles all entries except the current one, which keeps
// its index so the playing track does not visibly relocate. Disabling
// restores the order captured when shuffle was enabled.
func (q *Queue) ToggleShuffle() {
	if q.shuffled {
		var currentID int64
		cur, hasCur := q.Current()
		if hasCur {
			currentID = cur.ID
		}

		q.tracks = q.preShuffle
		q.preShuffle = nil
		q.shuffled = false

		if hasCur {
			q.current = q.indexOf(currentID)
		}
		return
	}

	q.preShuffle = make([]model.Track, len(q.tracks))
	copy(q.preShuffle, q.tracks)
	q.shuffled = true

	if q.current >= 0 && q.current < len(q.tracks) {
		cur := q.tracks[q.current]
		rest := make([]model.Track, 0, len(q.tracks)-1)
		rest = append(rest, q.tracks[:q.current]...)
		rest = append(rest, q.tracks[q.current+1:]...)
		q.fisherYates(rest)

		shuffled := make([]model.Track, 0, len(q.tracks))
		shuffled = append(shuffled, rest[:q.current]...)
		shuffled = append(shuffled, cur)
		shuffled = append(shuffled, rest[q.current:]...)
		q.tracks = shuffled
		return
	}

	q.fisherYates(q.tracks)
}

func (q *Queue) fisherYates(tracks []model.Track) {
	for i := len(tracks) - 1; i > 0; i-- {
		j := q.rng.Intn(i + 1)
		tracks[i], tracks[j] = tracks[j], tracks[i]
	}
}
