package player

import "nashidona/model"

// ControlHandlers are the callbacks bound to OS-level media controls.
// The watchdog's skip and the media-key "next" both route through the same
// queue navigation function, so the two can never diverge.
type ControlHandlers struct {
	Next  func()
	Prev  func()
	Play  func()
	Pause func()
	Seek  func(seconds float64)
}

// MediaController bridges the player to platform media controls (media
// keys, lock-screen transport UI). Platform frameworks bind handlers per
// metadata update, not globally once, so the player re-registers on every
// track change.
type MediaController interface {
	SetHandlers(handlers ControlHandlers)
	SetNowPlaying(track model.Track, position, duration float64)
	Clear()
}

// NoopController is a MediaController for headless use.
type NoopController struct{}

func (NoopController) SetHandlers(ControlHandlers)                 {}
func (NoopController) SetNowPlaying(model.Track, float64, float64) {}
func (NoopController) Clear()                                      {}
