package player

// TransportState is the lifecycle of the live audio transport, modeled as a
// small explicit state machine rather than nested event callbacks.
type TransportState int

const (
	StateIdle TransportState = iota
	StateLoading
	StatePlaying
	StatePaused
	StateEnded
	StateError
)

func (s TransportState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Transport abstracts the platform audio element. Implementations deliver
// progress, metadata, end and error events back to the Player through its
// OnProgress/OnMetadata/OnEnded/OnTransportError methods.
type Transport interface {
	// Load points the transport at a new source URL and begins loading.
	Load(url string)
	// Reload re-loads the current source and resumes from the current
	// position; used by the stall watchdog.
	Reload()
	Play()
	Pause()
	Seek(seconds float64)
	Position() float64
	Duration() float64
	// Stop detaches the transport from its source.
	Stop()
}
