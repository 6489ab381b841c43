package player

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Snapshot is the persisted queue state: enough to rebuild the queue across
// client sessions. Track metadata is re-resolved from ids at load time.
type Snapshot struct {
	QueueIDs  []int64 `json:"queue"`
	CurrentID int64   `json:"current,omitempty"` // 0 means none
	Loop      string  `json:"loop"`
	SleepAtMS int64   `json:"sleepAt,omitempty"` // epoch millis, 0 means no timer
}

// SnapshotStore persists snapshots to client-local durable storage. Saves
// are fire-and-forget from the player's point of view: a storage failure
// must never block playback.
type SnapshotStore interface {
	Save(snap Snapshot) error
	// Load returns (nil, nil) when no snapshot exists yet.
	Load() (*Snapshot, error)
}

// FileSnapshotStore keeps the snapshot as a JSON file, written atomically
// via temp-file rename. Saves are serialized; each write gets its own temp
// file so concurrent callers cannot tear each other's snapshots.
type FileSnapshotStore struct {
	mu   sync.Mutex
	path string
}

// NewFileSnapshotStore creates a store at the given path, creating parent
// directories as needed.
func NewFileSnapshotStore(path string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return &FileSnapshotStore{path: path}, nil
}

// Save writes the snapshot.
func (s *FileSnapshotStore) Save(snap Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir, base := filepath.Split(s.path)
	tmp, err := os.CreateTemp(dir, base+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the snapshot, returning (nil, nil) when none has been saved.
func (s *FileSnapshotStore) Load() (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
