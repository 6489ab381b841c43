package model

import "time"

// Track represents one catalog entry as read from the metadata store.
// The delivery/playback core never writes track metadata.
type Track struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Album    string `json:"album,omitempty"`
	AlbumID  int64  `json:"albumId,omitempty"`
	Artist   string `json:"artist,omitempty"`
	ArtistID int64  `json:"artistId,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
	Year     string `json:"year,omitempty"`
	Lyrics   string `json:"lyrics,omitempty"`

	// CDNURL is the managed-CDN location when one has been mirrored.
	// SourceURL is the originally recorded third-party location.
	// Neither is exposed to clients; playback goes through /stream/{id}.
	CDNURL    string `json:"-"`
	SourceURL string `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SourceKind classifies where a candidate URL points.
type SourceKind string

const (
	KindCDN             SourceKind = "cdn"
	KindSource          SourceKind = "source-host"
	KindSourceReencoded SourceKind = "source-host-reencoded"
)

// CandidateURL is one possible location for a track's audio bytes.
// Candidate lists are built fresh per delivery request and discarded.
type CandidateURL struct {
	URL  string
	Kind SourceKind
}
