package repository

import (
	"context"
	"database/sql"
	"fmt"

	"nashidona/db"
	"nashidona/model"
)

// TrackRepository defines the read-side interface against the metadata store.
// The delivery core never writes track rows.
type TrackRepository interface {
	GetTrackByID(ctx context.Context, id int64) (*model.Track, error)
	GetTracksByIDs(ctx context.Context, ids []int64) ([]*model.Track, error)
}

// mysqlTrackRepository implements TrackRepository for MySQL.
type mysqlTrackRepository struct {
	DB *sql.DB
}

// NewMySQLTrackRepository creates a new instance of mysqlTrackRepository.
func NewMySQLTrackRepository() TrackRepository {
	return &mysqlTrackRepository{DB: db.DB}
}

const trackColumns = `id, title, artist, artist_id, album, album_id, cover_url, year, lyrics, cdn_url, source_url, created_at, updated_at`

func scanTrack(row interface{ Scan(...interface{}) error }) (*model.Track, error) {
	track := &model.Track{}
	var artist, album, coverURL, year, lyrics, cdnURL, sourceURL sql.NullString
	var artistID, albumID sql.NullInt64
	err := row.Scan(&track.ID, &track.Title, &artist, &artistID, &album, &albumID,
		&coverURL, &year, &lyrics, &cdnURL, &sourceURL, &track.CreatedAt, &track.UpdatedAt)
	if err != nil {
		return nil, err
	}
	track.Artist = artist.String
	track.ArtistID = artistID.Int64
	track.Album = album.String
	track.AlbumID = albumID.Int64
	track.CoverURL = coverURL.String
	track.Year = year.String
	track.Lyrics = lyrics.String
	track.CDNURL = cdnURL.String
	track.SourceURL = sourceURL.String
	return track, nil
}

// GetTrackByID retrieves a track by its ID. Returns (nil, nil) when absent.
func (r *mysqlTrackRepository) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id = ?`
	track, err := scanTrack(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // track not found
		}
		return nil, fmt.Errorf("failed to scan track by ID %d: %w", id, err)
	}
	return track, nil
}

// GetTracksByIDs retrieves tracks for a set of IDs, used when rehydrating a
// persisted queue. Missing IDs are silently absent from the result.
func (r *mysqlTrackRepository) GetTracksByIDs(ctx context.Context, ids []int64) ([]*model.Track, error) {
	if len(ids) == 0 {
		return []*model.Track{}, nil
	}

	query := `SELECT ` + trackColumns + ` FROM tracks WHERE id IN (?` +
		repeatPlaceholder(len(ids)-1) + `)`
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks by IDs: %w", err)
	}
	defer rows.Close()

	tracks := make([]*model.Track, 0, len(ids))
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track in GetTracksByIDs: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in GetTracksByIDs: %w", err)
	}

	return tracks, nil
}

func repeatPlaceholder(n int) string {
	s := ""
	for i := 0; i < n; i++ {
		s += ",?"
	}
	return s
}
