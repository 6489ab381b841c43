package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRow feeds scanTrack a row without a live database. Values must line up
// with trackColumns; nil marks a NULL column.
type fakeRow struct {
	vals []interface{}
}

func (f fakeRow) Scan(dest ...interface{}) error {
	if len(dest) != len(f.vals) {
		return fmt.Errorf("scan arity mismatch: %d dests, %d values", len(dest), len(f.vals))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = f.vals[i].(int64)
		case *string:
			*p = f.vals[i].(string)
		case *sql.NullString:
			if s, ok := f.vals[i].(string); ok {
				*p = sql.NullString{String: s, Valid: true}
			} else {
				*p = sql.NullString{}
			}
		case *sql.NullInt64:
			if n, ok := f.vals[i].(int64); ok {
				*p = sql.NullInt64{Int64: n, Valid: true}
			} else {
				*p = sql.NullInt64{}
			}
		case *time.Time:
			*p = f.vals[i].(time.Time)
		default:
			return fmt.Errorf("unsupported scan dest %T", d)
		}
	}
	return nil
}

func fullRow(ts time.Time) fakeRow {
	return fakeRow{vals: []interface{}{
		int64(5),        // id
		"Ya Taiba",      // title
		"Al Afasy",      // artist
		int64(12),       // artist_id
		"Classics",      // album
		int64(34),       // album_id
		"covers/5.jpg",  // cover_url
		"1999",          // year
		"lyrics text",   // lyrics
		"https://cdn/5", // cdn_url
		"https://src/5", // source_url
		ts,              // created_at
		ts,              // updated_at
	}}
}

func TestScanTrackPopulatesAllColumns(t *testing.T) {
	t.Parallel()

	ts := time.Unix(1700000000, 0)
	track, err := scanTrack(fullRow(ts))
	require.NoError(t, err)

	assert.Equal(t, int64(5), track.ID)
	assert.Equal(t, "Ya Taiba", track.Title)
	assert.Equal(t, "Al Afasy", track.Artist)
	assert.Equal(t, int64(12), track.ArtistID)
	assert.Equal(t, "Classics", track.Album)
	assert.Equal(t, int64(34), track.AlbumID)
	assert.Equal(t, "covers/5.jpg", track.CoverURL)
	assert.Equal(t, "https://cdn/5", track.CDNURL)
	assert.Equal(t, "https://src/5", track.SourceURL)
	assert.Equal(t, ts, track.CreatedAt)
}

func TestScanTrackNullColumnsZero(t *testing.T) {
	t.Parallel()

	ts := time.Unix(1700000000, 0)
	row := fakeRow{vals: []interface{}{
		int64(5), "Ya Taiba", nil, nil, nil, nil, nil, nil, nil, nil, nil, ts, ts,
	}}
	track, err := scanTrack(row)
	require.NoError(t, err)

	assert.Empty(t, track.Artist)
	assert.Zero(t, track.ArtistID)
	assert.Empty(t, track.Album)
	assert.Zero(t, track.AlbumID)
	assert.Empty(t, track.CDNURL)
}

func TestTrackColumnsMatchScanArity(t *testing.T) {
	t.Parallel()

	// scanTrack errors via fakeRow if the column list and the scan ever
	// drift apart.
	cols := strings.Split(trackColumns, ",")
	assert.Len(t, fullRow(time.Now()).vals, len(cols))
}
