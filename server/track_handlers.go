package server

import (
	"net/http"
	"strconv"

	"nashidona/logger"
	"nashidona/model"
)

// trackResponse is the legacy lyrics-first shape; full=1 adds the
// denormalized catalog item.
type trackResponse struct {
	ID     int64          `json:"id"`
	Title  string         `json:"title"`
	Lyrics string         `json:"lyrics"`
	Item   *trackItemJSON `json:"item,omitempty"`
}

type trackItemJSON struct {
	Album    string `json:"album,omitempty"`
	AlbumID  int64  `json:"albumId,omitempty"`
	Artist   string `json:"artist,omitempty"`
	ArtistID int64  `json:"artistId,omitempty"`
	CoverURL string `json:"coverUrl,omitempty"`
	Year     string `json:"year,omitempty"`
}

// GetTrackHandler serves GET /api/track?id=N[&full=1].
func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	trackID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil || trackID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid track id")
		return
	}

	track, err := h.trackRepo.GetTrackByID(r.Context(), trackID)
	if err != nil {
		logger.Error("track lookup failed", logger.Int64("trackId", trackID), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "track lookup failed")
		return
	}
	if track == nil {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}

	resp := trackResponse{
		ID:     track.ID,
		Title:  track.Title,
		Lyrics: track.Lyrics,
	}
	if r.URL.Query().Get("full") == "1" {
		resp.Item = trackItem(track)
	}
	writeJSON(w, http.StatusOK, resp)
}

func trackItem(t *model.Track) *trackItemJSON {
	return &trackItemJSON{
		Album:    t.Album,
		AlbumID:  t.AlbumID,
		Artist:   t.Artist,
		ArtistID: t.ArtistID,
		CoverURL: t.CoverURL,
		Year:     t.Year,
	}
}
