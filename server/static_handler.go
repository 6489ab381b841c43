package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/minio/minio-go/v7"

	"nashidona/logger"
	"nashidona/storage"
)

// CoverHandler serves GET /covers/{object}: cover art pass-through from the
// object store.
func (h *APIHandler) CoverHandler(w http.ResponseWriter, r *http.Request) {
	client := storage.GetMinioClient()
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "object storage unavailable")
		return
	}

	objectPath := "covers/" + mux.Vars(r)["object"]
	if strings.Contains(objectPath, "..") {
		writeError(w, http.StatusBadRequest, "invalid object path")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	object, err := client.GetObject(ctx, h.cfg.MinioBucket, objectPath, minio.GetObjectOptions{})
	if err != nil {
		writeError(w, http.StatusNotFound, "cover not found")
		return
	}
	defer object.Close()

	// Covers are immutable per object name.
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.Header().Set("Content-Type", coverContentType(objectPath))

	if _, err := io.Copy(w, object); err != nil {
		logger.Warn("cover serve aborted", logger.String("object", objectPath), logger.ErrorField(err))
	}
}

func coverContentType(path string) string {
	switch {
	case strings.HasSuffix(path, ".png"):
		return "image/png"
	case strings.HasSuffix(path, ".webp"):
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
