package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"spc-catalog/internal/batch"
	"spc-catalog/internal/display"
	"spc-catalog/internal/logging"
	"spc-catalog/internal/media"
	"spc-catalog/internal/thumbcache"
)

const thumbnailCacheControl = "public, max-age=86400"

// thumbnailStats is implemented by *display.Pipeline.
type thumbnailStats interface {
	Stats() batch.Stats
	Cache() *thumbcache.Cache[*media.Thumbnail]
}

// ThumbnailURLResponse is the JSON form of a resolved thumbnail.
type ThumbnailURLResponse struct {
	State  display.State `json:"state"`
	URL    string        `json:"url,omitempty"`
	Width  int           `json:"width,omitempty"`
	Height int           `json:"height,omitempty"`
	Cached bool          `json:"cached"`
	Error  string        `json:"error,omitempty"`
}

// resolveThumbnail parses the options and runs the display state machine for
// the {path} route variable.
func (h *Handlers) resolveThumbnail(r *http.Request) display.Snapshot {
	source := mux.Vars(r)["path"]
	opts, err := media.ParseOptions(r.URL.Query())
	if err != nil {
		return display.Snapshot{State: display.StateError, Source: source, Err: err}
	}
	return display.Resolve(r.Context(), h.thumbs, source, opts)
}

// thumbnailError maps a failed load to a status code and a client-safe message.
func thumbnailError(err error) (int, string) {
	switch {
	case errors.Is(err, media.ErrInvalidOptions):
		return http.StatusBadRequest, strings.TrimPrefix(err.Error(), "media: ")
	case errors.Is(err, media.ErrInvalidPath):
		return http.StatusBadRequest, "invalid asset path"
	case errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound, "source not found"
	case errors.Is(err, media.ErrDecode):
		return http.StatusUnprocessableEntity, "source is not a decodable image"
	case errors.Is(err, batch.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "thumbnail service unavailable"
	default:
		return http.StatusInternalServerError, "thumbnail generation failed"
	}
}

func logThumbnailError(snap display.Snapshot, code int) {
	if code >= http.StatusInternalServerError {
		logging.Warn("Thumbnail %s failed: %v", snap.Source, snap.Err)
	} else {
		logging.Debug("Thumbnail %s: %v", snap.Source, snap.Err)
	}
}

// etagMatches reports whether an If-None-Match header matches etag.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func cacheMarker(cached bool) string {
	if cached {
		return "hit"
	}
	return "miss"
}

// GetThumbnail serves the encoded thumbnail of an asset.
//
//	GET /api/thumbnail/{path}?size=300&quality=80&format=auto
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	snap := h.resolveThumbnail(r)
	if snap.State != display.StateLoaded {
		code, msg := thumbnailError(snap.Err)
		logThumbnailError(snap, code)
		writeJSONError(w, msg, code)
		return
	}

	th := snap.Thumbnail
	etag := th.ETag()

	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", thumbnailCacheControl)
	w.Header().Set("X-Thumbnail-Cache", cacheMarker(snap.Cached))
	w.Header().Set("Vary", "Accept-Encoding")

	if inm := r.Header.Get("If-None-Match"); inm != "" && etagMatches(inm, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", th.ContentType())
	w.Header().Set("Content-Length", strconv.Itoa(len(th.Data)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(th.Data); err != nil {
		logging.Debug("Thumbnail %s: write failed: %v", snap.Source, err)
	}
}

// GetThumbnailURL returns the thumbnail as a data URL with its dimensions.
//
//	GET /api/thumbnail-url/{path}?size=300
func (h *Handlers) GetThumbnailURL(w http.ResponseWriter, r *http.Request) {
	snap := h.resolveThumbnail(r)
	if snap.State != display.StateLoaded {
		code, msg := thumbnailError(snap.Err)
		logThumbnailError(snap, code)
		writeJSONStatusCode(w, code, ThumbnailURLResponse{State: display.StateError, Error: msg})
		return
	}

	th := snap.Thumbnail
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Header().Set("X-Thumbnail-Cache", cacheMarker(snap.Cached))
	writeJSONStatusCode(w, http.StatusOK, ThumbnailURLResponse{
		State:  snap.State,
		URL:    th.DataURL(),
		Width:  th.Width,
		Height: th.Height,
		Cached: snap.Cached,
	})
}

// GetAsset streams an original asset, e.g. a full size gallery image.
//
//	GET /assets/{path}
func (h *Handlers) GetAsset(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]
	if media.KindOf(rel) == media.KindOther {
		writeJSONError(w, "not found", http.StatusNotFound)
		return
	}

	f, info, err := h.assets.Open(rel)
	if err != nil {
		code, msg := thumbnailError(err)
		writeJSONError(w, msg, code)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", media.MimeType(rel))
	w.Header().Set("Cache-Control", thumbnailCacheControl)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
