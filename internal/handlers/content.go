package handlers

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/gorilla/mux"

	"spc-catalog/internal/catalog"
	"spc-catalog/internal/logging"
	"spc-catalog/internal/media"
)

// ListCertificates returns quality certificates.
//
//	GET /api/certificates
func (h *Handlers) ListCertificates(w http.ResponseWriter, r *http.Request) {
	writeJSONStatusCode(w, http.StatusOK, h.catalog.Certificates(r.Context()))
}

// DownloadCertificate serves a certificate file as an attachment.
//
//	GET /api/certificates/{id}/download
func (h *Handlers) DownloadCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id < 1 {
		writeJSONError(w, "invalid certificate id", http.StatusBadRequest)
		return
	}

	rel, title, err := h.catalog.CertificateFile(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSONError(w, "certificate not found", http.StatusNotFound)
		return
	}
	if err != nil {
		logging.Warn("Certificate %d: %v", id, err)
		writeJSONError(w, "failed to load certificate", http.StatusInternalServerError)
		return
	}

	f, info, err := h.assets.Open(rel)
	if err != nil {
		if !errors.Is(err, media.ErrNotFound) {
			logging.Warn("Certificate %d file %s: %v", id, rel, err)
		}
		writeJSONError(w, "certificate file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", media.MimeType(rel))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": downloadName(title, rel),
	}))
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

// downloadName builds "<title><ext>", falling back to the file's own name.
func downloadName(title, rel string) string {
	if title == "" {
		return path.Base(rel)
	}
	return fmt.Sprintf("%s%s", title, path.Ext(rel))
}

// ListVideos returns instruction videos.
//
//	GET /api/videos
func (h *Handlers) ListVideos(w http.ResponseWriter, r *http.Request) {
	writeJSONStatusCode(w, http.StatusOK, h.catalog.Videos(r.Context()))
}

// HeroImagesResponse lists hero banners and where they came from.
type HeroImagesResponse struct {
	Items  []catalog.HeroImage `json:"items"`
	Source catalog.Source      `json:"source"`
}

// ListHeroImages returns the home page hero banners.
//
//	GET /api/hero-images
func (h *Handlers) ListHeroImages(w http.ResponseWriter, r *http.Request) {
	items, source := h.catalog.HeroImages(r.Context())
	writeJSONStatusCode(w, http.StatusOK, HeroImagesResponse{Items: items, Source: source})
}

// ListProjects returns the completed projects gallery.
//
//	GET /api/projects
func (h *Handlers) ListProjects(w http.ResponseWriter, r *http.Request) {
	writeJSONStatusCode(w, http.StatusOK, h.catalog.Projects(r.Context()))
}
