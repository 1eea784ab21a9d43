package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes wires every handler onto r.
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/thumbnail/{path:.*}", h.GetThumbnail).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/thumbnail-url/{path:.*}", h.GetThumbnailURL).Methods(http.MethodGet)

	api.HandleFunc("/collections", h.ListCollections).Methods(http.MethodGet)
	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{slug}", h.GetProduct).Methods(http.MethodGet)

	api.HandleFunc("/certificates", h.ListCertificates).Methods(http.MethodGet)
	api.HandleFunc("/certificates/{id}/download", h.DownloadCertificate).Methods(http.MethodGet, http.MethodHead)
	api.HandleFunc("/videos", h.ListVideos).Methods(http.MethodGet)
	api.HandleFunc("/hero-images", h.ListHeroImages).Methods(http.MethodGet)
	api.HandleFunc("/projects", h.ListProjects).Methods(http.MethodGet)

	api.HandleFunc("/favorites", h.GetFavorites).Methods(http.MethodGet)
	api.HandleFunc("/favorites", h.AddFavorite).Methods(http.MethodPost)
	api.HandleFunc("/favorites", h.RemoveFavorite).Methods(http.MethodDelete)
	api.HandleFunc("/favorites/check", h.CheckFavorite).Methods(http.MethodGet)

	r.HandleFunc("/assets/{path:.*}", h.GetAsset).Methods(http.MethodGet, http.MethodHead)
}
