package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"spc-catalog/internal/catalog"
	"spc-catalog/internal/logging"
)

// ClientCookie identifies an anonymous visitor for favorites.
const ClientCookie = "client_id"

const clientCookieMaxAge = 365 * 24 * time.Hour

// FavoriteRequest is the body of POST and DELETE /api/favorites.
type FavoriteRequest struct {
	ProductID int64 `json:"productId"`
}

// clientID returns the visitor's ID, issuing a new cookie when the request
// has none or a malformed one.
func clientID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(ClientCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     ClientCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   int(clientCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// favoritesError maps catalog errors to a response.
func favoritesError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeJSONError(w, "product not found", http.StatusNotFound)
	case errors.Is(err, catalog.ErrUnavailable):
		writeJSONError(w, "favorites are temporarily unavailable", http.StatusServiceUnavailable)
	default:
		logging.Warn("Favorites: %v", err)
		writeJSONError(w, "failed to update favorites", http.StatusInternalServerError)
	}
}

func readFavoriteRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var req FavoriteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return 0, false
	}
	if req.ProductID < 1 {
		writeJSONError(w, "productId is required", http.StatusBadRequest)
		return 0, false
	}
	return req.ProductID, true
}

// GetFavorites lists the visitor's favorited products.
//
//	GET /api/favorites
func (h *Handlers) GetFavorites(w http.ResponseWriter, r *http.Request) {
	items, err := h.catalog.Favorites(r.Context(), clientID(w, r))
	if err != nil {
		favoritesError(w, err)
		return
	}
	if items == nil {
		items = []catalog.Product{}
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, http.StatusOK, items)
}

// AddFavorite adds a product to the visitor's favorites. Adding twice is a no-op.
//
//	POST /api/favorites {"productId": 1}
func (h *Handlers) AddFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := readFavoriteRequest(w, r)
	if !ok {
		return
	}
	if err := h.catalog.AddFavorite(r.Context(), clientID(w, r), id); err != nil {
		favoritesError(w, err)
		return
	}
	writeJSONStatus(w, "ok")
}

// RemoveFavorite removes a product from the visitor's favorites.
//
//	DELETE /api/favorites {"productId": 1}
func (h *Handlers) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id, ok := readFavoriteRequest(w, r)
	if !ok {
		return
	}
	if err := h.catalog.RemoveFavorite(r.Context(), clientID(w, r), id); err != nil {
		favoritesError(w, err)
		return
	}
	writeJSONStatus(w, "ok")
}

// CheckFavorite reports whether a product is in the visitor's favorites.
//
//	GET /api/favorites/check?productId=1
func (h *Handlers) CheckFavorite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.URL.Query().Get("productId"), 10, 64)
	if err != nil || id < 1 {
		writeJSONError(w, "productId is required", http.StatusBadRequest)
		return
	}

	fav, err := h.catalog.IsFavorite(r.Context(), clientID(w, r), id)
	if err != nil {
		favoritesError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, http.StatusOK, map[string]bool{"isFavorite": fav})
}
