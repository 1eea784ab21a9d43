package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"spc-catalog/internal/catalog"
	"spc-catalog/internal/database"
)

// CollectionsResponse lists collections and where they came from.
type CollectionsResponse struct {
	Items  []catalog.Collection `json:"items"`
	Source catalog.Source       `json:"source"`
}

// ListCollections returns all collections.
//
//	GET /api/collections
func (h *Handlers) ListCollections(w http.ResponseWriter, r *http.Request) {
	items, source := h.catalog.Collections(r.Context())
	writeJSONStatusCode(w, http.StatusOK, CollectionsResponse{Items: items, Source: source})
}

// parseProductFilter reads the product list query. Unknown sort values fall
// back to name ascending; malformed page numbers are rejected.
func parseProductFilter(r *http.Request) (database.ProductFilter, error) {
	q := r.URL.Query()
	f := database.ProductFilter{
		Collection: strings.TrimSpace(q.Get("collection")),
		Category:   strings.TrimSpace(q.Get("category")),
		Color:      strings.TrimSpace(q.Get("color")),
		Query:      strings.TrimSpace(q.Get("q")),
		SortField:  database.SortField(strings.ToLower(q.Get("sort"))),
		SortOrder:  database.SortOrder(strings.ToLower(q.Get("order"))),
	}

	var err error
	if f.Page, err = queryInt(r, "page"); err != nil {
		return f, errors.New("page must be an integer")
	}
	if f.PageSize, err = queryInt(r, "pageSize"); err != nil {
		return f, errors.New("pageSize must be an integer")
	}
	return f.Normalize(), nil
}

// ListProducts returns one filtered, sorted page of products.
//
//	GET /api/products?collection=&category=&color=&q=&sort=&order=&page=&pageSize=
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseProductFilter(r)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, h.catalog.Products(r.Context(), filter))
}

// ProductResponse wraps a product with its data source.
type ProductResponse struct {
	catalog.Product
	Source catalog.Source `json:"source"`
}

// GetProduct returns one product by slug.
//
//	GET /api/products/{slug}
func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]
	p, source, err := h.catalog.Product(r.Context(), slug)
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSONError(w, "product not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, "failed to load product", http.StatusInternalServerError)
		return
	}
	writeJSONStatusCode(w, http.StatusOK, ProductResponse{Product: p, Source: source})
}
