package catalog

import (
	"context"
	"errors"
	"fmt"

	"spc-catalog/internal/database"
	"spc-catalog/internal/logging"
	"spc-catalog/internal/metrics"
)

var (
	// ErrNotFound is returned for unknown products, certificates and favorites targets.
	ErrNotFound = errors.New("catalog: not found")
	// ErrUnavailable is returned when a write needs the database and there is none.
	ErrUnavailable = errors.New("catalog: store unavailable")
)

// Source tells clients whether data came from the database or the fallback.
type Source string

const (
	SourceDatabase Source = "database"
	SourceFallback Source = "fallback"
)

// Store is the subset of *database.Database the catalog reads and writes.
type Store interface {
	ListCollections(ctx context.Context) ([]database.Collection, error)
	ListProducts(ctx context.Context, filter database.ProductFilter) (*database.ProductPage, error)
	GetProduct(ctx context.Context, slug string) (*database.Product, error)
	ListCertificates(ctx context.Context) ([]database.Certificate, error)
	GetCertificate(ctx context.Context, id int64) (*database.Certificate, error)
	ListVideos(ctx context.Context) ([]database.Video, error)
	ListHeroImages(ctx context.Context) ([]database.HeroImage, error)
	ListProjects(ctx context.Context) ([]database.Project, error)
	ListFavorites(ctx context.Context, clientID string) ([]database.Product, error)
	AddFavorite(ctx context.Context, clientID string, productID int64) error
	RemoveFavorite(ctx context.Context, clientID string, productID int64) error
	IsFavorite(ctx context.Context, clientID string, productID int64) (bool, error)
}

// Service serves validated catalog DTOs from a Store, falling back to a
// static snapshot when the store fails. A nil store always uses the fallback.
type Service struct {
	store    Store
	fallback *fallbackStore
}

// NewService creates a catalog service. snapshot may be nil for no fallback.
func NewService(store Store, snapshot *Snapshot) *Service {
	return &Service{store: store, fallback: newFallbackStore(snapshot)}
}

func (s *Service) hasStore() bool {
	return s.store != nil
}

func servedFallback(resource string, err error) {
	if err != nil {
		logging.Warn("Catalog %s: database failed, serving fallback: %v", resource, err)
	}
	metrics.CatalogFallbackServed.WithLabelValues(resource).Inc()
}

// convertAll converts rows, dropping and logging those that fail validation.
func convertAll[R, D any](resource string, rows []R, conv func(R) (D, error)) []D {
	out := make([]D, 0, len(rows))
	for _, r := range rows {
		d, err := conv(r)
		if err != nil {
			logging.Warn("Skipping %s record: %v", resource, err)
			metrics.CatalogInvalidRecords.WithLabelValues(resource).Inc()
			continue
		}
		out = append(out, d)
	}
	return out
}

// Collections returns all collections.
func (s *Service) Collections(ctx context.Context) ([]Collection, Source) {
	if s.hasStore() {
		rows, err := s.store.ListCollections(ctx)
		if err == nil {
			return convertAll("collection", rows, collectionFromRow), SourceDatabase
		}
		servedFallback("collections", err)
	} else {
		servedFallback("collections", nil)
	}
	return convertAll("collection", s.fallback.data.Collections, collectionFromRow), SourceFallback
}

// Products returns one page of filtered products. It never fails: database
// errors are answered from the fallback snapshot.
func (s *Service) Products(ctx context.Context, filter database.ProductFilter) *ProductList {
	var page *database.ProductPage
	source := SourceDatabase

	if s.hasStore() {
		var err error
		page, err = s.store.ListProducts(ctx, filter)
		if err != nil {
			servedFallback("products", err)
			page = nil
		}
	} else {
		servedFallback("products", nil)
	}
	if page == nil {
		page = s.fallback.listProducts(filter)
		source = SourceFallback
	}

	return &ProductList{
		Items:      convertAll("product", page.Items, ProductFromRow),
		TotalItems: page.TotalItems,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalPages: page.TotalPages,
		Source:     source,
	}
}

// Product returns one product by slug. The fallback is consulted only when
// the database fails, not when it reports the product missing.
func (s *Service) Product(ctx context.Context, slug string) (Product, Source, error) {
	var row database.Product
	source := SourceDatabase

	found := false
	if s.hasStore() {
		p, err := s.store.GetProduct(ctx, slug)
		switch {
		case err == nil:
			row, found = *p, true
		case errors.Is(err, database.ErrNotFound):
			return Product{}, source, ErrNotFound
		default:
			servedFallback("product", err)
		}
	} else {
		servedFallback("product", nil)
	}

	if !found {
		source = SourceFallback
		p, ok := s.fallback.product(slug)
		if !ok {
			return Product{}, source, ErrNotFound
		}
		row = p
	}

	dto, err := ProductFromRow(row)
	if err != nil {
		logging.Warn("Refusing to serve product %q: %v", slug, err)
		metrics.CatalogInvalidRecords.WithLabelValues("product").Inc()
		return Product{}, source, ErrNotFound
	}
	return dto, source, nil
}

// Certificates returns all certificates, or an empty list on failure.
func (s *Service) Certificates(ctx context.Context) []Certificate {
	if !s.hasStore() {
		return []Certificate{}
	}
	rows, err := s.store.ListCertificates(ctx)
	if err != nil {
		logging.Warn("Catalog certificates: %v", err)
		return []Certificate{}
	}
	return convertAll("certificate", rows, certificateFromRow)
}

// CertificateFile returns the asset path and title of a certificate.
func (s *Service) CertificateFile(ctx context.Context, id int64) (path, title string, err error) {
	if !s.hasStore() {
		c, ok := s.fallback.certificate(id)
		if !ok {
			return "", "", ErrNotFound
		}
		return c.FilePath, c.Title, nil
	}
	c, err := s.store.GetCertificate(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load certificate %d: %w", id, err)
	}
	if _, err := certificateFromRow(*c); err != nil {
		return "", "", ErrNotFound
	}
	return c.FilePath, c.Title, nil
}

// Videos returns instruction videos, or an empty list on failure.
func (s *Service) Videos(ctx context.Context) []Video {
	if !s.hasStore() {
		return []Video{}
	}
	rows, err := s.store.ListVideos(ctx)
	if err != nil {
		logging.Warn("Catalog videos: %v", err)
		return []Video{}
	}
	return convertAll("video", rows, videoFromRow)
}

// HeroImages returns hero banners, or the snapshot's banners on failure.
func (s *Service) HeroImages(ctx context.Context) ([]HeroImage, Source) {
	if s.hasStore() {
		rows, err := s.store.ListHeroImages(ctx)
		if err == nil {
			return convertAll("hero_image", rows, heroFromRow), SourceDatabase
		}
		servedFallback("hero_images", err)
	} else {
		servedFallback("hero_images", nil)
	}
	return convertAll("hero_image", s.fallback.data.HeroImages, heroFromRow), SourceFallback
}

// Projects returns the project gallery, or an empty list on failure.
func (s *Service) Projects(ctx context.Context) []Project {
	if !s.hasStore() {
		return []Project{}
	}
	rows, err := s.store.ListProjects(ctx)
	if err != nil {
		logging.Warn("Catalog projects: %v", err)
		return []Project{}
	}
	return convertAll("project", rows, projectFromRow)
}

// Favorites returns the favorited products of a client.
func (s *Service) Favorites(ctx context.Context, clientID string) ([]Product, error) {
	if !s.hasStore() {
		return nil, ErrUnavailable
	}
	rows, err := s.store.ListFavorites(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	return convertAll("product", rows, ProductFromRow), nil
}

// AddFavorite adds a product to a client's favorites.
func (s *Service) AddFavorite(ctx context.Context, clientID string, productID int64) error {
	if !s.hasStore() {
		return ErrUnavailable
	}
	err := s.store.AddFavorite(ctx, clientID, productID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// RemoveFavorite removes a product from a client's favorites.
func (s *Service) RemoveFavorite(ctx context.Context, clientID string, productID int64) error {
	if !s.hasStore() {
		return ErrUnavailable
	}
	return s.store.RemoveFavorite(ctx, clientID, productID)
}

// IsFavorite reports whether a client has favorited a product.
func (s *Service) IsFavorite(ctx context.Context, clientID string, productID int64) (bool, error) {
	if !s.hasStore() {
		return false, ErrUnavailable
	}
	return s.store.IsFavorite(ctx, clientID, productID)
}
