package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"spc-catalog/internal/database"
)

// ErrInvalidRecord marks a stored record that cannot be served.
var ErrInvalidRecord = errors.New("catalog: invalid record")

// Default thumbnail sizes referenced by DTO URLs.
const (
	CardThumbSize    = 300
	GalleryThumbSize = 600
	HeroThumbSize    = 1600
)

// Dimensions of a panel in millimetres.
type Dimensions struct {
	Length    int     `json:"length"`
	Width     int     `json:"width"`
	Thickness float64 `json:"thickness"`
}

type Collection struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Product struct {
	ID           int64      `json:"id"`
	Slug         string     `json:"slug"`
	Name         string     `json:"name"`
	Collection   string     `json:"collection"`
	Category     string     `json:"category,omitempty"`
	Dimensions   Dimensions `json:"dimensions"`
	Color        string     `json:"color,omitempty"`
	Price        float64    `json:"price"`
	Image        string     `json:"image,omitempty"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	Gallery      []string   `json:"gallery,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// ProductList is one page of products and where it came from.
type ProductList struct {
	Items      []Product `json:"items"`
	TotalItems int       `json:"totalItems"`
	Page       int       `json:"page"`
	PageSize   int       `json:"pageSize"`
	TotalPages int       `json:"totalPages"`
	Source     Source    `json:"source"`
}

type Certificate struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Issued      string `json:"issued,omitempty"`
	Size        int64  `json:"size"`
	SizeHuman   string `json:"sizeHuman,omitempty"`
	DownloadURL string `json:"downloadUrl"`
}

type Video struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	PreviewURL string `json:"previewUrl,omitempty"`
	Duration   int    `json:"duration"`
}

type HeroImage struct {
	ID       int64  `json:"id"`
	Title    string `json:"title,omitempty"`
	ImageURL string `json:"imageUrl"`
	Link     string `json:"link,omitempty"`
}

type Project struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Location  string   `json:"location,omitempty"`
	ImageURLs []string `json:"imageUrls"`
}

// ThumbnailURL returns the thumbnail endpoint URL for an asset path.
func ThumbnailURL(assetPath string, size int) string {
	if assetPath == "" {
		return ""
	}
	u := url.URL{Path: "/api/thumbnail/" + strings.TrimPrefix(assetPath, "/")}
	if size > 0 {
		u.RawQuery = "size=" + strconv.Itoa(size)
	}
	return u.String()
}

// ValidateProduct checks a stored product before it is served.
func ValidateProduct(p database.Product) error {
	switch {
	case strings.TrimSpace(p.Slug) == "":
		return fmt.Errorf("%w: product %d has empty slug", ErrInvalidRecord, p.ID)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: product %q has empty name", ErrInvalidRecord, p.Slug)
	case p.LengthMM <= 0 || p.WidthMM <= 0 || p.ThicknessMM <= 0:
		return fmt.Errorf("%w: product %q has non-positive dimensions %dx%dx%g",
			ErrInvalidRecord, p.Slug, p.LengthMM, p.WidthMM, p.ThicknessMM)
	case p.Price < 0:
		return fmt.Errorf("%w: product %q has negative price %g", ErrInvalidRecord, p.Slug, p.Price)
	}
	return nil
}

// ProductFromRow validates a row and converts it to its API form.
func ProductFromRow(p database.Product) (Product, error) {
	if err := ValidateProduct(p); err != nil {
		return Product{}, err
	}
	gallery := make([]string, 0, len(p.Gallery))
	for _, g := range p.Gallery {
		if g != "" {
			gallery = append(gallery, ThumbnailURL(g, GalleryThumbSize))
		}
	}
	return Product{
		ID:         p.ID,
		Slug:       p.Slug,
		Name:       p.Name,
		Collection: p.Collection,
		Category:   p.Category,
		Dimensions: Dimensions{
			Length:    p.LengthMM,
			Width:     p.WidthMM,
			Thickness: p.ThicknessMM,
		},
		Color:        p.Color,
		Price:        p.Price,
		Image:        p.Image,
		ThumbnailURL: ThumbnailURL(p.Image, CardThumbSize),
		Gallery:      gallery,
		CreatedAt:    p.CreatedAt.UTC(),
	}, nil
}

func collectionFromRow(c database.Collection) (Collection, error) {
	if strings.TrimSpace(c.Slug) == "" || strings.TrimSpace(c.Name) == "" {
		return Collection{}, fmt.Errorf("%w: collection %q missing slug or name", ErrInvalidRecord, c.Slug)
	}
	return Collection{Slug: c.Slug, Name: c.Name, Description: c.Description}, nil
}

func certificateFromRow(c database.Certificate) (Certificate, error) {
	if strings.TrimSpace(c.Title) == "" || c.FilePath == "" {
		return Certificate{}, fmt.Errorf("%w: certificate %d missing title or file", ErrInvalidRecord, c.ID)
	}
	out := Certificate{
		ID:          c.ID,
		Title:       c.Title,
		Issued:      c.Issued,
		Size:        c.Size,
		DownloadURL: fmt.Sprintf("/api/certificates/%d/download", c.ID),
	}
	if c.Size > 0 {
		out.SizeHuman = humanize.Bytes(uint64(c.Size))
	}
	return out, nil
}

func videoFromRow(v database.Video) (Video, error) {
	if strings.TrimSpace(v.Title) == "" || v.URL == "" {
		return Video{}, fmt.Errorf("%w: video %d missing title or url", ErrInvalidRecord, v.ID)
	}
	if v.Duration < 0 {
		return Video{}, fmt.Errorf("%w: video %d has negative duration", ErrInvalidRecord, v.ID)
	}
	return Video{
		ID:         v.ID,
		Title:      v.Title,
		URL:        v.URL,
		PreviewURL: ThumbnailURL(v.Preview, GalleryThumbSize),
		Duration:   v.Duration,
	}, nil
}

func heroFromRow(h database.HeroImage) (HeroImage, error) {
	if h.Image == "" {
		return HeroImage{}, fmt.Errorf("%w: hero image %d has no image", ErrInvalidRecord, h.ID)
	}
	return HeroImage{
		ID:       h.ID,
		Title:    h.Title,
		ImageURL: ThumbnailURL(h.Image, HeroThumbSize),
		Link:     h.Link,
	}, nil
}

func projectFromRow(p database.Project) (Project, error) {
	if strings.TrimSpace(p.Title) == "" {
		return Project{}, fmt.Errorf("%w: project %d has empty title", ErrInvalidRecord, p.ID)
	}
	urls := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if img != "" {
			urls = append(urls, ThumbnailURL(img, GalleryThumbSize))
		}
	}
	return Project{ID: p.ID, Title: p.Title, Location: p.Location, ImageURLs: urls}, nil
}
