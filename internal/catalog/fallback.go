package catalog

import (
	_ "embed"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spc-catalog/internal/database"
)

//go:embed fallback.yaml
var embeddedFallback []byte

// Snapshot is a static copy of the catalog, read from YAML.
type Snapshot struct {
	Collections []struct {
		Slug        string `yaml:"slug"`
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		SortOrder   int    `yaml:"sortOrder"`
	} `yaml:"collections"`
	Products []struct {
		Slug       string    `yaml:"slug"`
		Name       string    `yaml:"name"`
		Collection string    `yaml:"collection"`
		Category   string    `yaml:"category"`
		Length     int       `yaml:"length"`
		Width      int       `yaml:"width"`
		Thickness  float64   `yaml:"thickness"`
		Color      string    `yaml:"color"`
		Price      float64   `yaml:"price"`
		Image      string    `yaml:"image"`
		Gallery    []string  `yaml:"gallery"`
		Created    time.Time `yaml:"created"`
	} `yaml:"products"`
	Certificates []struct {
		Title  string `yaml:"title"`
		File   string `yaml:"file"`
		Issued string `yaml:"issued"`
		Size   int64  `yaml:"size"`
	} `yaml:"certificates"`
	Videos []struct {
		Title    string `yaml:"title"`
		URL      string `yaml:"url"`
		Preview  string `yaml:"preview"`
		Duration int    `yaml:"duration"`
	} `yaml:"videos"`
	HeroImages []struct {
		Title     string `yaml:"title"`
		Image     string `yaml:"image"`
		Link      string `yaml:"link"`
		SortOrder int    `yaml:"sortOrder"`
	} `yaml:"heroImages"`
	Projects []struct {
		Title    string   `yaml:"title"`
		Location string   `yaml:"location"`
		Images   []string `yaml:"images"`
	} `yaml:"projects"`
}

// ParseSnapshot decodes a YAML catalog snapshot.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse catalog snapshot: %w", err)
	}
	return &s, nil
}

// LoadSnapshot reads a snapshot from path, or the built-in one when path is
// empty.
func LoadSnapshot(path string) (*Snapshot, error) {
	if path == "" {
		return ParseSnapshot(embeddedFallback)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog snapshot %s: %w", path, err)
	}
	return ParseSnapshot(data)
}

// SeedData converts the snapshot to database rows. Products and content get
// 1-based ids in file order so fallback responses have stable ids.
func (s *Snapshot) SeedData() database.SeedData {
	var d database.SeedData
	for _, c := range s.Collections {
		d.Collections = append(d.Collections, database.Collection{
			Slug: c.Slug, Name: c.Name, Description: c.Description, SortOrder: c.SortOrder,
		})
	}
	for i, p := range s.Products {
		d.Products = append(d.Products, database.Product{
			ID:          int64(i + 1),
			Slug:        p.Slug,
			Name:        p.Name,
			Collection:  p.Collection,
			Category:    p.Category,
			LengthMM:    p.Length,
			WidthMM:     p.Width,
			ThicknessMM: p.Thickness,
			Color:       p.Color,
			Price:       p.Price,
			Image:       p.Image,
			Gallery:     p.Gallery,
			CreatedAt:   p.Created,
		})
	}
	for i, c := range s.Certificates {
		d.Certificates = append(d.Certificates, database.Certificate{
			ID: int64(i + 1), Title: c.Title, FilePath: c.File, Issued: c.Issued, Size: c.Size,
		})
	}
	for i, v := range s.Videos {
		d.Videos = append(d.Videos, database.Video{
			ID: int64(i + 1), Title: v.Title, URL: v.URL, Preview: v.Preview, Duration: v.Duration,
		})
	}
	for i, h := range s.HeroImages {
		d.HeroImages = append(d.HeroImages, database.HeroImage{
			ID: int64(i + 1), Title: h.Title, Image: h.Image, Link: h.Link, SortOrder: h.SortOrder,
		})
	}
	for i, p := range s.Projects {
		d.Projects = append(d.Projects, database.Project{
			ID: int64(i + 1), Title: p.Title, Location: p.Location, Images: p.Images,
		})
	}
	return d
}

// fallbackStore answers catalog reads from a snapshot held in memory.
type fallbackStore struct {
	data database.SeedData
}

func newFallbackStore(s *Snapshot) *fallbackStore {
	if s == nil {
		return &fallbackStore{}
	}
	fs := &fallbackStore{data: s.SeedData()}
	sort.SliceStable(fs.data.Collections, func(i, j int) bool {
		return fs.data.Collections[i].SortOrder < fs.data.Collections[j].SortOrder
	})
	sort.SliceStable(fs.data.HeroImages, func(i, j int) bool {
		return fs.data.HeroImages[i].SortOrder < fs.data.HeroImages[j].SortOrder
	})
	return fs
}

// listProducts applies the same filter semantics as the database query.
func (f *fallbackStore) listProducts(filter database.ProductFilter) *database.ProductPage {
	opts := filter.Normalize()
	q := strings.ToLower(strings.TrimSpace(opts.Query))

	matched := make([]database.Product, 0, len(f.data.Products))
	for _, p := range f.data.Products {
		if opts.Collection != "" && p.Collection != opts.Collection {
			continue
		}
		if opts.Category != "" && p.Category != opts.Category {
			continue
		}
		if opts.Color != "" && !strings.EqualFold(p.Color, opts.Color) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Slug), q) {
			continue
		}
		matched = append(matched, p)
	}

	less := func(a, b database.Product) bool {
		switch opts.SortField {
		case database.SortByPrice:
			return a.Price < b.Price
		case database.SortByCreated:
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if opts.SortOrder == database.SortDesc {
			return less(matched[j], matched[i])
		}
		return less(matched[i], matched[j])
	})

	total := len(matched)
	totalPages := int(math.Ceil(float64(total) / float64(opts.PageSize)))
	if totalPages < 1 {
		totalPages = 1
	}
	lo := (opts.Page - 1) * opts.PageSize
	if lo > total {
		lo = total
	}
	hi := lo + opts.PageSize
	if hi > total {
		hi = total
	}

	return &database.ProductPage{
		Items:      matched[lo:hi],
		TotalItems: total,
		Page:       opts.Page,
		PageSize:   opts.PageSize,
		TotalPages: totalPages,
	}
}

func (f *fallbackStore) product(slug string) (database.Product, bool) {
	for _, p := range f.data.Products {
		if p.Slug == slug {
			return p, true
		}
	}
	return database.Product{}, false
}

func (f *fallbackStore) certificate(id int64) (database.Certificate, bool) {
	for _, c := range f.data.Certificates {
		if c.ID == id {
			return c, true
		}
	}
	return database.Certificate{}, false
}
