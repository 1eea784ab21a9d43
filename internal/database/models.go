package database

import "time"

// Collection groups products of one panel line.
type Collection struct {
	Slug        string
	Name        string
	Description string
	SortOrder   int
}

// Product is a catalog row as stored. Rows are not validated; the catalog
// package checks them before they reach an API response.
type Product struct {
	ID          int64
	Slug        string
	Name        string
	Collection  string
	Category    string
	LengthMM    int
	WidthMM     int
	ThicknessMM float64
	Color       string
	Price       float64
	Image       string
	Gallery     []string
	CreatedAt   time.Time
}

type Certificate struct {
	ID       int64
	Title    string
	FilePath string
	Issued   string
	Size     int64
}

type Video struct {
	ID       int64
	Title    string
	URL      string
	Preview  string
	Duration int
}

type HeroImage struct {
	ID        int64
	Title     string
	Image     string
	Link      string
	SortOrder int
}

type Project struct {
	ID       int64
	Title    string
	Location string
	Images   []string
}

type Favorite struct {
	ClientID  string
	ProductID int64
	CreatedAt time.Time
}

// AssetKind classifies files found under the assets directory.
type AssetKind string

const (
	AssetKindImage    AssetKind = "image"
	AssetKindDocument AssetKind = "document"
	AssetKindVideo    AssetKind = "video"
	AssetKindOther    AssetKind = "other"
)

type Asset struct {
	Path     string
	Kind     AssetKind
	Size     int64
	ModTime  time.Time
	FileHash string
}

type SortField string
type SortOrder string

const (
	SortByName    SortField = "name"
	SortByPrice   SortField = "price"
	SortByCreated SortField = "created"
	SortAsc       SortOrder = "asc"
	SortDesc      SortOrder = "desc"
)

const (
	DefaultPageSize = 24
	MaxPageSize     = 100
)

// ProductFilter narrows ListProducts. Empty fields match everything.
type ProductFilter struct {
	Collection string
	Category   string
	Color      string
	Query      string
	SortField  SortField
	SortOrder  SortOrder
	Page       int
	PageSize   int
}

// Normalize clamps pagination and fills defaults.
func (f ProductFilter) Normalize() ProductFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}
	switch f.SortField {
	case SortByName, SortByPrice, SortByCreated:
	default:
		f.SortField = SortByName
	}
	if f.SortOrder != SortDesc {
		f.SortOrder = SortAsc
	}
	return f
}

// ProductPage is one page of ListProducts output.
type ProductPage struct {
	Items      []Product
	TotalItems int
	Page       int
	PageSize   int
	TotalPages int
}

// SeedData is a full catalog snapshot written by Seed.
type SeedData struct {
	Collections  []Collection
	Products     []Product
	Certificates []Certificate
	Videos       []Video
	HeroImages   []HeroImage
	Projects     []Project
}
