package media

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"spc-catalog/internal/thumbcache"
)

var (
	// ErrNotFound means the source could not be loaded.
	ErrNotFound = errors.New("media: source not found")
	// ErrDecode means the source exists but is not a decodable image.
	ErrDecode = errors.New("media: cannot decode source")
	// ErrInvalidOptions means thumbnail parameters were out of range.
	ErrInvalidOptions = errors.New("media: invalid thumbnail options")
	// ErrInvalidPath means a source path escapes the asset root.
	ErrInvalidPath = errors.New("media: invalid asset path")
)

// Format is a thumbnail output encoding.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	// FormatAuto keeps PNG for PNG and GIF sources and uses JPEG otherwise.
	FormatAuto Format = "auto"
)

// ContentType returns the MIME type for an output format.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/jpeg"
}

// Option bounds.
const (
	DefaultSize    = 300
	MinSize        = 16
	MaxSize        = 2048
	DefaultQuality = 80
	MinQuality     = 1
	MaxQuality     = 100
)

// Options are the parameters of a thumbnail.
type Options struct {
	// Size is the bounding box edge in pixels.
	Size int
	// Quality is the JPEG quality, 1..100.
	Quality int
	Format  Format
}

// DefaultOptions returns size 300, quality 80, auto format.
func DefaultOptions() Options {
	return Options{Size: DefaultSize, Quality: DefaultQuality, Format: FormatAuto}
}

// Validate checks the option ranges.
func (o Options) Validate() error {
	if o.Size < MinSize || o.Size > MaxSize {
		return fmt.Errorf("%w: size %d outside %d..%d", ErrInvalidOptions, o.Size, MinSize, MaxSize)
	}
	if o.Quality < MinQuality || o.Quality > MaxQuality {
		return fmt.Errorf("%w: quality %d outside %d..%d", ErrInvalidOptions, o.Quality, MinQuality, MaxQuality)
	}
	switch o.Format {
	case FormatJPEG, FormatPNG, FormatAuto:
	default:
		return fmt.Errorf("%w: format %q", ErrInvalidOptions, o.Format)
	}
	return nil
}

// ParseOptions reads size, quality and format from query values. Missing
// values take their defaults. Quality accepts an integer percentage or a
// fraction in (0, 1].
func ParseOptions(values url.Values) (Options, error) {
	opts := DefaultOptions()

	if s := strings.TrimSpace(values.Get("size")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return opts, fmt.Errorf("%w: size %q", ErrInvalidOptions, s)
		}
		opts.Size = n
	}

	if s := strings.TrimSpace(values.Get("quality")); s != "" {
		q, err := ParseQuality(s)
		if err != nil {
			return opts, err
		}
		opts.Quality = q
	}

	if s := strings.TrimSpace(values.Get("format")); s != "" {
		switch f := Format(strings.ToLower(s)); f {
		case "jpg":
			opts.Format = FormatJPEG
		default:
			opts.Format = f
		}
	}

	return opts, opts.Validate()
}

// ParseQuality accepts "80" or "0.8" and returns a percentage.
func ParseQuality(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < MinQuality || n > MaxQuality {
			return 0, fmt.Errorf("%w: quality %d outside %d..%d", ErrInvalidOptions, n, MinQuality, MaxQuality)
		}
		return n, nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f <= 0 || f > 1 {
		return 0, fmt.Errorf("%w: quality %q", ErrInvalidOptions, s)
	}

	q := int(math.Round(f * 100))
	if q < MinQuality {
		q = MinQuality
	}
	return q, nil
}

// Request identifies one thumbnail of one source.
type Request struct {
	// Source is the asset path relative to the asset root.
	Source string
	Options
}

// Key is the cache and de-duplication key of the request.
func (r Request) Key() string {
	return thumbcache.Key(r.Source, r.Size, r.Quality, string(r.Format))
}

// RequestKey is Request.Key as a function value.
func RequestKey(r Request) string {
	return r.Key()
}

// Thumbnail is an encoded, resized image.
type Thumbnail struct {
	Source       string
	Data         []byte
	Format       Format
	Width        int
	Height       int
	SourceWidth  int
	SourceHeight int
	Generated    time.Time
}

// ContentType returns the MIME type of Data.
func (t *Thumbnail) ContentType() string {
	return t.Format.ContentType()
}

// DataURL returns Data as a base64 data URL.
func (t *Thumbnail) DataURL() string {
	return "data:" + t.ContentType() + ";base64," + base64.StdEncoding.EncodeToString(t.Data)
}

// ETag returns a strong entity tag for Data.
func (t *Thumbnail) ETag() string {
	sum := sha1.Sum(t.Data)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

// Size returns the encoded size in bytes.
func (t *Thumbnail) Size() int64 {
	return int64(len(t.Data))
}

// Asset kinds recorded by the indexer.
const (
	KindImage    = "image"
	KindDocument = "document"
	KindVideo    = "video"
	KindOther    = "other"
)

// ImageExtensions lists the source formats the generator can decode.
var ImageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// DocumentExtensions lists downloadable document formats.
var DocumentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
}

// VideoExtensions lists locally hosted instruction video formats.
var VideoExtensions = map[string]bool{
	".mp4": true, ".webm": true, ".mov": true, ".m4v": true,
}

var mimeTypes = map[string]string{
	".jpg": "image/jpeg", ".jpeg": "image/jpeg", ".png": "image/png",
	".gif": "image/gif", ".webp": "image/webp", ".bmp": "image/bmp",
	".tif": "image/tiff", ".tiff": "image/tiff",
	".pdf": "application/pdf", ".doc": "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xls":  "application/vnd.ms-excel",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".mp4":  "video/mp4", ".webm": "video/webm", ".mov": "video/quicktime", ".m4v": "video/x-m4v",
}

// KindOf classifies a path by extension.
func KindOf(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch {
	case ImageExtensions[ext]:
		return KindImage
	case DocumentExtensions[ext]:
		return KindDocument
	case VideoExtensions[ext]:
		return KindVideo
	default:
		return KindOther
	}
}

// MimeType returns the MIME type for a path's extension.
func MimeType(path string) string {
	if m, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return m
	}
	return "application/octet-stream"
}
