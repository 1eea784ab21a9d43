package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"time"

	"github.com/disintegration/imaging"

	"spc-catalog/internal/logging"
	"spc-catalog/internal/metrics"
)

// Generator turns asset images into resized, recompressed thumbnails.
type Generator struct {
	store     *Store
	useVips   func() bool
	maxPixels int
}

// NewGenerator creates a generator that reads sources from store.
func NewGenerator(store *Store) *Generator {
	return &Generator{
		store:     store,
		useVips:   IsVipsAvailable,
		maxPixels: MaxImagePixels,
	}
}

// Store returns the asset store the generator reads from.
func (g *Generator) Store() *Store {
	return g.store
}

// Generate produces the thumbnail for req. It fails with ErrNotFound when
// the source cannot be loaded, ErrDecode when it is not an image and
// ErrInvalidOptions for out-of-range options.
func (g *Generator) Generate(ctx context.Context, req Request) (thumb *Thumbnail, err error) {
	start := time.Now()
	format := req.Format

	defer func() {
		status := "success"
		switch {
		case errors.Is(err, ErrNotFound):
			status = "not_found"
		case errors.Is(err, ErrDecode):
			status = "decode_error"
		case err != nil:
			status = "error"
		}
		if thumb != nil {
			format = thumb.Format
		}
		metrics.ThumbnailGenerationsTotal.WithLabelValues(string(format), status).Inc()
		metrics.ThumbnailGenerationDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	phase := time.Now()
	data, err := g.store.ReadFile(req.Source)
	if err != nil {
		return nil, err
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues("load").Observe(time.Since(phase).Seconds())

	cfg, srcFormat, err := decodeConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, req.Source, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src := ImageDimensions{Width: cfg.Width, Height: cfg.Height}
	target := FitDimensions(src.Width, src.Height, req.Size)

	phase = time.Now()
	img, err := g.decode(data, src, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", req.Source, err)
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues("decode").Observe(time.Since(phase).Seconds())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// EXIF orientation may have swapped the axes
	b := img.Bounds()
	target = FitDimensions(b.Dx(), b.Dy(), req.Size)

	phase = time.Now()
	img = lanczos(img, target)
	metrics.ThumbnailGenerationDuration.WithLabelValues("resize").Observe(time.Since(phase).Seconds())

	out := resolveFormat(req.Format, srcFormat)

	phase = time.Now()
	encoded, err := encode(img, out, req.Quality)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", req.Source, err)
	}
	metrics.ThumbnailGenerationDuration.WithLabelValues("encode").Observe(time.Since(phase).Seconds())

	logging.Debug("Thumbnail generated: %s %dx%d -> %dx%d %s q=%d (%d bytes) in %v",
		req.Source, src.Width, src.Height, target.Width, target.Height, out, req.Quality,
		len(encoded), time.Since(start))

	return &Thumbnail{
		Source:       req.Source,
		Data:         encoded,
		Format:       out,
		Width:        target.Width,
		Height:       target.Height,
		SourceWidth:  src.Width,
		SourceHeight: src.Height,
		Generated:    time.Now(),
	}, nil
}

// decode returns the source image, already shrunk to twice the target when
// the source is far larger than the target.
func (g *Generator) decode(data []byte, src, target ImageDimensions) (image.Image, error) {
	if !NeedsIntermediate(src, target) {
		if src.Width*src.Height > g.maxPixels {
			return nil, fmt.Errorf("%w: %dx%d exceeds pixel limit", ErrDecode, src.Width, src.Height)
		}
		return decodeImage(data)
	}

	mid := ImageDimensions{Width: target.Width * 2, Height: target.Height * 2}

	if g.useVips() {
		img, err := shrinkWithVips(data, mid)
		if err == nil {
			metrics.ThumbnailIntermediatePasses.WithLabelValues("vips").Inc()
			return img, nil
		}
		logging.Debug("vips intermediate pass failed, using pure Go: %v", err)
	}

	if src.Width*src.Height > g.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds pixel limit without libvips", ErrDecode, src.Width, src.Height)
	}

	img, err := decodeImage(data)
	if err != nil {
		return nil, err
	}

	// DecodeConfig ignores EXIF orientation; rotations by 90 degrees swap the axes
	if b := img.Bounds(); src.Width != src.Height && b.Dx() == src.Height && b.Dy() == src.Width {
		mid.Width, mid.Height = mid.Height, mid.Width
	}

	metrics.ThumbnailIntermediatePasses.WithLabelValues("resize").Inc()
	return downsample(img, mid), nil
}

// resolveFormat picks the output encoding for FormatAuto.
func resolveFormat(requested Format, srcFormat string) Format {
	if requested != FormatAuto {
		return requested
	}
	if srcFormat == "png" || srcFormat == "gif" {
		return FormatPNG
	}
	return FormatJPEG
}

func encode(img image.Image, format Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch format {
	case FormatPNG:
		level := png.DefaultCompression
		if quality < 50 {
			level = png.BestCompression
		}
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(level))
	default:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality))
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
