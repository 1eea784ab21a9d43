package media

import (
	"bytes"
	"fmt"
	"image"
	"math"

	// Source decoders; imaging registers BMP and TIFF itself
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

const (
	// IntermediateThreshold is the source/target ratio above which a cheap
	// downsample precedes the final Lanczos pass.
	IntermediateThreshold = 8

	// MaxImagePixels bounds full decodes. Larger sources must take the
	// vips path, which shrinks while decoding.
	MaxImagePixels = 80_000_000
)

// ImageDimensions holds a width and height in pixels.
type ImageDimensions struct {
	Width  int
	Height int
}

// FitDimensions returns the largest size with the source's aspect ratio that
// fits in a box x box square. Sources already inside the box are returned
// unchanged.
func FitDimensions(srcW, srcH, box int) ImageDimensions {
	if srcW <= 0 || srcH <= 0 || box <= 0 {
		return ImageDimensions{}
	}
	if srcW <= box && srcH <= box {
		return ImageDimensions{Width: srcW, Height: srcH}
	}

	scale := math.Min(float64(box)/float64(srcW), float64(box)/float64(srcH))
	w := int(math.Round(float64(srcW) * scale))
	h := int(math.Round(float64(srcH) * scale))

	return ImageDimensions{Width: max(w, 1), Height: max(h, 1)}
}

// NeedsIntermediate reports whether the source is more than
// IntermediateThreshold times larger than the target on either axis.
func NeedsIntermediate(src, target ImageDimensions) bool {
	if target.Width <= 0 || target.Height <= 0 {
		return false
	}
	return src.Width > target.Width*IntermediateThreshold ||
		src.Height > target.Height*IntermediateThreshold
}

// decodeImage fully decodes data, applying EXIF orientation.
func decodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, nil
}

// downsample is the pure-Go intermediate pass. Bilinear is enough here
// since the Lanczos pass that follows sets the final quality.
func downsample(img image.Image, target ImageDimensions) image.Image {
	return resize.Resize(uint(target.Width), uint(target.Height), img, resize.Bilinear)
}

// lanczos is the final resampling pass.
func lanczos(img image.Image, target ImageDimensions) image.Image {
	b := img.Bounds()
	if b.Dx() == target.Width && b.Dy() == target.Height {
		return img
	}
	return imaging.Resize(img, target.Width, target.Height, imaging.Lanczos)
}
