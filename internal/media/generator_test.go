package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// writeTestImage writes a w x h gradient image under dir/name.
func writeTestImage(t *testing.T, dir, name string, w, h int) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	full := filepath.Join(dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	var err error
	switch filepath.Ext(name) {
	case ".png":
		err = png.Encode(&buf, img)
	default:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	if err := os.WriteFile(full, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func newTestGenerator(t *testing.T) (*Generator, string) {
	t.Helper()
	root := t.TempDir()
	gen := NewGenerator(NewStore(root))
	gen.useVips = func() bool { return false }
	return gen, root
}

func request(src string, size int, format Format) Request {
	return Request{Source: src, Options: Options{Size: size, Quality: 80, Format: format}}
}

// =============================================================================
// Geometry
// =============================================================================

func TestFitDimensions(t *testing.T) {
	tests := []struct {
		name         string
		w, h, box    int
		wantW, wantH int
	}{
		{"landscape", 1200, 800, 300, 300, 200},
		{"portrait", 800, 1200, 300, 200, 300},
		{"square", 1000, 1000, 150, 150, 150},
		{"never upscales", 100, 50, 300, 100, 50},
		{"exact fit", 300, 200, 300, 300, 200},
		{"extreme strip", 10000, 10, 300, 300, 1},
		{"invalid", 0, 10, 300, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitDimensions(tt.w, tt.h, tt.box)
			if got.Width != tt.wantW || got.Height != tt.wantH {
				t.Errorf("FitDimensions(%d, %d, %d) = %dx%d, want %dx%d",
					tt.w, tt.h, tt.box, got.Width, got.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestNeedsIntermediate(t *testing.T) {
	target := ImageDimensions{Width: 100, Height: 50}

	if NeedsIntermediate(ImageDimensions{Width: 800, Height: 400}, target) {
		t.Error("exactly 8x should not need an intermediate pass")
	}
	if !NeedsIntermediate(ImageDimensions{Width: 801, Height: 400}, target) {
		t.Error("more than 8x should need an intermediate pass")
	}
}

// =============================================================================
// Generation
// =============================================================================

func TestGeneratePreservesAspectRatio(t *testing.T) {
	gen, root := newTestGenerator(t)

	sizes := []struct{ w, h int }{{640, 480}, {480, 640}, {1000, 250}, {333, 777}}
	for _, s := range sizes {
		writeTestImage(t, root, "products/panel.jpg", s.w, s.h)

		th, err := gen.Generate(context.Background(), request("products/panel.jpg", 120, FormatJPEG))
		if err != nil {
			t.Fatalf("Generate(%dx%d) error = %v", s.w, s.h, err)
		}

		if max(th.Width, th.Height) != 120 {
			t.Errorf("%dx%d -> %dx%d, longest side should be 120", s.w, s.h, th.Width, th.Height)
		}

		srcRatio := float64(s.w) / float64(s.h)
		gotRatio := float64(th.Width) / float64(th.Height)
		// one pixel of rounding on the short side
		tolerance := srcRatio / float64(min(th.Width, th.Height))
		if math.Abs(srcRatio-gotRatio) > tolerance {
			t.Errorf("%dx%d -> %dx%d: ratio %.3f vs %.3f", s.w, s.h, th.Width, th.Height, srcRatio, gotRatio)
		}

		decoded, _, err := image.Decode(bytes.NewReader(th.Data))
		if err != nil {
			t.Fatalf("output does not decode: %v", err)
		}
		if decoded.Bounds().Dx() != th.Width || decoded.Bounds().Dy() != th.Height {
			t.Errorf("encoded bounds %v disagree with %dx%d", decoded.Bounds(), th.Width, th.Height)
		}
	}
}

func TestGenerateNeverUpscales(t *testing.T) {
	gen, root := newTestGenerator(t)
	writeTestImage(t, root, "small.png", 40, 30)

	th, err := gen.Generate(context.Background(), request("small.png", 300, FormatAuto))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if th.Width != 40 || th.Height != 30 {
		t.Errorf("got %dx%d, want 40x30", th.Width, th.Height)
	}
	if th.Format != FormatPNG {
		t.Errorf("auto format for png source = %q, want png", th.Format)
	}
}

func TestGenerateIntermediatePass(t *testing.T) {
	gen, root := newTestGenerator(t)
	writeTestImage(t, root, "hero/wide.jpg", 2000, 1000)

	th, err := gen.Generate(context.Background(), request("hero/wide.jpg", 100, FormatAuto))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if th.Width != 100 || th.Height != 50 {
		t.Errorf("got %dx%d, want 100x50", th.Width, th.Height)
	}
	if th.Format != FormatJPEG {
		t.Errorf("auto format for jpeg source = %q, want jpeg", th.Format)
	}
	if th.SourceWidth != 2000 || th.SourceHeight != 1000 {
		t.Errorf("source dims = %dx%d", th.SourceWidth, th.SourceHeight)
	}
}

// exifRotated90 is an APP1 segment carrying orientation 6: the stored
// pixels are displayed rotated 90 degrees clockwise.
var exifRotated90 = []byte{
	0xFF, 0xE1, 0x00, 0x22,
	'E', 'x', 'i', 'f', 0x00, 0x00,
	'M', 'M', 0x00, 0x2A, 0x00, 0x00, 0x00, 0x08,
	0x00, 0x01,
	0x01, 0x12, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01, 0x00, 0x06, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}

// writeRotatedJPEG stores a w x h JPEG tagged with orientation 6, so it
// displays as h x w.
func writeRotatedJPEG(t *testing.T, dir, name string, w, h int) {
	t.Helper()

	writeTestImage(t, dir, name, w, h)
	full := filepath.Join(dir, filepath.FromSlash(name))
	data, err := os.ReadFile(full)
	if err != nil {
		t.Fatal(err)
	}

	// APP1 goes right after the SOI marker
	tagged := make([]byte, 0, len(data)+len(exifRotated90))
	tagged = append(tagged, data[:2]...)
	tagged = append(tagged, exifRotated90...)
	tagged = append(tagged, data[2:]...)
	if err := os.WriteFile(full, tagged, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestGenerateHonorsEXIFOrientation(t *testing.T) {
	gen, root := newTestGenerator(t)
	writeRotatedJPEG(t, root, "gallery/phone.jpg", 1000, 100)

	tests := []struct {
		name         string
		size         int
		wantW, wantH int
	}{
		{"direct resize", 500, 50, 500},
		{"intermediate pass", 50, 5, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th, err := gen.Generate(context.Background(), request("gallery/phone.jpg", tt.size, FormatJPEG))
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if th.Width != tt.wantW || th.Height != tt.wantH {
				t.Errorf("size %d: got %dx%d, want %dx%d", tt.size, th.Width, th.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestGenerateQualityAffectsSize(t *testing.T) {
	gen, root := newTestGenerator(t)
	writeTestImage(t, root, "q.jpg", 400, 400)

	low := request("q.jpg", 300, FormatJPEG)
	low.Quality = 10
	high := request("q.jpg", 300, FormatJPEG)
	high.Quality = 95

	lo, err := gen.Generate(context.Background(), low)
	if err != nil {
		t.Fatal(err)
	}
	hi, err := gen.Generate(context.Background(), high)
	if err != nil {
		t.Fatal(err)
	}
	if lo.Size() >= hi.Size() {
		t.Errorf("quality 10 (%d bytes) should be smaller than quality 95 (%d bytes)", lo.Size(), hi.Size())
	}
}

func TestGenerateErrors(t *testing.T) {
	gen, root := newTestGenerator(t)

	if err := os.WriteFile(filepath.Join(root, "broken.jpg"), []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"missing source", request("nope.jpg", 100, FormatJPEG), ErrNotFound},
		{"undecodable source", request("broken.jpg", 100, FormatJPEG), ErrDecode},
		{"escaping path", request("../../etc/passwd", 100, FormatJPEG), ErrNotFound},
		{"bad options", request("broken.jpg", 4, FormatJPEG), ErrInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gen.Generate(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Errorf("Generate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenerateHonorsCancelledContext(t *testing.T) {
	gen, root := newTestGenerator(t)
	writeTestImage(t, root, "c.jpg", 50, 50)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := gen.Generate(ctx, request("c.jpg", 32, FormatJPEG)); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want Canceled", err)
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		requested Format
		src       string
		want      Format
	}{
		{FormatAuto, "png", FormatPNG},
		{FormatAuto, "gif", FormatPNG},
		{FormatAuto, "jpeg", FormatJPEG},
		{FormatAuto, "webp", FormatJPEG},
		{FormatJPEG, "png", FormatJPEG},
		{FormatPNG, "jpeg", FormatPNG},
	}

	for _, tt := range tests {
		if got := resolveFormat(tt.requested, tt.src); got != tt.want {
			t.Errorf("resolveFormat(%q, %q) = %q, want %q", tt.requested, tt.src, got, tt.want)
		}
	}
}
