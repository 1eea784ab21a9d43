package media

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"products/oak.jpg", "products/oak.jpg"},
		{"/products/oak.jpg", "products/oak.jpg"},
		{"assets/products/oak.jpg", "products/oak.jpg"},
		{"/assets/products/oak.jpg", "products/oak.jpg"},
		{"products/../hero/a.png", "hero/a.png"},
		{"../../etc/passwd", "etc/passwd"},
		{`products\oak.jpg`, "products/oak.jpg"},
		{"", ""},
		{"/", ""},
	}

	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestStoreResolveAndRel(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	full, err := s.Resolve("/assets/products/oak.jpg")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if want := filepath.Join(s.Root(), "products", "oak.jpg"); full != want {
		t.Errorf("Resolve() = %q, want %q", full, want)
	}

	rel, ok := s.Rel(full)
	if !ok || rel != "products/oak.jpg" {
		t.Errorf("Rel() = %q, %v", rel, ok)
	}

	if _, ok := s.Rel(filepath.Dir(s.Root())); ok {
		t.Error("Rel() accepted a path outside the root")
	}

	if _, err := s.Resolve(""); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("Resolve(empty) error = %v, want ErrInvalidPath", err)
	}
}

func TestStoreReadAndOpen(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	if err := os.MkdirAll(filepath.Join(root, "certificates"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "certificates", "ce.pdf"), []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := s.ReadFile("certificates/ce.pdf")
	if err != nil || string(data) != "%PDF-1.4" {
		t.Errorf("ReadFile() = %q, %v", data, err)
	}

	f, info, err := s.Open("certificates/ce.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer f.Close()
	body, _ := io.ReadAll(f)
	if info.Size() != int64(len(body)) {
		t.Errorf("info.Size() = %d, read %d", info.Size(), len(body))
	}

	if _, err := s.ReadFile("certificates/missing.pdf"); !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadFile(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := s.Stat("certificates"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Stat(directory) error = %v, want ErrNotFound", err)
	}
}

func TestStoreProbe(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)
	writeTestImage(t, root, "products/oak.png", 64, 32)

	info, err := s.Probe("products/oak.png")
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Width != 64 || info.Height != 32 || info.Format != "png" || info.Bytes <= 0 {
		t.Errorf("Probe() = %+v", info)
	}

	if err := os.WriteFile(filepath.Join(root, "bad.jpg"), []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Probe("bad.jpg"); !errors.Is(err, ErrDecode) {
		t.Errorf("Probe(bad) error = %v, want ErrDecode", err)
	}
}
