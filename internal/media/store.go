package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"spc-catalog/internal/filesystem"
)

// Store resolves asset paths under a root directory and reads them with NFS
// retry. Paths handed to a Store are slash-separated and relative to the
// root; a leading slash or "assets/" prefix is tolerated.
type Store struct {
	root  string
	retry filesystem.RetryConfig
}

// NewStore creates a store rooted at root.
func NewStore(root string) *Store {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	return &Store{root: abs, retry: filesystem.DefaultRetryConfig()}
}

// Root returns the absolute asset root.
func (s *Store) Root() string {
	return s.root
}

// Clean normalizes an asset path to its canonical relative form.
func Clean(rel string) string {
	rel = strings.ReplaceAll(rel, "\\", "/")
	rel = path.Clean("/" + rel)
	rel = strings.TrimPrefix(rel, "/")
	rel = strings.TrimPrefix(rel, "assets/")
	if rel == "." {
		return ""
	}
	return rel
}

// Resolve maps a relative asset path to an absolute path inside the root.
func (s *Store) Resolve(rel string) (string, error) {
	clean := Clean(rel)
	if clean == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}

	full := filepath.Join(s.root, filepath.FromSlash(clean))
	if !isSubPath(s.root, full) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, rel)
	}
	return full, nil
}

// Rel maps an absolute path back to its relative asset path. It reports
// false for paths outside the root.
func (s *Store) Rel(abs string) (string, bool) {
	r, err := filepath.Rel(s.root, abs)
	if err != nil || r == "." || strings.HasPrefix(r, "..") {
		return "", false
	}
	return filepath.ToSlash(r), true
}

func isSubPath(root, p string) bool {
	r, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return r != ".." && !strings.HasPrefix(r, ".."+string(filepath.Separator))
}

func notFound(rel string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrNotFound, rel)
	}
	return fmt.Errorf("%w: %s: %v", ErrNotFound, rel, err)
}

// Stat returns file info for a regular file.
func (s *Store) Stat(rel string) (os.FileInfo, error) {
	full, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}

	info, err := filesystem.StatWithRetry(full, s.retry)
	if err != nil {
		return nil, notFound(rel, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrNotFound, rel)
	}
	return info, nil
}

// ReadFile reads a whole asset.
func (s *Store) ReadFile(rel string) ([]byte, error) {
	full, err := s.Resolve(rel)
	if err != nil {
		return nil, err
	}

	data, err := filesystem.ReadFileWithRetry(full, s.retry)
	if err != nil {
		return nil, notFound(rel, err)
	}
	return data, nil
}

// Open opens an asset for streaming. The caller closes the file.
func (s *Store) Open(rel string) (*os.File, os.FileInfo, error) {
	info, err := s.Stat(rel)
	if err != nil {
		return nil, nil, err
	}

	full, _ := s.Resolve(rel)
	f, err := filesystem.OpenWithRetry(full, s.retry)
	if err != nil {
		return nil, nil, notFound(rel, err)
	}
	return f, info, nil
}

// SourceInfo describes a source image without decoding its pixels.
type SourceInfo struct {
	Bytes  int64
	Width  int
	Height int
	Format string
}

// Probe reads an asset's byte size and image header.
func (s *Store) Probe(rel string) (SourceInfo, error) {
	info, err := s.Stat(rel)
	if err != nil {
		return SourceInfo{}, err
	}

	full, _ := s.Resolve(rel)
	f, err := filesystem.OpenWithRetry(full, s.retry)
	if err != nil {
		return SourceInfo{}, notFound(rel, err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return SourceInfo{Bytes: info.Size()}, fmt.Errorf("%w: %s: %v", ErrDecode, rel, err)
	}

	return SourceInfo{
		Bytes:  info.Size(),
		Width:  cfg.Width,
		Height: cfg.Height,
		Format: format,
	}, nil
}

// decodeConfig reads dimensions and format from an in-memory image.
func decodeConfig(data []byte) (image.Config, string, error) {
	return image.DecodeConfig(bytes.NewReader(data))
}
