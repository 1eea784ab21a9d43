package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"spc-catalog/internal/database"
)

// writeTree creates files (relative path → content) under a temp root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("MkdirAll failed: %v", err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
	}
	return root
}

func testConfig() ParallelWalkerConfig {
	return ParallelWalkerConfig{NumWorkers: 3, BatchSize: 2, ChannelBuffer: 4, SkipHidden: true}
}

func TestParallelWalkerFindsAssets(t *testing.T) {
	root := writeTree(t, map[string]string{
		"products/oak.jpg":         "jpg",
		"products/nested/grey.png": "png",
		"certificates/fire.pdf":    "pdf",
		"videos/install.mp4":       "mp4",
		"notes.txt":                "txt",
		".hidden/secret.jpg":       "x",
		"products/.DS_Store":       "x",
	})

	walker := NewParallelWalker(context.Background(), root, testConfig())
	assets, err := walker.Walk()
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	got := map[string]database.AssetKind{}
	for _, a := range assets {
		got[a.Path] = a.Kind
		if a.FileHash == "" {
			t.Errorf("asset %s has no fingerprint", a.Path)
		}
	}
	want := map[string]database.AssetKind{
		"products/oak.jpg":         database.AssetKindImage,
		"products/nested/grey.png": database.AssetKindImage,
		"certificates/fire.pdf":    database.AssetKindDocument,
		"videos/install.mp4":       database.AssetKindVideo,
		"notes.txt":                database.AssetKindOther,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("assets mismatch (-want +got):\n%s", diff)
	}

	files, errs := walker.Stats()
	if files != 5 || errs != 0 {
		t.Errorf("Stats() = %d files, %d errors; want 5, 0", files, errs)
	}
}

func TestParallelWalkerMissingRoot(t *testing.T) {
	walker := NewParallelWalker(context.Background(), filepath.Join(t.TempDir(), "nope"), testConfig())
	if _, err := walker.Walk(); err == nil {
		t.Error("expected error for missing root")
	}
}

func TestParallelWalkerCancelled(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		files["dir/"+name+".jpg"] = name
	}
	root := writeTree(t, files)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	walker := NewParallelWalker(ctx, root, testConfig())
	if _, err := walker.Walk(); err == nil {
		t.Error("expected error from cancelled walk")
	}
}

func TestFingerprint(t *testing.T) {
	mod := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	base := Fingerprint("a.jpg", 10, mod)

	variants := []string{
		Fingerprint("b.jpg", 10, mod),
		Fingerprint("a.jpg", 11, mod),
		Fingerprint("a.jpg", 10, mod.Add(time.Millisecond)),
	}
	for i, v := range variants {
		if v == base {
			t.Errorf("variant %d has the same fingerprint as base", i)
		}
	}
	if Fingerprint("a.jpg", 10, mod) != base {
		t.Error("Fingerprint is not deterministic")
	}
}

func TestDefaultParallelWalkerConfig(t *testing.T) {
	cfg := DefaultParallelWalkerConfig()
	if cfg.NumWorkers < 1 || cfg.BatchSize < 1 || !cfg.SkipHidden {
		t.Errorf("DefaultParallelWalkerConfig() = %+v", cfg)
	}
}

func sortedPaths(assets []database.Asset) []string {
	out := make([]string, 0, len(assets))
	for _, a := range assets {
		out = append(out, a.Path)
	}
	sort.Strings(out)
	return out
}
