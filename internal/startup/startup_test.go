package startup

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/mux"

	"spc-catalog/internal/logging"
)

func TestGetBuildInfo(t *testing.T) {
	info := GetBuildInfo()

	if info.Version == "" || info.GoVersion == "" || info.OS == "" || info.Arch == "" {
		t.Errorf("GetBuildInfo() has empty fields: %+v", info)
	}
	if info.GoVersion != GoVersion {
		t.Errorf("GoVersion = %s, want %s", info.GoVersion, GoVersion)
	}
}

// =============================================================================
// Config
// =============================================================================

func testEnv(t *testing.T, extra map[string]string) env.Options {
	t.Helper()
	root := t.TempDir()
	vars := map[string]string{
		"ASSETS_DIR":   filepath.Join(root, "assets"),
		"DATABASE_DIR": filepath.Join(root, "db"),
	}
	for k, v := range extra {
		vars[k] = v
	}
	return env.Options{Environment: vars}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(testEnv(t, nil))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Port != "8080" || cfg.MetricsPort != "9090" || !cfg.MetricsEnabled {
		t.Errorf("listener defaults = %s/%s/%v", cfg.Port, cfg.MetricsPort, cfg.MetricsEnabled)
	}
	if cfg.IndexInterval != 30*time.Minute {
		t.Errorf("IndexInterval = %v, want 30m", cfg.IndexInterval)
	}
	if cfg.ThumbCacheCapacity != 500 || cfg.ThumbCacheMaxAge != 30*time.Minute {
		t.Errorf("cache defaults = %d/%v", cfg.ThumbCacheCapacity, cfg.ThumbCacheMaxAge)
	}
	if cfg.ThumbCacheBudget != 256<<20 {
		t.Errorf("ThumbCacheBudget = %d, want %d", cfg.ThumbCacheBudget, 256<<20)
	}
	if diff := cmp.Diff([]int{300}, cfg.ThumbWarmSizes); diff != "" {
		t.Errorf("ThumbWarmSizes mismatch (-want +got):\n%s", diff)
	}
	if cfg.DatabasePath != filepath.Join(cfg.DatabaseDir, "catalog.db") {
		t.Errorf("DatabasePath = %s", cfg.DatabasePath)
	}
	if info, err := os.Stat(cfg.AssetsDir); err != nil || !info.IsDir() {
		t.Errorf("assets dir not created: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(testEnv(t, map[string]string{
		"PORT":                  "9000",
		"INDEX_INTERVAL":        "0s",
		"THUMB_CACHE_CAPACITY":  "0",
		"THUMB_CACHE_MAX_AGE":   "5m",
		"THUMB_CACHE_MAX_BYTES": "64 MB",
		"THUMB_ITEM_DELAY":      "25ms",
		"THUMB_WARM_SIZES":      "300,8,600,4096",
		"METRICS_ENABLED":       "false",
		"FALLBACK_CATALOG":      "/etc/catalog.yaml",
	}))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Port != "9000" || cfg.MetricsEnabled {
		t.Errorf("Port/MetricsEnabled = %s/%v", cfg.Port, cfg.MetricsEnabled)
	}
	if cfg.IndexInterval != 0 {
		t.Errorf("IndexInterval = %v, want 0", cfg.IndexInterval)
	}
	if cfg.ThumbCacheCapacity != 500 {
		t.Errorf("invalid capacity not replaced: %d", cfg.ThumbCacheCapacity)
	}
	if cfg.ThumbCacheMaxAge != 5*time.Minute || cfg.ThumbItemDelay != 25*time.Millisecond {
		t.Errorf("durations = %v/%v", cfg.ThumbCacheMaxAge, cfg.ThumbItemDelay)
	}
	if cfg.ThumbCacheBudget != 64_000_000 {
		t.Errorf("ThumbCacheBudget = %d, want 64000000", cfg.ThumbCacheBudget)
	}
	if diff := cmp.Diff([]int{300, 600}, cfg.ThumbWarmSizes); diff != "" {
		t.Errorf("ThumbWarmSizes mismatch (-want +got):\n%s", diff)
	}
	if cfg.FallbackCatalog != "/etc/catalog.yaml" {
		t.Errorf("FallbackCatalog = %q", cfg.FallbackCatalog)
	}
}

func TestLoadConfigInvalidBudgetDisables(t *testing.T) {
	cfg, err := loadConfig(testEnv(t, map[string]string{"THUMB_CACHE_MAX_BYTES": "lots"}))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.ThumbCacheBudget != 0 {
		t.Errorf("ThumbCacheBudget = %d, want 0", cfg.ThumbCacheBudget)
	}
}

func TestLoadConfigParseError(t *testing.T) {
	if _, err := loadConfig(testEnv(t, map[string]string{"INDEX_INTERVAL": "soon"})); err == nil {
		t.Error("expected error for invalid duration")
	}
}

func TestLoadConfigDatabaseDirIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	opts := testEnv(t, nil)
	opts.Environment["DATABASE_DIR"] = file

	if _, err := loadConfig(opts); err == nil {
		t.Error("expected error when DATABASE_DIR is a file")
	}
}

// =============================================================================
// Routes
// =============================================================================

func TestGetRoutes(t *testing.T) {
	noop := func(_ http.ResponseWriter, _ *http.Request) {}
	r := mux.NewRouter()
	r.HandleFunc("/health", noop).Methods(http.MethodGet, http.MethodHead)
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/products/{slug}", noop).Methods(http.MethodGet).Name("product")
	api.HandleFunc("/favorites", noop)

	routes, err := GetRoutes(r)
	if err != nil {
		t.Fatalf("GetRoutes failed: %v", err)
	}

	got := map[string]bool{}
	for _, rt := range routes {
		got[rt.Method+" "+rt.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"HEAD /health",
		"GET /api/products/{slug}",
		"* /api/favorites",
	} {
		if !got[want] {
			t.Errorf("route %q missing from %v", want, got)
		}
	}
}

func TestGetRouteGroup(t *testing.T) {
	tests := []struct {
		path, want string
	}{
		{"/api/products/{slug}", "api/products"},
		{"/api/collections", "api/collections"},
		{"/health", "health"},
		{"/", ""},
	}
	for _, tt := range tests {
		if got := getRouteGroup(tt.path); got != tt.want {
			t.Errorf("getRouteGroup(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestLogSectionPrintsTitleVerbatim(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(os.Stderr) })

	logSection("CACHE 100% WARM")

	out := buf.String()
	if !strings.Contains(out, "CACHE 100% WARM") {
		t.Errorf("title missing from output:\n%s", out)
	}
	if strings.Contains(out, "%!") {
		t.Errorf("title was treated as a format string:\n%s", out)
	}
}
