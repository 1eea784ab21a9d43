package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"spc-catalog/internal/logging"
	"spc-catalog/internal/metrics"
)

// =============================================================================
// Request ID
// =============================================================================

func TestRequestIDGenerated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", http.NoBody))

	if _, err := uuid.Parse(seen); err != nil {
		t.Fatalf("request ID %q is not a UUID: %v", seen, err)
	}
	if got := w.Header().Get(RequestIDHeader); got != seen {
		t.Errorf("response header = %q, want %q", got, seen)
	}
}

func TestRequestIDReusesValidIncoming(t *testing.T) {
	incoming := uuid.NewString()
	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"valid uuid", incoming, true},
		{"garbage", "not-an-id\nforged", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = GetRequestID(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if (seen == tt.header) != tt.reuse {
				t.Errorf("request ID = %q, header %q, reuse want %v", seen, tt.header, tt.reuse)
			}
		})
	}
}

// =============================================================================
// Logging
// =============================================================================

func TestResponseWriterWriteHeaderOnce(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())
	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusInternalServerError)

	if rw.statusCode != http.StatusNotFound {
		t.Errorf("statusCode = %d, want 404", rw.statusCode)
	}

	n, _ := rw.Write([]byte("hello"))
	if n != 5 || rw.bytesWritten != 5 {
		t.Errorf("bytesWritten = %d, want 5", rw.bytesWritten)
	}
}

func TestLoggerSkipRules(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		config  LoggingConfig
		wantLog bool
	}{
		{"api request", "/api/products", DefaultLoggingConfig(), true},
		{"static skipped", "/app.css", LoggingConfig{SkipExtensions: []string{".css"}}, false},
		{"static logged when enabled", "/app.css", LoggingConfig{LogStaticFiles: true, SkipExtensions: []string{".css"}}, true},
		{"health logged", "/health", LoggingConfig{LogHealthChecks: true}, true},
		{"health skipped", "/livez", LoggingConfig{LogHealthChecks: false}, false},
		{"skip path prefix", "/metrics/x", LoggingConfig{SkipPaths: []string{"/metrics"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logging.SetOutput(&buf)
			defer logging.SetOutput(io.Discard)

			h := Logger(tt.config)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("ok"))
			}))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
			logged := strings.Contains(buf.String(), tt.path)
			if logged != tt.wantLog {
				t.Errorf("logged = %v, want %v (output %q)", logged, tt.wantLog, buf.String())
			}
		})
	}
}

func TestLoggerW3CLine(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	defer logging.SetOutput(io.Discard)

	h := RequestID(Logger(DefaultLoggingConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short"))
	})))

	req := httptest.NewRequest(http.MethodGet, "/api/products?color=grey", http.NoBody)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11)")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	line := buf.String()
	for _, want := range []string{
		"203.0.113.7 GET /api/products color=grey 418 5 ",
		w.Header().Get(RequestIDHeader),
		`"Mozilla/5.0 (X11)"`,
	} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %q", line, want)
		}
	}
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a\nb\rc", "a b c"},
		{"nul\x00byte", "nulbyte"},
		{"\x1b[31mred", "[31mred"},
		{"tab\tok", "tab\tok"},
	}
	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded list", map[string]string{"X-Forwarded-For": "1.1.1.1, 2.2.2.2"}, "9.9.9.9:1", "1.1.1.1"},
		{"real ip", map[string]string{"X-Real-IP": "3.3.3.3"}, "9.9.9.9:1", "3.3.3.3"},
		{"remote addr", nil, "4.4.4.4:5678", "4.4.4.4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := getClientIP(req); got != tt.want {
				t.Errorf("getClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

// =============================================================================
// Compression
// =============================================================================

func TestCompressionMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		contentType    string
		acceptEncoding string
		method         string
		wantGzip       bool
	}{
		{"large json", strings.Repeat(`{"slug":"oak"}`, 200), "application/json", "gzip", http.MethodGet, true},
		{"small json", `{"ok":true}`, "application/json", "gzip", http.MethodGet, false},
		{"thumbnail bytes", strings.Repeat("data", 500), "image/jpeg", "gzip", http.MethodGet, false},
		{"client without gzip", strings.Repeat("data", 500), "text/plain", "", http.MethodGet, false},
		{"head request", strings.Repeat("data", 500), "text/plain", "gzip", http.MethodHead, false},
		{"charset parameter", strings.Repeat("text ", 500), "text/plain; charset=utf-8", "gzip, br", http.MethodGet, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				_, _ = w.Write([]byte(tt.body))
			}))

			req := httptest.NewRequest(tt.method, "/", http.NoBody)
			if tt.acceptEncoding != "" {
				req.Header.Set("Accept-Encoding", tt.acceptEncoding)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			gotGzip := w.Header().Get("Content-Encoding") == "gzip"
			if gotGzip != tt.wantGzip {
				t.Fatalf("gzip = %v, want %v", gotGzip, tt.wantGzip)
			}

			body := w.Body.Bytes()
			if gotGzip {
				zr, err := gzip.NewReader(bytes.NewReader(body))
				if err != nil {
					t.Fatalf("gzip.NewReader failed: %v", err)
				}
				body, err = io.ReadAll(zr)
				if err != nil {
					t.Fatalf("reading gzip body failed: %v", err)
				}
			}
			if string(body) != tt.body {
				t.Errorf("body length = %d, want %d", len(body), len(tt.body))
			}
		})
	}
}

func TestCompressionPreservesStatus(t *testing.T) {
	h := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if w.Body.String() != `{"error":"not found"}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestCompressionMultipleWrites(t *testing.T) {
	chunk := strings.Repeat("x", 300)
	h := Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		for i := 0; i < 10; i++ {
			_, _ = w.Write([]byte(chunk))
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip.NewReader failed: %v", err)
	}
	got, _ := io.ReadAll(zr)
	if len(got) != 3000 {
		t.Errorf("decompressed length = %d, want 3000", len(got))
	}
}

// =============================================================================
// Metrics
// =============================================================================

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/thumbnail/products/oak.jpg", "/api/thumbnail/{path}"},
		{"/api/thumbnail-url/products/oak.jpg", "/api/thumbnail-url/{path}"},
		{"/api/products/classic-oak", "/api/products/{slug}"},
		{"/api/products", "/api/products"},
		{"/api/certificates/3/download", "/api/certificates/{id}/download"},
		{"/api/certificates/3", "/api/certificates/{id}"},
		{"/api/favorites", "/api/favorites"},
		{"/health", "/health"},
		{"/", "/"},
		{"/a/b/c/d/e/f", "/a/b/c/d/{path}"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestMetricsMiddlewareRecords(t *testing.T) {
	h := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodPost, "/api/favorites", "201")
	before := testutil.ToFloat64(counter)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/favorites", http.NoBody))

	if got := testutil.ToFloat64(counter) - before; got != 1 {
		t.Errorf("request counter delta = %v, want 1", got)
	}
}

func TestMetricsMiddlewareSkipPaths(t *testing.T) {
	h := Metrics(DefaultMetricsConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	counter := metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/livez", "200")
	before := testutil.ToFloat64(counter)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/livez", http.NoBody))

	if got := testutil.ToFloat64(counter) - before; got != 0 {
		t.Errorf("skipped path recorded %v requests", got)
	}
}

func BenchmarkMiddlewareChain(b *testing.B) {
	logging.SetOutput(io.Discard)
	h := RequestID(Logger(DefaultLoggingConfig())(Metrics(DefaultMetricsConfig())(
		Compression(DefaultCompressionConfig())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(strings.Repeat(`{"k":"v"}`, 200)))
		})))))

	req := httptest.NewRequest(http.MethodGet, "/api/products", http.NoBody)
	req.Header.Set("Accept-Encoding", "gzip")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
}
