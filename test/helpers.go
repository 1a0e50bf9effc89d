package test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/droplog/internal/handler"
	"github.com/aryan0dhankhar/droplog/internal/observability/metrics"
	"github.com/aryan0dhankhar/droplog/internal/repository"
	"github.com/aryan0dhankhar/droplog/internal/security/capability"
	"github.com/aryan0dhankhar/droplog/internal/security/middleware"
	"github.com/aryan0dhankhar/droplog/internal/security/ratelimit"
	"github.com/aryan0dhankhar/droplog/internal/service"
)

// TestServerHelper runs the full middleware chain over a SQLite store in a temp dir
type TestServerHelper struct {
	Server  *httptest.Server
	Logger  *slog.Logger
	Limiter *ratelimit.Limiter
}

func NewTestServer(t *testing.T, ratePerMinute int) *TestServerHelper {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := repository.NewSQLiteTenantStore(filepath.Join(t.TempDir(), "dbs"), log)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	guarded := repository.NewGuardedStore(store, nil, log)
	codec, err := capability.New(capability.SchemeSealed, "integration-secret")
	if err != nil {
		t.Fatalf("codec: %v", err)
	}

	mux := http.NewServeMux()
	handler.Register(mux,
		handler.NewNamespaceHandler(service.NewNamespaceService(guarded, codec, nil, log), log, 1<<20),
		handler.NewHealthHandler(map[string]handler.Pinger{"store": guarded}, log),
		handler.NewPageHandler("", log),
	)

	limiter := ratelimit.NewLimiter(ratePerMinute, time.Minute)
	root := otelhttp.NewHandler(
		middleware.RequestID(log)(
			cors.New(cors.Options{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
				AllowedHeaders: []string{"Content-Type", "Accept", "Authorization"},
			}).Handler(
				middleware.RateLimitMiddleware(limiter, log)(
					metrics.HTTPMetricsMiddleware(mux),
				),
			),
		),
		"droplog-test",
	)

	h := &TestServerHelper{
		Server:  httptest.NewServer(root),
		Logger:  log,
		Limiter: limiter,
	}
	t.Cleanup(h.Close)
	return h
}

func (h *TestServerHelper) Close() {
	h.Server.Close()
	h.Limiter.Stop()
}

func (h *TestServerHelper) URL() string {
	return h.Server.URL
}

// Do sends a request and returns the response with its body read
func (h *TestServerHelper) Do(t *testing.T, method, path, token, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, h.URL()+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp, data
}

// DecodeJSON unmarshals data into a T or fails the test
func DecodeJSON[T any](t *testing.T, data []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return out
}

// AssertStatusCode helper function
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType helper function
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, expected) {
		t.Errorf("Expected Content-Type %s, got %s", expected, ct)
	}
}
