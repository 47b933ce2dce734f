package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/flashfile/internal/infrastructure/config"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/logging"
	"github.com/GriffinCanCode/flashfile/internal/volume/chaos"
	"github.com/GriffinCanCode/flashfile/internal/volume/hostfs"
	"github.com/GriffinCanCode/flashfile/internal/volume/memfs"
)

func newTestServer(t *testing.T, cfg *config.Config, opts ...Option) *Server {
	t.Helper()
	opts = append(opts, WithLogger(logging.NewNop()))
	srv, err := NewServer(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Stack.Close() })
	return srv
}

func serve(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestNewVolume(t *testing.T) {
	cfg := config.Default().Volume

	driver, err := NewVolume(cfg)
	require.NoError(t, err)
	assert.IsType(t, &memfs.FS{}, driver)

	cfg.Backend = config.BackendHost
	cfg.Dir = t.TempDir()
	driver, err = NewVolume(cfg)
	require.NoError(t, err)
	assert.IsType(t, &hostfs.FS{}, driver)

	cfg.Backend = "tape"
	_, err = NewVolume(cfg)
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestServerRoutes(t *testing.T) {
	srv := newTestServer(t, config.Default())

	w := serve(srv, http.MethodPost, "/api/v1/scripts", `{"script": "file.open('boot', 'w'); file.writeline('ok'); file.close(); file.exists('boot')"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"value":true`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = serve(srv, http.MethodGet, "/api/v1/files", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"boot":3`)

	w = serve(srv, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(srv, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "flashfile_file_operations_total")
	assert.Contains(t, body, "flashfile_script_runs_total")
	assert.Contains(t, body, `path="/api/v1/scripts"`)
}

func TestServerCompression(t *testing.T) {
	srv := newTestServer(t, config.Default())
	serve(srv, http.MethodPost, "/api/v1/scripts", `{"script": "file.open('big.txt', 'w'); file.write('flash '.repeat(400)); file.close()"}`)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/files/big.txt", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("flash ", 400), string(body))

	cfg := config.Default()
	cfg.Server.Compress = false
	srv = newTestServer(t, cfg)
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestServerRateLimit(t *testing.T) {
	cfg := config.Default()
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	srv := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, serve(srv, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(srv, http.MethodGet, "/health", "").Code)
}

func TestServerHostBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Volume.Backend = config.BackendHost
	cfg.Volume.Dir = dir
	srv := newTestServer(t, cfg)

	w := serve(srv, http.MethodPost, "/api/v1/scripts", `{"script": "file.open('init.js', 'w'); file.write('x = 1'); file.close()"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data, err := os.ReadFile(filepath.Join(dir, "init.js"))
	require.NoError(t, err)
	assert.Equal(t, "x = 1", string(data))
}

func TestStackWithChaos(t *testing.T) {
	stack, err := NewStack(config.Default(),
		WithLogger(logging.NewNop()),
		WithChaos(7, chaos.Config{OpenFailRate: 1}))
	require.NoError(t, err)
	defer stack.Close()

	require.NotNil(t, stack.Chaos)
	err = stack.Files.Open("a", "w")
	assert.ErrorIs(t, err, chaos.ErrInjected)
	assert.Equal(t, int64(1), stack.Chaos.Stats().Total())
}
