package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordFileOp(t *testing.T) {
	m := NewMetrics()

	m.RecordFileOp("read", "ok", time.Millisecond)
	m.RecordFileOp("read", "io", time.Millisecond)
	m.AddBytesRead(12)
	m.AddBytesWritten(5)
	m.SetHandleOpen(true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.FileOps.WithLabelValues("read", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FileOps.WithLabelValues("read", "io")))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.BytesRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpenHandles))

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.FileOps)
	assert.Equal(t, int64(1), snap.FileErrors)
	assert.Equal(t, int64(5), snap.BytesWritten)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordFileOp("open", "ok", time.Millisecond)
		m.AddBytesRead(1)
		m.SetHandleOpen(false)
		m.RecordScriptRun("ok", time.Second)
		NewTimer(m, "close").Stop("ok")
	})
}

func TestIndependentRegistries(t *testing.T) {
	// Each collector owns its registry, so constructing twice must not panic.
	var a, b *Metrics
	assert.NotPanics(t, func() {
		a = NewMetrics()
		b = NewMetrics()
	})
	assert.NotSame(t, a.Registry(), b.Registry())

	a.RecordFileOp("open", "ok", time.Millisecond)
	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			if f.GetName() == "flashfile_file_operations_total" {
				assert.Zero(t, metric.GetCounter().GetValue(), "counts must not leak across registries")
			}
		}
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	router := gin.New()
	router.Use(Middleware(m))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	router.GET("/metrics", gin.WrapH(m.Handler()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/ping", "200")))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "flashfile_http_requests_total"))
}
