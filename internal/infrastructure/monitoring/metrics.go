package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// File metrics
	FileOps        *prometheus.CounterVec
	FileOpDuration *prometheus.HistogramVec
	BytesRead      prometheus.Counter
	BytesWritten   prometheus.Counter
	OpenHandles    prometheus.Gauge

	// Script metrics
	ScriptRuns     *prometheus.CounterVec
	ScriptDuration prometheus.Histogram

	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot Snapshot
	mu       sync.RWMutex
}

// Snapshot holds current metric values for the JSON API
type Snapshot struct {
	FileOps      int64   `json:"file_ops"`
	FileErrors   int64   `json:"file_errors"`
	BytesRead    int64   `json:"bytes_read"`
	BytesWritten int64   `json:"bytes_written"`
	ScriptRuns   int64   `json:"script_runs"`
	Requests     int64   `json:"requests"`
	Uptime       float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashfile_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flashfile_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		// File metrics
		FileOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashfile_file_operations_total",
				Help: "Total number of file operations by outcome",
			},
			[]string{"op", "outcome"},
		),
		FileOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "flashfile_file_operation_duration_seconds",
				Help:    "File operation duration in seconds",
				Buckets: []float64{.00001, .0001, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"op"},
		),
		BytesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flashfile_bytes_read_total",
				Help: "Bytes returned to callers by read operations",
			},
		),
		BytesWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "flashfile_bytes_written_total",
				Help: "Bytes accepted by the driver from write operations",
			},
		),
		OpenHandles: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "flashfile_open_handles",
				Help: "Number of open file handles (0 or 1)",
			},
		),

		// Script metrics
		ScriptRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "flashfile_script_runs_total",
				Help: "Total number of script executions by outcome",
			},
			[]string{"outcome"},
		),
		ScriptDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "flashfile_script_duration_seconds",
				Help:    "Script execution duration in seconds",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
			},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "flashfile_uptime_seconds",
			Help: "Process uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry exposes the underlying registry for tests and custom collectors
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.Requests++
	m.mu.Unlock()
}

// RecordFileOp records a file operation and its outcome
func (m *Metrics) RecordFileOp(op, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.FileOps.WithLabelValues(op, outcome).Inc()
	m.FileOpDuration.WithLabelValues(op).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.FileOps++
	if outcome != "ok" {
		m.snapshot.FileErrors++
	}
	m.mu.Unlock()
}

// AddBytesRead adds n to the read counter
func (m *Metrics) AddBytesRead(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesRead.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesRead += int64(n)
	m.mu.Unlock()
}

// AddBytesWritten adds n to the write counter
func (m *Metrics) AddBytesWritten(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.BytesWritten.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesWritten += int64(n)
	m.mu.Unlock()
}

// SetHandleOpen sets the open handle gauge
func (m *Metrics) SetHandleOpen(open bool) {
	if m == nil {
		return
	}
	if open {
		m.OpenHandles.Set(1)
	} else {
		m.OpenHandles.Set(0)
	}
}

// RecordScriptRun records a script execution
func (m *Metrics) RecordScriptRun(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ScriptRuns.WithLabelValues(outcome).Inc()
	m.ScriptDuration.Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.ScriptRuns++
	m.mu.Unlock()
}

// Snapshot returns current values for JSON consumers
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := m.snapshot
	s.Uptime = time.Since(m.startTime).Seconds()
	return s
}
