package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/flashfile/internal/api/middleware"
	"github.com/GriffinCanCode/flashfile/internal/file"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/flashfile/internal/script"
	"github.com/GriffinCanCode/flashfile/internal/volume"
)

// Version is reported by the root endpoint
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	runtime *script.Runtime
	metrics *monitoring.Metrics
	guard   *resilience.Guard
	logger  *zap.Logger
}

// NewHandlers creates a new handler set
func NewHandlers(runtime *script.Runtime, metrics *monitoring.Metrics, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		runtime: runtime,
		metrics: metrics,
		logger:  logger,
	}
}

// WithGuard rejects volume work while guard is open
func (h *Handlers) WithGuard(guard *resilience.Guard) *Handlers {
	h.guard = guard
	return h
}

// Register mounts every route on router
func (h *Handlers) Register(router gin.IRouter) {
	router.GET("/", h.Root)
	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	v1.POST("/scripts", h.RunScript)
	v1.GET("/files", h.ListFiles)
	v1.GET("/files/:name", h.ReadFile)
	v1.GET("/console", h.Console)
	v1.GET("/fsinfo", h.FSInfo)
	v1.GET("/fscfg", h.FSConfig)
}

// Root handles the service banner
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "flashfile",
		"version": Version,
	})
}

// Health reports the handle slot and metric totals
func (h *Handlers) Health(c *gin.Context) {
	var open string
	_ = h.runtime.Do(func(m *file.Manager) error {
		open = m.Current()
		return nil
	})

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"open_file": open,
		"volume":    h.guard.State().String(),
		"metrics":   h.metrics.Snapshot(),
	})
}

// RunScript executes a script against the volume
func (h *Handlers) RunScript(c *gin.Context) {
	var req ScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, http.StatusBadRequest, err, nil)
		return
	}

	res, status, err := h.execute(c.Request.Context(), req)
	if err != nil {
		var console []script.LogEntry
		if res != nil {
			console = res.Console
		}
		h.fail(c, status, err, console)
		return
	}

	c.JSON(http.StatusOK, ScriptResponse{
		ID:         res.ID,
		Value:      res.Value,
		Console:    res.Console,
		DurationMs: float64(res.Duration) / float64(time.Millisecond),
	})
}

// execute runs req through the guard and maps failures onto a status.
func (h *Handlers) execute(ctx context.Context, req ScriptRequest) (*script.Result, int, error) {
	if req.TimeoutMs > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(req.TimeoutMs)*time.Millisecond)
		defer cancel()
	}

	var res *script.Result
	err := h.guard.Do(func() error {
		var err error
		res, err = h.runtime.Execute(ctx, req.Script)
		return err
	})
	switch {
	case err == nil:
		return res, http.StatusOK, nil
	case file.Classify(err) == file.KindFatal:
		return res, http.StatusInternalServerError, err
	case errors.Is(err, script.ErrClosed), isGuarded(err):
		return res, http.StatusServiceUnavailable, err
	default:
		return res, http.StatusUnprocessableEntity, err
	}
}

// ListFiles lists files with their sizes, optionally filtered by ?pattern=
func (h *Handlers) ListFiles(c *gin.Context) {
	var files map[string]int64
	err := h.runtime.Do(func(m *file.Manager) error {
		var err error
		files, err = m.Glob(c.Query("pattern"))
		return err
	})
	if err != nil {
		h.fail(c, statusFor(err), err, nil)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
		"count": len(files),
	})
}

// ReadFile returns the content of one file. It takes the handle slot, so
// a file left open by a script is closed.
func (h *Handlers) ReadFile(c *gin.Context) {
	var data []byte
	err := h.runtime.Do(func(m *file.Manager) error {
		var err error
		data, err = m.ReadFile(c.Param("name"))
		return err
	})
	if err != nil {
		h.fail(c, statusFor(err), err, nil)
		return
	}

	c.Data(http.StatusOK, mimetype.Detect(data).String(), data)
}

// FSInfo reports volume usage
func (h *Handlers) FSInfo(c *gin.Context) {
	var info file.VolumeInfo
	err := h.guard.Do(func() error {
		return h.runtime.Do(func(m *file.Manager) error {
			var err error
			info, err = m.Info()
			return err
		})
	})
	if isGuarded(err) {
		h.fail(c, http.StatusServiceUnavailable, err, nil)
		return
	}
	if err != nil {
		h.fail(c, http.StatusInternalServerError, err, nil)
		return
	}
	c.JSON(http.StatusOK, info)
}

// FSConfig reports the physical placement of the volume
func (h *Handlers) FSConfig(c *gin.Context) {
	var cfg volume.PhysicalConfig
	_ = h.runtime.Do(func(m *file.Manager) error {
		cfg = m.PhysicalConfig()
		return nil
	})
	c.JSON(http.StatusOK, cfg)
}

func (h *Handlers) fail(c *gin.Context, status int, err error, console []script.LogEntry) {
	resp := ErrorResponse{
		Error:     err.Error(),
		Console:   console,
		RequestID: middleware.RequestIDFrom(c),
		Advice:    advice(err),
	}

	if file.Classify(err) == file.KindFatal {
		h.logger.Error("fatal file system error",
			zap.String("request_id", resp.RequestID),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	} else {
		h.logger.Debug("request failed",
			zap.String("request_id", resp.RequestID),
			zap.Int("status", status),
			zap.Error(err))
	}

	c.JSON(status, resp)
}

// statusFor maps file layer errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, volume.ErrNotFound):
		return http.StatusNotFound
	case file.Classify(err) == file.KindArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// advice returns operator guidance for fatal and guarded errors.
func advice(err error) string {
	var fatal *file.FatalError
	if errors.As(err, &fatal) {
		return fatal.Advice
	}
	if isGuarded(err) {
		return file.AdviceReinitialize
	}
	return ""
}

func isGuarded(err error) bool {
	return errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests)
}
