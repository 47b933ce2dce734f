package file

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/flashfile/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/flashfile/internal/volume"
)

// LineTerminator ends records written by WriteLine and read by ReadLine.
const LineTerminator = '\n'

// Config holds the limits of the file layer.
type Config struct {
	ChunkSize     int // Capacity of one read; larger requests are truncated
	MaxNameLength int // Filenames must be strictly shorter
}

// DefaultConfig mirrors a 1 KiB line buffer and 32 byte object names.
func DefaultConfig() Config {
	return Config{
		ChunkSize:     1024,
		MaxNameLength: 32,
	}
}

type handle struct {
	fd   volume.Descriptor
	name string
}

// Manager owns the single open-file slot of a volume.
type Manager struct {
	driver  volume.Driver
	config  Config
	logger  *zap.Logger
	metrics *monitoring.Metrics

	current *handle // nil when no file is open
	chunk   []byte  // staging buffer for reads
}

// NewManager creates a manager over driver with an empty handle slot.
func NewManager(driver volume.Driver, config Config) *Manager {
	def := DefaultConfig()
	if config.ChunkSize <= 0 {
		config.ChunkSize = def.ChunkSize
	}
	if config.MaxNameLength <= 1 {
		config.MaxNameLength = def.MaxNameLength
	}
	return &Manager{
		driver: driver,
		config: config,
		logger: zap.NewNop(),
		chunk:  make([]byte, config.ChunkSize),
	}
}

// WithLogger sets the logger used for handle lifecycle events
func (m *Manager) WithLogger(logger *zap.Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithMetrics adds metrics tracking to the manager
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Config returns the effective limits.
func (m *Manager) Config() Config {
	return m.config
}

// IsOpen reports whether a file is currently open.
func (m *Manager) IsOpen() bool {
	return m.current != nil
}

// Current returns the name of the open file, or "" when none is open.
func (m *Manager) Current() string {
	if m.current == nil {
		return ""
	}
	return m.current.name
}

// Open makes name the single open file. Any previously open file is
// closed first, even if the new open then fails.
func (m *Manager) Open(name, mode string) (err error) {
	timer := monitoring.NewTimer(m.metrics, "open")
	defer func() { timer.Stop(outcome(err)) }()

	if err := m.validateName("open", 1, name); err != nil {
		return err
	}

	m.release("open")

	flags := volume.ParseMode(mode)
	fd, err := m.driver.Open(name, flags)
	if err != nil {
		m.logger.Debug("open failed",
			zap.String("name", name),
			zap.Stringer("flags", flags),
			zap.Error(err))
		return &IOError{Op: "open", Name: name, Err: err}
	}

	m.current = &handle{fd: fd, name: name}
	m.metrics.SetHandleOpen(true)
	m.logger.Debug("file opened",
		zap.String("name", name),
		zap.Int("fd", int(fd)),
		zap.Stringer("flags", flags))
	return nil
}

// Close closes the open file. Closing with no open file is a no-op. The
// slot is always cleared, even when the driver reports a failure.
func (m *Manager) Close() (err error) {
	timer := monitoring.NewTimer(m.metrics, "close")
	defer func() { timer.Stop(outcome(err)) }()

	h := m.current
	if h == nil {
		return nil
	}
	m.current = nil
	m.metrics.SetHandleOpen(false)

	if err := m.driver.Close(h.fd); err != nil {
		return &IOError{Op: "close", Name: h.name, Err: err}
	}
	m.logger.Debug("file closed", zap.String("name", h.name))
	return nil
}

// release closes any open file on behalf of op, logging close failures.
func (m *Manager) release(op string) {
	h := m.current
	if h == nil {
		return
	}
	m.current = nil
	m.metrics.SetHandleOpen(false)

	if err := m.driver.Close(h.fd); err != nil {
		m.logger.Warn("closing previous file failed",
			zap.String("op", op),
			zap.String("name", h.name),
			zap.Error(err))
		return
	}
	m.logger.Debug("previous file closed", zap.String("op", op), zap.String("name", h.name))
}

func (m *Manager) requireOpen(op string) (*handle, error) {
	if m.current == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNoOpenFile)
	}
	return m.current, nil
}

// validateName enforces the length limit and rejects embedded NUL bytes.
func (m *Manager) validateName(op string, position int, name string) error {
	if len(name) >= m.config.MaxNameLength || strings.IndexByte(name, 0) >= 0 {
		return &ArgError{Op: op, Position: position, Err: ErrInvalidName}
	}
	return nil
}

func outcome(err error) string {
	if errors.Is(err, io.EOF) {
		return "eof"
	}
	return Classify(err).String()
}
