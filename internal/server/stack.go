package server

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/flashfile/internal/file"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/config"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/logging"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/flashfile/internal/script"
	"github.com/GriffinCanCode/flashfile/internal/volume"
	"github.com/GriffinCanCode/flashfile/internal/volume/chaos"
	"github.com/GriffinCanCode/flashfile/internal/volume/hostfs"
	"github.com/GriffinCanCode/flashfile/internal/volume/memfs"
)

// Stack is everything between a caller and the volume
type Stack struct {
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	Driver  volume.Driver
	Chaos   *chaos.Driver // nil unless fault injection is on
	Files   *file.Manager
	Runtime *script.Runtime
	Guard   *resilience.Guard
}

type options struct {
	logger    *logging.Logger
	chaos     *chaos.Config
	chaosSeed int64
}

// Option customises NewStack and NewServer
type Option func(*options)

// WithLogger replaces the logger built from configuration
func WithLogger(logger *logging.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithChaos wraps the volume in a fault-injecting driver
func WithChaos(seed int64, cfg chaos.Config) Option {
	return func(o *options) {
		o.chaos = &cfg
		o.chaosSeed = seed
	}
}

// NewLogger builds the logger described by cfg
func NewLogger(cfg config.LogConfig) (*logging.Logger, error) {
	lc := logging.DefaultConfig()
	if cfg.Development {
		lc = logging.DevelopmentConfig()
	}
	if cfg.Level != "" {
		lc.Level = cfg.Level
	}
	return logging.New(lc)
}

// NewVolume opens the volume backend selected by cfg
func NewVolume(cfg config.VolumeConfig) (volume.Driver, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memfs.New(memfs.Config{
			Capacity: cfg.Capacity,
			PageSize: cfg.PageSize,
			Address:  cfg.PhysAddr,
		}), nil
	case config.BackendHost:
		return hostfs.New(hostfs.Config{
			Dir:      cfg.Dir,
			Capacity: cfg.Capacity,
			Address:  cfg.PhysAddr,
		})
	default:
		return nil, fmt.Errorf("unknown volume backend %q", cfg.Backend)
	}
}

// NewStack wires volume, manager and script runtime from cfg
func NewStack(cfg *config.Config, opts ...Option) (*Stack, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		var err error
		if logger, err = NewLogger(cfg.Logging); err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
	}

	metrics := monitoring.NewMetrics()

	driver, err := NewVolume(cfg.Volume)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume: %w", err)
	}
	logger.Info("Volume mounted",
		zap.String("backend", cfg.Volume.Backend),
		zap.Uint64("capacity", cfg.Volume.Capacity),
		zap.Uint32("phys_addr", cfg.Volume.PhysAddr))

	var faulty *chaos.Driver
	if o.chaos != nil {
		faulty = chaos.New(driver, o.chaosSeed, *o.chaos)
		driver = faulty
		logger.Warn("Fault injection enabled", zap.Int64("seed", o.chaosSeed))
	}

	files := file.NewManager(driver, file.Config{
		ChunkSize:     cfg.Volume.ChunkSize,
		MaxNameLength: cfg.Volume.NameMax,
	}).
		WithLogger(logger.Named("file")).
		WithMetrics(metrics)

	runtime, err := script.New(script.Config{
		Timeout:       cfg.Script.Timeout,
		EnableConsole: cfg.Script.Console,
		MaxCallStack:  script.DefaultConfig().MaxCallStack,
	}, files, logger.Named("script"))
	if err != nil {
		return nil, fmt.Errorf("failed to create script runtime: %w", err)
	}
	runtime.WithMetrics(metrics)

	guardLog := logger.Named("guard")
	guard := resilience.NewGuard("volume", resilience.Settings{
		Cooldown: cfg.Volume.GuardCooldown,
		IsFailure: func(err error) bool {
			return file.Classify(err) == file.KindFatal
		},
		OnStateChange: func(name string, from, to resilience.State) {
			guardLog.Warn("Volume guard state changed",
				zap.String("guard", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	return &Stack{
		Logger:  logger,
		Metrics: metrics,
		Driver:  driver,
		Chaos:   faulty,
		Files:   files,
		Runtime: runtime,
		Guard:   guard,
	}, nil
}

// Close closes any open file and flushes the logger
func (s *Stack) Close() error {
	err := s.Runtime.Close()
	if s.Chaos != nil {
		stats := s.Chaos.Stats()
		s.Logger.Info("Injected faults", zap.Int64("total", stats.Total()))
	}
	_ = s.Logger.Sync()
	return err
}
