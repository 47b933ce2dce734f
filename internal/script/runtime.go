package script

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/flashfile/internal/file"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/flashfile/internal/shared/id"
)

// Runtime wraps a goja VM bound to one file manager
type Runtime struct {
	vm      *goja.Runtime
	config  Config
	files   *file.Manager
	logger  *zap.Logger
	metrics *monitoring.Metrics
	mu      sync.Mutex

	// Console output
	console   []LogEntry
	consoleMu sync.Mutex
}

// New creates a runtime exposing files to scripts
func New(config Config, files *file.Manager, logger *zap.Logger) (*Runtime, error) {
	if files == nil {
		return nil, errors.New("script: file manager is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runtime{
		config:  config,
		files:   files,
		logger:  logger,
		console: []LogEntry{},
	}
	if err := r.init(); err != nil {
		return nil, err
	}
	return r, nil
}

// WithMetrics adds script execution metrics
func (r *Runtime) WithMetrics(metrics *monitoring.Metrics) *Runtime {
	r.metrics = metrics
	return r
}

func (r *Runtime) init() error {
	r.vm = goja.New()
	if r.config.MaxCallStack > 0 {
		r.vm.SetMaxCallStackSize(r.config.MaxCallStack)
	}
	if err := r.setupGlobals(); err != nil {
		return err
	}
	return r.registerFileModule()
}

// Execute runs JavaScript code with timeout and cancellation
func (r *Runtime) Execute(ctx context.Context, script string) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.vm == nil {
		return nil, ErrClosed
	}

	start := time.Now()
	result := &Result{
		ID:      id.NewRunID().String(),
		Console: []LogEntry{},
	}

	// A previous run may have been interrupted after it finished
	r.vm.ClearInterrupt()

	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()

	timer := time.NewTimer(r.config.Timeout)
	defer timer.Stop()

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-timer.C:
			r.vm.Interrupt(ErrTimeout)
		case <-ctx.Done():
			r.vm.Interrupt(ErrCanceled)
		case <-done:
		}
	}()

	val, err := r.vm.RunString(script)
	close(done)
	// the watcher must not interrupt a later run once the lock is released
	<-stopped

	result.Duration = time.Since(start)

	r.consoleMu.Lock()
	result.Console = append([]LogEntry{}, r.console...)
	r.consoleMu.Unlock()

	if err != nil {
		err = r.unwrap(err)
		result.Error = err
		r.metrics.RecordScriptRun(runOutcome(err), result.Duration)
		r.logger.Debug("script failed",
			zap.String("id", result.ID),
			zap.Duration("duration", result.Duration),
			zap.Error(err))
		return result, err
	}

	result.Value = exportValue(val)
	r.metrics.RecordScriptRun("ok", result.Duration)
	r.logger.Debug("script finished",
		zap.String("id", result.ID),
		zap.Duration("duration", result.Duration),
		zap.Int("console", len(result.Console)))
	return result, nil
}

// Do runs fn with exclusive access to the file manager. Go callers that
// share the manager with scripts go through here.
func (r *Runtime) Do(fn func(m *file.Manager) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.files)
}

// unwrap turns interrupts back into the error that caused them.
func (r *Runtime) unwrap(err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		if cause, ok := interrupted.Value().(error); ok {
			return cause
		}
		return fmt.Errorf("interrupted: %v", interrupted.Value())
	}
	return err
}

func runOutcome(err error) string {
	var fatal *file.FatalError
	switch {
	case errors.As(err, &fatal):
		return "fatal"
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrCanceled):
		return "timeout"
	default:
		return "error"
	}
}

// setupGlobals configures global objects and security
func (r *Runtime) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	if r.config.EnableConsole {
		console := r.vm.NewObject()
		for _, level := range []string{"log", "warn", "error", "info"} {
			if err := console.Set(level, r.makeConsoleFunc(level)); err != nil {
				return err
			}
		}
		if err := r.vm.Set("console", console); err != nil {
			return err
		}
	}

	// Timers are no-ops
	noop := func(call goja.FunctionCall) goja.Value { return goja.Undefined() }
	if err := r.vm.Set("setTimeout", noop); err != nil {
		return err
	}
	return r.vm.Set("setInterval", noop)
}

// makeConsoleFunc creates a console function
func (r *Runtime) makeConsoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		msg := strings.Join(parts, " ")

		r.consoleMu.Lock()
		r.console = append(r.console, LogEntry{
			Level:   level,
			Message: msg,
			Time:    time.Now(),
		})
		r.consoleMu.Unlock()

		r.logger.Debug("console", zap.String("level", level), zap.String("message", msg))
		return goja.Undefined()
	}
}

// exportValue converts goja value to Go value
func exportValue(val goja.Value) interface{} {
	if val == nil || goja.IsUndefined(val) || goja.IsNull(val) {
		return nil
	}
	return val.Export()
}

// Reset rebuilds the VM. The open file, if any, survives since it lives in
// the manager.
func (r *Runtime) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.consoleMu.Lock()
	r.console = []LogEntry{}
	r.consoleMu.Unlock()
	return r.init()
}

// Close closes any open file and releases the VM
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.vm = nil
	r.console = nil
	return r.files.Close()
}
