package file

import (
	"errors"
	"fmt"
	"math"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/flashfile/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/flashfile/internal/volume"
)

// VolumeInfo is the usage report returned by Info.
type VolumeInfo struct {
	Free  int64 `json:"free" yaml:"free"`
	Used  int64 `json:"used" yaml:"used"`
	Total int64 `json:"total" yaml:"total"`
}

// Format closes any open file and erases the volume. A driver failure is
// fatal and never retried.
func (m *Manager) Format() (err error) {
	timer := monitoring.NewTimer(m.metrics, "format")
	defer func() { timer.Stop(outcome(err)) }()

	m.release("format")

	if err := m.driver.Format(); err != nil {
		m.logger.Error("unable to format, file system might be compromised",
			zap.Error(err),
			zap.String("advice", AdviceReinitialize))
		return &FatalError{
			Op:     "format",
			Advice: AdviceReinitialize,
			Err:    fmt.Errorf("%w: %v", ErrFormatFailed, err),
		}
	}

	m.logger.Info("format done")
	return nil
}

// Remove closes any open file and deletes name. Driver failures are
// logged, not returned.
func (m *Manager) Remove(name string) (err error) {
	timer := monitoring.NewTimer(m.metrics, "remove")
	defer func() { timer.Stop(outcome(err)) }()

	if err := m.validateName("remove", 1, name); err != nil {
		return err
	}

	m.release("remove")

	if err := m.driver.Remove(name); err != nil {
		m.logger.Debug("remove failed", zap.String("name", name), zap.Error(err))
	}
	return nil
}

// Rename closes any open file and renames oldName to newName.
func (m *Manager) Rename(oldName, newName string) (err error) {
	timer := monitoring.NewTimer(m.metrics, "rename")
	defer func() { timer.Stop(outcome(err)) }()

	if err := m.validateName("rename", 1, oldName); err != nil {
		return err
	}
	if err := m.validateName("rename", 2, newName); err != nil {
		return err
	}

	m.release("rename")

	if err := m.driver.Rename(oldName, newName); err != nil {
		return &IOError{Op: "rename", Name: oldName, Err: err}
	}
	return nil
}

// Exists reports whether name is present. Only argument errors are returned.
func (m *Manager) Exists(name string) (found bool, err error) {
	timer := monitoring.NewTimer(m.metrics, "exists")
	defer func() { timer.Stop(outcome(err)) }()

	if err := m.validateName("exists", 1, name); err != nil {
		return false, err
	}

	if _, err := m.driver.Stat(name); err != nil {
		if !errors.Is(err, volume.ErrNotFound) {
			m.logger.Debug("stat failed", zap.String("name", name), zap.Error(err))
		}
		return false, nil
	}
	return true, nil
}

// Info reports free, used and total bytes. Figures that cannot be true of
// a healthy volume are a fatal integrity error.
func (m *Manager) Info() (info VolumeInfo, err error) {
	timer := monitoring.NewTimer(m.metrics, "fsinfo")
	defer func() { timer.Stop(outcome(err)) }()

	used, total, err := m.driver.Info()
	if err != nil {
		m.logger.Error("volume info failed", zap.Error(err))
		return VolumeInfo{}, &FatalError{
			Op:     "fsinfo",
			Advice: AdviceReinitialize,
			Err:    fmt.Errorf("%w: %v", ErrVolumeFailed, err),
		}
	}

	m.logger.Debug("volume info", zap.Uint64("total", total), zap.Uint64("used", used))
	if total > math.MaxInt32 || used > math.MaxInt32 || used > total {
		m.logger.Error("volume usage out of range",
			zap.Uint64("total", total),
			zap.Uint64("used", used))
		return VolumeInfo{}, &FatalError{
			Op:     "fsinfo",
			Advice: AdviceReinitialize,
			Err:    fmt.Errorf("%w: used %d of %d bytes", ErrIntegrity, used, total),
		}
	}

	return VolumeInfo{
		Free:  int64(total - used),
		Used:  int64(used),
		Total: int64(total),
	}, nil
}

// PhysicalConfig returns the flash placement of the volume.
func (m *Manager) PhysicalConfig() volume.PhysicalConfig {
	return m.driver.Config()
}

// List maps every file on the volume to its size.
func (m *Manager) List() (files map[string]int64, err error) {
	timer := monitoring.NewTimer(m.metrics, "list")
	defer func() { timer.Stop(outcome(err)) }()

	entries, err := m.driver.List()
	if err != nil {
		return nil, &IOError{Op: "list", Err: err}
	}

	files = make(map[string]int64, len(entries))
	for _, e := range entries {
		files[e.Name] = e.Size
	}
	return files, nil
}

// Glob is List restricted to names matching pattern. Patterns use
// doublestar syntax; the volume is flat, so '/' never appears in names.
// An empty pattern matches everything.
func (m *Manager) Glob(pattern string) (map[string]int64, error) {
	if pattern == "" {
		return m.List()
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, &ArgError{Op: "list", Position: 1, Err: fmt.Errorf("%w: bad pattern %q", ErrInvalidArgument, pattern)}
	}

	files, err := m.List()
	if err != nil {
		return nil, err
	}
	for name := range files {
		if ok, _ := doublestar.Match(pattern, name); !ok {
			delete(files, name)
		}
	}
	return files, nil
}
