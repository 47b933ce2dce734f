package file

import (
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/flashfile/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/flashfile/internal/volume"
)

func newTestManager(t *testing.T) (*Manager, *recordingDriver) {
	t.Helper()
	d := newRecordingDriver()
	return NewManager(d, DefaultConfig()), d
}

// seed writes content to name through the manager and closes it.
func seed(t *testing.T, m *Manager, name, content string) {
	t.Helper()
	require.NoError(t, m.Open(name, "w"))
	require.NoError(t, m.Write([]byte(content)))
	require.NoError(t, m.Close())
}

func TestNewManagerDefaults(t *testing.T) {
	m := NewManager(newRecordingDriver(), Config{})
	assert.Equal(t, DefaultConfig(), m.Config())
	assert.False(t, m.IsOpen())
	assert.Equal(t, "", m.Current())
}

func TestOpenClosesPreviousFirst(t *testing.T) {
	m, d := newTestManager(t)
	seed(t, m, "a.txt", "a")
	seed(t, m, "b.txt", "b")
	d.reset()

	require.NoError(t, m.Open("a.txt", "r"))
	require.NoError(t, m.Open("b.txt", "r"))

	assert.Equal(t, []string{"open a.txt", "close 3", "open b.txt"}, d.calls)
	assert.True(t, m.IsOpen())
	assert.Equal(t, "b.txt", m.Current())
}

func TestOpenFailureLeavesSlotEmpty(t *testing.T) {
	m, d := newTestManager(t)
	seed(t, m, "a.txt", "a")
	require.NoError(t, m.Open("a.txt", "r"))
	d.reset()

	err := m.Open("missing.txt", "r")
	require.Error(t, err)
	assert.Equal(t, KindIO, Classify(err))
	assert.ErrorIs(t, err, volume.ErrNotFound)

	// the previous handle was closed before the failing open
	assert.Equal(t, []string{"close 2", "open missing.txt"}, d.calls)
	assert.False(t, m.IsOpen())
}

func TestOpenIgnoresCloseFailure(t *testing.T) {
	m, d := newTestManager(t)
	seed(t, m, "a.txt", "a")
	require.NoError(t, m.Open("a.txt", "r"))

	d.closeErr = errors.New("flash busy")
	require.NoError(t, m.Open("a.txt", "r"))
	assert.True(t, m.IsOpen())
}

func TestCloseIsIdempotent(t *testing.T) {
	m, d := newTestManager(t)
	seed(t, m, "a.txt", "a")
	require.NoError(t, m.Open("a.txt", "r"))
	d.reset()

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Equal(t, []string{"close 2"}, d.calls)
	assert.False(t, m.IsOpen())
}

func TestCloseReportsDriverFailureButClearsSlot(t *testing.T) {
	m, d := newTestManager(t)
	seed(t, m, "a.txt", "a")
	require.NoError(t, m.Open("a.txt", "r"))

	d.closeErr = errors.New("flash busy")
	err := m.Close()
	assert.Equal(t, KindIO, Classify(err))
	assert.False(t, m.IsOpen())
}

func TestOperationsRequireOpenFile(t *testing.T) {
	m, d := newTestManager(t)

	ops := map[string]func() error{
		"read":      func() error { _, err := m.Read(ByLength(1)); return err },
		"readline":  func() error { _, err := m.ReadLine(); return err },
		"write":     func() error { return m.Write([]byte("x")) },
		"writeline": func() error { return m.WriteLine([]byte("x")) },
		"seek":      func() error { _, err := m.Seek(volume.SeekCur, 0); return err },
		"flush":     func() error { return m.Flush() },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.ErrorIs(t, err, ErrNoOpenFile)
			assert.Equal(t, KindPrecondition, Classify(err))
		})
	}
	assert.Empty(t, d.calls, "precondition failures must not reach the driver")
}

func TestFilenameValidation(t *testing.T) {
	long := strings.Repeat("x", 32)
	nearly := strings.Repeat("x", 31)

	tests := []struct {
		name    string
		call    func(m *Manager) error
		wantPos int
	}{
		{"open too long", func(m *Manager) error { return m.Open(long, "w") }, 1},
		{"open embedded nul", func(m *Manager) error { return m.Open("a\x00b", "w") }, 1},
		{"remove too long", func(m *Manager) error { return m.Remove(long) }, 1},
		{"exists embedded nul", func(m *Manager) error { _, err := m.Exists("x\x00"); return err }, 1},
		{"rename old invalid", func(m *Manager) error { return m.Rename(long, "ok") }, 1},
		{"rename new invalid", func(m *Manager) error { return m.Rename("ok", "n\x00") }, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, d := newTestManager(t)
			seed(t, m, "ok", "data")
			require.NoError(t, m.Open("ok", "r"))
			d.reset()

			err := tt.call(m)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidName)
			assert.Equal(t, KindArgument, Classify(err))

			var argErr *ArgError
			require.True(t, errors.As(err, &argErr))
			assert.Equal(t, tt.wantPos, argErr.Position)

			assert.Empty(t, d.calls, "no driver call on invalid names")
			assert.True(t, m.IsOpen(), "argument errors leave the handle alone")
		})
	}

	t.Run("longest valid name", func(t *testing.T) {
		m, _ := newTestManager(t)
		require.NoError(t, m.Open(nearly, "w"))
	})
}

func TestArgErrorMessage(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.Rename("ok", strings.Repeat("y", 40))
	assert.EqualError(t, err, "bad argument #2 to 'rename' (filename invalid)")
}

func TestOperationsAreMetered(t *testing.T) {
	metrics := monitoring.NewMetrics()
	m := NewManager(newRecordingDriver(), DefaultConfig()).WithMetrics(metrics)

	require.NoError(t, m.Open("a", "w"))
	snap := metrics.Snapshot()
	assert.Equal(t, int64(1), snap.FileOps)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.OpenHandles))

	require.NoError(t, m.Close())
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.OpenHandles))
	_, err := m.Read(ByLength(1))
	require.Error(t, err)

	snap = metrics.Snapshot()
	assert.Equal(t, int64(3), snap.FileOps)
	assert.Equal(t, int64(1), snap.FileErrors)
}
