package script

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/flashfile/internal/file"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/flashfile/internal/volume/memfs"
)

func newTestRuntime(t *testing.T) (*Runtime, *file.Manager) {
	t.Helper()
	m := file.NewManager(memfs.New(memfs.DefaultConfig()), file.DefaultConfig())
	r, err := New(DefaultConfig(), m, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r, m
}

func run(t *testing.T, r *Runtime, src string) interface{} {
	t.Helper()
	res, err := r.Execute(context.Background(), src)
	require.NoError(t, err)
	return res.Value
}

func TestNewRequiresManager(t *testing.T) {
	_, err := New(DefaultConfig(), nil, nil)
	assert.Error(t, err)
}

func TestRuntimeExecution(t *testing.T) {
	r, _ := newTestRuntime(t)

	tests := []struct {
		name   string
		script string
		want   interface{}
	}{
		{"simple return", "42", int64(42)},
		{"string operations", "'hello'.toUpperCase()", "HELLO"},
		{"undefined result", "var x = 1", nil},
		{"arithmetic", "2 + 3", int64(5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, r, tt.script))
		})
	}
}

func TestRuntimeSecurity(t *testing.T) {
	r, _ := newTestRuntime(t)

	for _, global := range []string{"require", "process", "module", "exports"} {
		assert.Equal(t, "undefined", run(t, r, "typeof "+global), global)
	}
	assert.Nil(t, run(t, r, "setTimeout(function() {}, 10)"))
}

func TestRuntimeConsole(t *testing.T) {
	r, _ := newTestRuntime(t)

	res, err := r.Execute(context.Background(), "console.log('hello', 42); console.warn('careful'); 'ok'")
	require.NoError(t, err)
	require.Len(t, res.Console, 2)
	assert.Equal(t, "log", res.Console[0].Level)
	assert.Equal(t, "hello 42", res.Console[0].Message)
	assert.Equal(t, "warn", res.Console[1].Level)
	assert.NotEmpty(t, res.ID)

	res, err = r.Execute(context.Background(), "'again'")
	require.NoError(t, err)
	assert.Empty(t, res.Console, "console is per execution")
}

func TestRuntimeConsoleDisabled(t *testing.T) {
	m := file.NewManager(memfs.New(memfs.DefaultConfig()), file.DefaultConfig())
	r, err := New(Config{Timeout: time.Second}, m, nil)
	require.NoError(t, err)

	res, err := r.Execute(context.Background(), "typeof console")
	require.NoError(t, err)
	assert.Equal(t, "undefined", res.Value)
}

func TestRuntimeTimeout(t *testing.T) {
	m := file.NewManager(memfs.New(memfs.DefaultConfig()), file.DefaultConfig())
	r, err := New(Config{Timeout: 50 * time.Millisecond}, m, nil)
	require.NoError(t, err)

	start := time.Now()
	_, err = r.Execute(context.Background(), "while (true) {}")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 2*time.Second)

	// the VM is usable after an interrupt
	res, err := r.Execute(context.Background(), "1 + 1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Value)
}

func TestRuntimeContextCancel(t *testing.T) {
	r, _ := newTestRuntime(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.Execute(ctx, "while (true) {}")
	assert.ErrorIs(t, err, ErrCanceled)
}

func TestRuntimeCancelAfterReturn(t *testing.T) {
	r, _ := newTestRuntime(t)

	for i := 0; i < 200; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		_, err := r.Execute(ctx, "1")
		require.NoError(t, err)
		cancel()

		res, err := r.Execute(context.Background(), "2")
		require.NoError(t, err, "iteration %d", i)
		assert.Equal(t, int64(2), res.Value)
	}
}

func TestRuntimeScriptError(t *testing.T) {
	r, _ := newTestRuntime(t)

	res, err := r.Execute(context.Background(), "throw new Error('boom')")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, err, res.Error)

	_, err = r.Execute(context.Background(), "this is not javascript")
	assert.Error(t, err)
}

func TestRuntimeResetKeepsOpenFile(t *testing.T) {
	r, m := newTestRuntime(t)

	run(t, r, "var marker = 1; file.open('keep', 'w+'); file.write('abc')")
	require.NoError(t, r.Reset())

	assert.Equal(t, "undefined", run(t, r, "typeof marker"))
	assert.True(t, m.IsOpen())
	assert.Equal(t, int64(0), run(t, r, "file.seek('set')"))
	assert.Equal(t, "abc", run(t, r, "file.read()"))
}

func TestRuntimeCloseReleasesHandle(t *testing.T) {
	m := file.NewManager(memfs.New(memfs.DefaultConfig()), file.DefaultConfig())
	r, err := New(DefaultConfig(), m, nil)
	require.NoError(t, err)

	_, err = r.Execute(context.Background(), "file.open('a', 'w')")
	require.NoError(t, err)
	require.True(t, m.IsOpen())

	require.NoError(t, r.Close())
	assert.False(t, m.IsOpen())

	_, err = r.Execute(context.Background(), "1")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRuntimeDo(t *testing.T) {
	r, _ := newTestRuntime(t)
	run(t, r, "file.open('a', 'w'); file.write('12345'); file.close()")

	var files map[string]int64
	err := r.Do(func(m *file.Manager) error {
		var err error
		files, err = m.List()
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"a": 5}, files)

	sentinel := errors.New("stop")
	assert.Equal(t, sentinel, r.Do(func(*file.Manager) error { return sentinel }))
}

func TestRuntimeMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	r, _ := newTestRuntime(t)
	r.WithMetrics(metrics)

	run(t, r, "1")
	_, err := r.Execute(context.Background(), "throw 1")
	require.Error(t, err)

	assert.Equal(t, int64(2), metrics.Snapshot().ScriptRuns)
}
