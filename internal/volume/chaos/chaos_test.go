package chaos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/flashfile/internal/volume"
	"github.com/GriffinCanCode/flashfile/internal/volume/memfs"
)

func TestPassthroughNeverInjects(t *testing.T) {
	d := New(memfs.New(memfs.DefaultConfig()), 1, Config{
		OpenFailRate:  1,
		WriteFailRate: 1,
	})
	d.SetMode(ModePassthrough)

	fd, err := d.Open("a", volume.ParseMode("w"))
	require.NoError(t, err)
	n, err := d.Write(fd, []byte("abc"))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, d.Stats().Total())
}

func TestInjectedFailures(t *testing.T) {
	inner := memfs.New(memfs.DefaultConfig())
	fd, err := inner.Open("a", volume.ParseMode("w+"))
	require.NoError(t, err)

	d := New(inner, 7, Config{
		OpenFailRate:   1,
		SeekFailRate:   1,
		FlushFailRate:  1,
		RenameFailRate: 1,
		RemoveFailRate: 1,
	})

	_, err = d.Open("b", volume.ParseMode("w"))
	assert.ErrorIs(t, err, ErrInjected)
	_, err = d.Seek(fd, 0, volume.SeekSet)
	assert.ErrorIs(t, err, ErrInjected)
	assert.ErrorIs(t, d.Flush(fd), ErrInjected)
	assert.ErrorIs(t, d.Rename("a", "c"), ErrInjected)
	assert.ErrorIs(t, d.Remove("a"), ErrInjected)

	stats := d.Stats()
	assert.Equal(t, int64(1), stats.OpenFails)
	assert.Equal(t, int64(5), stats.Total())
}

func TestPartialWriteIsShort(t *testing.T) {
	inner := memfs.New(memfs.DefaultConfig())
	d := New(inner, 42, Config{PartialWriteRate: 1})

	fd, err := d.Open("a", volume.ParseMode("w"))
	require.NoError(t, err)

	payload := []byte("0123456789")
	n, err := d.Write(fd, payload)
	assert.ErrorIs(t, err, ErrInjected)
	assert.Less(t, n, len(payload))
	assert.Greater(t, n, 0)

	entry, err := inner.Stat("a")
	require.NoError(t, err)
	assert.Equal(t, int64(n), entry.Size)
}

func TestPartialReadIsShort(t *testing.T) {
	inner := memfs.New(memfs.DefaultConfig())
	fd, err := inner.Open("a", volume.ParseMode("w+"))
	require.NoError(t, err)
	_, err = inner.Write(fd, []byte("abcdefgh"))
	require.NoError(t, err)
	_, err = inner.Seek(fd, 0, volume.SeekSet)
	require.NoError(t, err)

	d := New(inner, 3, Config{PartialReadRate: 1})
	buf := make([]byte, 8)
	n, err := d.Read(fd, buf)
	require.NoError(t, err)
	assert.Less(t, n, 8)
	assert.Equal(t, int64(1), d.Stats().PartialReads)
}
