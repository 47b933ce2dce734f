package hostfs

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/flashfile/internal/volume"
)

func newTestFS(t *testing.T) (*FS, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := New(Config{Dir: dir, Capacity: 1 << 16, Address: 0x80000})
	require.NoError(t, err)
	return fs, dir
}

func writeFile(t *testing.T, fs *FS, name, content string) {
	t.Helper()
	fd, err := fs.Open(name, volume.ParseMode("w"))
	require.NoError(t, err)
	n, err := fs.Write(fd, []byte(content))
	require.NoError(t, err)
	require.Equal(t, len(content), n)
	require.NoError(t, fs.Close(fd))
}

func TestWriteReadRoundTrip(t *testing.T) {
	fs, dir := newTestFS(t)
	writeFile(t, fs, "a.txt", "hello")

	raw, err := os.ReadFile(filepath.Join(dir, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(raw))

	fd, err := fs.Open("a.txt", volume.ParseMode("r"))
	require.NoError(t, err)
	defer fs.Close(fd)

	buf := make([]byte, 3)
	n, err := fs.Read(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "hel", string(buf[:n]))

	pos, err := fs.Tell(fd)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)

	_, err = fs.Seek(fd, -1, volume.SeekCur)
	require.NoError(t, err)
	n, err = fs.Read(fd, buf)
	require.NoError(t, err)
	assert.Equal(t, "llo", string(buf[:n]))

	_, err = fs.Read(fd, buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenMissing(t *testing.T) {
	fs, _ := newTestFS(t)
	_, err := fs.Open("nope", volume.ParseMode("r"))
	assert.ErrorIs(t, err, volume.ErrNotFound)
}

func TestOpenRejectsDirectories(t *testing.T) {
	fs, dir := newTestFS(t)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	for _, mode := range []string{"r", "r+", "w", "a"} {
		_, err := fs.Open("nested", volume.ParseMode(mode))
		assert.Error(t, err, mode)
	}
	_, err := fs.Open("nested", volume.ParseMode("r"))
	assert.ErrorIs(t, err, volume.ErrNotFound)
	assert.Empty(t, fs.handles, "no descriptor leaks on rejection")
}

func TestInvalidNames(t *testing.T) {
	fs, _ := newTestFS(t)
	for _, name := range []string{"", ".", "..", "sub/file", "nul\x00byte"} {
		_, err := fs.Open(name, volume.ParseMode("w"))
		assert.ErrorIs(t, err, volume.ErrInvalidName, name)
	}
}

func TestListSkipsDirectories(t *testing.T) {
	fs, dir := newTestFS(t)
	writeFile(t, fs, "b", "22")
	writeFile(t, fs, "a", "1")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "hidden"), []byte("x"), 0o644))

	entries, err := fs.List()
	require.NoError(t, err)
	assert.Equal(t, []volume.Entry{{Name: "a", Size: 1}, {Name: "b", Size: 2}}, entries)

	used, total, err := fs.Info()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), used)
	assert.Equal(t, uint64(1<<16), total)
}

func TestRenameRefusesExistingTarget(t *testing.T) {
	fs, _ := newTestFS(t)
	writeFile(t, fs, "old", "x")
	writeFile(t, fs, "taken", "y")

	assert.ErrorIs(t, fs.Rename("old", "taken"), volume.ErrExists)
	require.NoError(t, fs.Rename("old", "new"))

	_, err := fs.Stat("old")
	assert.ErrorIs(t, err, volume.ErrNotFound)
	entry, err := fs.Stat("new")
	require.NoError(t, err)
	assert.Equal(t, int64(1), entry.Size)
}

func TestFormat(t *testing.T) {
	fs, _ := newTestFS(t)
	writeFile(t, fs, "a", "1")
	fd, err := fs.Open("b", volume.ParseMode("w"))
	require.NoError(t, err)

	require.NoError(t, fs.Format())

	entries, err := fs.List()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.ErrorIs(t, fs.Close(fd), volume.ErrBadDescriptor)
}

func TestFormatReportsCloseFailure(t *testing.T) {
	fs, _ := newTestFS(t)
	fd, err := fs.Open("a", volume.ParseMode("w"))
	require.NoError(t, err)
	require.NoError(t, fs.handles[fd].file.Close())

	err = fs.Format()
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrClosed)
	assert.Contains(t, err.Error(), "format: close a")

	entries, err := fs.List()
	require.NoError(t, err)
	assert.Empty(t, entries, "files are still erased")
}

func TestConfig(t *testing.T) {
	fs, _ := newTestFS(t)
	assert.Equal(t, volume.PhysicalConfig{Address: 0x80000, Size: 1 << 16}, fs.Config())
}
