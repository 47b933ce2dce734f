package file

import (
	"fmt"

	"github.com/GriffinCanCode/flashfile/internal/volume"
	"github.com/GriffinCanCode/flashfile/internal/volume/memfs"
)

// recordingDriver wraps memfs, logs every call and can be told to fail.
type recordingDriver struct {
	inner *memfs.FS
	calls []string

	openErr   error
	closeErr  error
	seekErr   error
	flushErr  error
	formatErr error
	renameErr error
	removeErr error

	// writeLimits caps successive writes; -1 means unlimited.
	writeLimits []int

	infoOverride bool
	infoUsed     uint64
	infoTotal    uint64
	infoErr      error
}

var _ volume.Driver = (*recordingDriver)(nil)

func newRecordingDriver() *recordingDriver {
	return &recordingDriver{inner: memfs.New(memfs.DefaultConfig())}
}

func (d *recordingDriver) record(format string, args ...interface{}) {
	d.calls = append(d.calls, fmt.Sprintf(format, args...))
}

func (d *recordingDriver) reset() { d.calls = nil }

func (d *recordingDriver) Open(name string, flags volume.Flag) (volume.Descriptor, error) {
	d.record("open %s", name)
	if d.openErr != nil {
		return 0, d.openErr
	}
	return d.inner.Open(name, flags)
}

func (d *recordingDriver) Close(fd volume.Descriptor) error {
	d.record("close %d", fd)
	err := d.inner.Close(fd)
	if d.closeErr != nil {
		return d.closeErr
	}
	return err
}

func (d *recordingDriver) Read(fd volume.Descriptor, p []byte) (int, error) {
	d.record("read %d", len(p))
	return d.inner.Read(fd, p)
}

func (d *recordingDriver) Write(fd volume.Descriptor, p []byte) (int, error) {
	d.record("write %q", p)
	if len(d.writeLimits) > 0 {
		limit := d.writeLimits[0]
		d.writeLimits = d.writeLimits[1:]
		if limit >= 0 && limit < len(p) {
			n, _ := d.inner.Write(fd, p[:limit])
			return n, volume.ErrNoSpace
		}
	}
	return d.inner.Write(fd, p)
}

func (d *recordingDriver) Seek(fd volume.Descriptor, offset int64, whence volume.Whence) (int64, error) {
	d.record("seek %d %s", offset, whence)
	if d.seekErr != nil {
		return 0, d.seekErr
	}
	return d.inner.Seek(fd, offset, whence)
}

func (d *recordingDriver) Tell(fd volume.Descriptor) (int64, error) {
	d.record("tell")
	return d.inner.Tell(fd)
}

func (d *recordingDriver) Flush(fd volume.Descriptor) error {
	d.record("flush")
	if d.flushErr != nil {
		return d.flushErr
	}
	return d.inner.Flush(fd)
}

func (d *recordingDriver) Remove(name string) error {
	d.record("remove %s", name)
	if d.removeErr != nil {
		return d.removeErr
	}
	return d.inner.Remove(name)
}

func (d *recordingDriver) Rename(oldName, newName string) error {
	d.record("rename %s %s", oldName, newName)
	if d.renameErr != nil {
		return d.renameErr
	}
	return d.inner.Rename(oldName, newName)
}

func (d *recordingDriver) Stat(name string) (volume.Entry, error) {
	d.record("stat %s", name)
	return d.inner.Stat(name)
}

func (d *recordingDriver) Format() error {
	d.record("format")
	if d.formatErr != nil {
		return d.formatErr
	}
	return d.inner.Format()
}

func (d *recordingDriver) Info() (uint64, uint64, error) {
	d.record("info")
	if d.infoOverride || d.infoErr != nil {
		return d.infoUsed, d.infoTotal, d.infoErr
	}
	return d.inner.Info()
}

func (d *recordingDriver) List() ([]volume.Entry, error) {
	d.record("list")
	return d.inner.List()
}

func (d *recordingDriver) Config() volume.PhysicalConfig {
	return d.inner.Config()
}
