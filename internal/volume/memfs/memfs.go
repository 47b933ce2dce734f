// Package memfs implements an in-memory flat volume.
//
// Capacity is accounted in pages the way a flash filesystem does: every
// file occupies its size rounded up to the page size. Writes that do not
// fit are truncated and report volume.ErrNoSpace.
package memfs

import (
	"io"
	"sort"
	"sync"

	"github.com/GriffinCanCode/flashfile/internal/volume"
)

// Config defines the volume geometry.
type Config struct {
	Capacity uint64 // Total bytes available to files
	PageSize uint64 // Allocation unit
	Address  uint32 // Reported physical start address
}

// DefaultConfig returns a 1 MiB volume with 256 byte pages.
func DefaultConfig() Config {
	return Config{
		Capacity: 1 << 20,
		PageSize: 256,
		Address:  0x100000,
	}
}

type openFile struct {
	name  string
	flags volume.Flag
	pos   int64
}

// FS is an in-memory volume.
type FS struct {
	config Config

	mu      sync.Mutex
	files   map[string][]byte
	handles map[volume.Descriptor]*openFile
	nextFD  volume.Descriptor
}

var _ volume.Driver = (*FS)(nil)

// New creates an empty volume.
func New(config Config) *FS {
	if config.PageSize == 0 {
		config.PageSize = DefaultConfig().PageSize
	}
	if config.Capacity == 0 {
		config.Capacity = DefaultConfig().Capacity
	}
	return &FS{
		config:  config,
		files:   make(map[string][]byte),
		handles: make(map[volume.Descriptor]*openFile),
		nextFD:  1,
	}
}

// Open opens or creates name according to flags.
func (f *FS) Open(name string, flags volume.Flag) (volume.Descriptor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if name == "" {
		return 0, volume.ErrInvalidName
	}

	data, exists := f.files[name]
	switch {
	case exists && flags.Has(volume.FlagCreate|volume.FlagExclusive):
		return 0, volume.ErrExists
	case !exists && !flags.Has(volume.FlagCreate):
		return 0, volume.ErrNotFound
	case !exists:
		data = []byte{}
		f.files[name] = data
	}

	if flags.Has(volume.FlagTruncate) {
		f.files[name] = data[:0]
	}

	fd := f.nextFD
	f.nextFD++
	f.handles[fd] = &openFile{name: name, flags: flags}
	return fd, nil
}

// Close releases fd.
func (f *FS) Close(fd volume.Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.handles[fd]; !ok {
		return volume.ErrBadDescriptor
	}
	delete(f.handles, fd)
	return nil
}

// Read copies bytes from the current position into p.
func (f *FS) Read(fd volume.Descriptor, p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, err := f.handle(fd)
	if err != nil {
		return 0, err
	}
	if h.flags&(volume.FlagRead) == 0 {
		return 0, volume.ErrWriteOnly
	}

	data := f.files[h.name]
	if h.pos >= int64(len(data)) {
		return 0, io.EOF
	}
	n := copy(p, data[h.pos:])
	h.pos += int64(n)
	return n, nil
}

// Write stores p at the current position, or at the end in append mode.
func (f *FS) Write(fd volume.Descriptor, p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, err := f.handle(fd)
	if err != nil {
		return 0, err
	}
	if !h.flags.Has(volume.FlagWrite) {
		return 0, volume.ErrReadOnly
	}

	data := f.files[h.name]
	if h.flags.Has(volume.FlagAppend) {
		h.pos = int64(len(data))
	}

	end := h.pos + int64(len(p))
	want := p
	var writeErr error
	if end > int64(len(data)) {
		room := f.room(h.name, end)
		if room < end {
			if room <= h.pos {
				return 0, volume.ErrNoSpace
			}
			want = p[:room-h.pos]
			end = room
			writeErr = volume.ErrNoSpace
		}
	}

	if end > int64(len(data)) {
		grown := make([]byte, end)
		copy(grown, data)
		data = grown
	}
	n := copy(data[h.pos:end], want)
	f.files[h.name] = data
	h.pos += int64(n)
	return n, writeErr
}

// Seek moves the position of fd.
func (f *FS) Seek(fd volume.Descriptor, offset int64, whence volume.Whence) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, err := f.handle(fd)
	if err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case volume.SeekSet:
	case volume.SeekCur:
		base = h.pos
	case volume.SeekEnd:
		base = int64(len(f.files[h.name]))
	default:
		return 0, volume.ErrInvalidSeek
	}

	pos := base + offset
	if pos < 0 {
		return 0, volume.ErrInvalidSeek
	}
	h.pos = pos
	return pos, nil
}

// Tell reports the position of fd.
func (f *FS) Tell(fd volume.Descriptor) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	h, err := f.handle(fd)
	if err != nil {
		return 0, err
	}
	return h.pos, nil
}

// Flush is a no-op beyond descriptor validation; data is never cached.
func (f *FS) Flush(fd volume.Descriptor) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, err := f.handle(fd)
	return err
}

// Remove deletes name.
func (f *FS) Remove(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.files[name]; !ok {
		return volume.ErrNotFound
	}
	delete(f.files, name)
	for fd, h := range f.handles {
		if h.name == name {
			delete(f.handles, fd)
		}
	}
	return nil
}

// Rename moves oldName to newName. The target must not exist.
func (f *FS) Rename(oldName, newName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.files[oldName]
	if !ok {
		return volume.ErrNotFound
	}
	if newName == "" {
		return volume.ErrInvalidName
	}
	if _, taken := f.files[newName]; taken {
		return volume.ErrExists
	}

	f.files[newName] = data
	delete(f.files, oldName)
	for _, h := range f.handles {
		if h.name == oldName {
			h.name = newName
		}
	}
	return nil
}

// Stat returns the entry for name.
func (f *FS) Stat(name string) (volume.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.files[name]
	if !ok {
		return volume.Entry{}, volume.ErrNotFound
	}
	return volume.Entry{Name: name, Size: int64(len(data))}, nil
}

// Format erases every file and invalidates all descriptors.
func (f *FS) Format() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.files = make(map[string][]byte)
	f.handles = make(map[volume.Descriptor]*openFile)
	return nil
}

// Info reports page-rounded usage and capacity.
func (f *FS) Info() (uint64, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.usedExcept(""), f.config.Capacity, nil
}

// List returns all files sorted by name.
func (f *FS) List() ([]volume.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	entries := make([]volume.Entry, 0, len(f.files))
	for name, data := range f.files {
		entries = append(entries, volume.Entry{Name: name, Size: int64(len(data))})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Config reports the physical placement of the volume.
func (f *FS) Config() volume.PhysicalConfig {
	return volume.PhysicalConfig{
		Address: f.config.Address,
		Size:    uint32(f.config.Capacity),
	}
}

func (f *FS) handle(fd volume.Descriptor) (*openFile, error) {
	h, ok := f.handles[fd]
	if !ok {
		return nil, volume.ErrBadDescriptor
	}
	return h, nil
}

// room returns the largest size name may grow to, capped at want.
func (f *FS) room(name string, want int64) int64 {
	others := f.usedExcept(name)
	if others >= f.config.Capacity {
		return 0
	}
	free := f.config.Capacity - others
	// Whole pages only.
	limit := int64(free - free%f.config.PageSize)
	if want < limit {
		return want
	}
	return limit
}

func (f *FS) usedExcept(skip string) uint64 {
	var used uint64
	for name, data := range f.files {
		if name == skip {
			continue
		}
		used += f.pages(uint64(len(data)))
	}
	return used
}

func (f *FS) pages(size uint64) uint64 {
	ps := f.config.PageSize
	return (size + ps - 1) / ps * ps
}
