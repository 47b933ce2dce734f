// Package hostfs stores a flat volume as regular files in one host
// directory. Sub-directories are ignored; names may not contain path
// separators.
package hostfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/charlievieth/fastwalk"

	"github.com/GriffinCanCode/flashfile/internal/volume"
)

// Config defines where the volume lives and how large it claims to be.
type Config struct {
	Dir      string // Host directory holding the files
	Capacity uint64 // Reported total bytes
	Address  uint32 // Reported physical start address
}

type openFile struct {
	file  *os.File
	name  string
	flags volume.Flag
}

// FS is a host-directory volume.
type FS struct {
	config Config

	mu      sync.Mutex
	handles map[volume.Descriptor]*openFile
	nextFD  volume.Descriptor
}

var _ volume.Driver = (*FS)(nil)

// New opens the volume rooted at config.Dir, creating the directory if needed.
func New(config Config) (*FS, error) {
	if config.Dir == "" {
		return nil, fmt.Errorf("hostfs: directory required")
	}
	if err := os.MkdirAll(config.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("hostfs: create volume dir: %w", err)
	}
	return &FS{
		config:  config,
		handles: make(map[volume.Descriptor]*openFile),
		nextFD:  1,
	}, nil
}

// Open opens name with the given flags.
func (h *FS) Open(name string, flags volume.Flag) (volume.Descriptor, error) {
	path, err := h.path(name)
	if err != nil {
		return 0, err
	}

	f, err := os.OpenFile(path, osFlags(flags), 0o644)
	if err != nil {
		return 0, mapErr(err)
	}
	// a read-only open succeeds on a sub-directory, which is not a volume file
	info, err := f.Stat()
	if err != nil || !info.Mode().IsRegular() {
		_ = f.Close()
		if err != nil {
			return 0, mapErr(err)
		}
		return 0, volume.ErrNotFound
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	fd := h.nextFD
	h.nextFD++
	h.handles[fd] = &openFile{file: f, name: name, flags: flags}
	return fd, nil
}

// Close closes fd.
func (h *FS) Close(fd volume.Descriptor) error {
	h.mu.Lock()
	of, ok := h.handles[fd]
	delete(h.handles, fd)
	h.mu.Unlock()

	if !ok {
		return volume.ErrBadDescriptor
	}
	return of.file.Close()
}

// Read reads from the current position of fd.
func (h *FS) Read(fd volume.Descriptor, p []byte) (int, error) {
	of, err := h.handle(fd)
	if err != nil {
		return 0, err
	}
	if !of.flags.Has(volume.FlagRead) {
		return 0, volume.ErrWriteOnly
	}
	n, err := of.file.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, mapErr(err)
	}
	return n, err
}

// Write writes p at the current position of fd.
func (h *FS) Write(fd volume.Descriptor, p []byte) (int, error) {
	of, err := h.handle(fd)
	if err != nil {
		return 0, err
	}
	if !of.flags.Has(volume.FlagWrite) {
		return 0, volume.ErrReadOnly
	}
	n, err := of.file.Write(p)
	return n, mapErr(err)
}

// Seek repositions fd.
func (h *FS) Seek(fd volume.Descriptor, offset int64, whence volume.Whence) (int64, error) {
	of, err := h.handle(fd)
	if err != nil {
		return 0, err
	}

	var w int
	switch whence {
	case volume.SeekSet:
		w = io.SeekStart
	case volume.SeekCur:
		w = io.SeekCurrent
	case volume.SeekEnd:
		w = io.SeekEnd
	default:
		return 0, volume.ErrInvalidSeek
	}

	pos, err := of.file.Seek(offset, w)
	if err != nil {
		return 0, volume.ErrInvalidSeek
	}
	return pos, nil
}

// Tell reports the current position of fd.
func (h *FS) Tell(fd volume.Descriptor) (int64, error) {
	return h.Seek(fd, 0, volume.SeekCur)
}

// Flush syncs fd to stable storage.
func (h *FS) Flush(fd volume.Descriptor) error {
	of, err := h.handle(fd)
	if err != nil {
		return err
	}
	return mapErr(of.file.Sync())
}

// Remove deletes name.
func (h *FS) Remove(name string) error {
	path, err := h.path(name)
	if err != nil {
		return err
	}
	return mapErr(os.Remove(path))
}

// Rename moves oldName to newName; the target must not exist.
func (h *FS) Rename(oldName, newName string) error {
	oldPath, err := h.path(oldName)
	if err != nil {
		return err
	}
	newPath, err := h.path(newName)
	if err != nil {
		return err
	}
	if _, err := os.Lstat(newPath); err == nil {
		return volume.ErrExists
	}
	return mapErr(os.Rename(oldPath, newPath))
}

// Stat returns the entry for name.
func (h *FS) Stat(name string) (volume.Entry, error) {
	path, err := h.path(name)
	if err != nil {
		return volume.Entry{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return volume.Entry{}, mapErr(err)
	}
	if !info.Mode().IsRegular() {
		return volume.Entry{}, volume.ErrNotFound
	}
	return volume.Entry{Name: name, Size: info.Size()}, nil
}

// Format closes every descriptor and deletes every file in the volume.
func (h *FS) Format() error {
	var closeErrs []error
	h.mu.Lock()
	for fd, of := range h.handles {
		if err := of.file.Close(); err != nil {
			closeErrs = append(closeErrs, fmt.Errorf("format: close %s: %w", of.name, err))
		}
		delete(h.handles, fd)
	}
	h.mu.Unlock()

	entries, err := h.List()
	if err != nil {
		return errors.Join(append(closeErrs, err)...)
	}
	for _, e := range entries {
		if err := os.Remove(filepath.Join(h.config.Dir, e.Name)); err != nil {
			return errors.Join(append(closeErrs, fmt.Errorf("format %s: %w", e.Name, err))...)
		}
	}
	return errors.Join(closeErrs...)
}

// Info sums file sizes against the configured capacity.
func (h *FS) Info() (uint64, uint64, error) {
	entries, err := h.List()
	if err != nil {
		return 0, 0, err
	}
	var used uint64
	for _, e := range entries {
		used += uint64(e.Size)
	}
	return used, h.config.Capacity, nil
}

// List enumerates regular files at the volume root.
func (h *FS) List() ([]volume.Entry, error) {
	root := filepath.Clean(h.config.Dir)

	var (
		mu      sync.Mutex
		entries []volume.Entry
	)

	conf := fastwalk.Config{Follow: false}
	err := fastwalk.Walk(&conf, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if p == root {
				return nil
			}
			return filepath.SkipDir
		}
		if !d.Type().IsRegular() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		mu.Lock()
		entries = append(entries, volume.Entry{Name: d.Name(), Size: info.Size()})
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list volume: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Config reports the configured physical placement.
func (h *FS) Config() volume.PhysicalConfig {
	return volume.PhysicalConfig{
		Address: h.config.Address,
		Size:    uint32(h.config.Capacity),
	}
}

func (h *FS) handle(fd volume.Descriptor) (*openFile, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	of, ok := h.handles[fd]
	if !ok {
		return nil, volume.ErrBadDescriptor
	}
	return of, nil
}

func (h *FS) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, "/\x00") || strings.ContainsRune(name, filepath.Separator) {
		return "", volume.ErrInvalidName
	}
	return filepath.Join(h.config.Dir, name), nil
}

func osFlags(flags volume.Flag) int {
	var out int
	switch {
	case flags.Has(volume.FlagRead | volume.FlagWrite):
		out = os.O_RDWR
	case flags.Has(volume.FlagWrite):
		out = os.O_WRONLY
	default:
		out = os.O_RDONLY
	}
	if flags.Has(volume.FlagCreate) {
		out |= os.O_CREATE
	}
	if flags.Has(volume.FlagTruncate) {
		out |= os.O_TRUNC
	}
	if flags.Has(volume.FlagAppend) {
		out |= os.O_APPEND
	}
	if flags.Has(volume.FlagExclusive) {
		out |= os.O_EXCL
	}
	return out
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", volume.ErrNotFound, err)
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %v", volume.ErrExists, err)
	default:
		return err
	}
}
