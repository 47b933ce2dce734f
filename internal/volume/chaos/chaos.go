// Package chaos wraps a volume.Driver and injects driver failures.
//
// Faults are drawn from a seeded RNG so runs are reproducible. Injected
// errors wrap ErrInjected so tests can tell them apart from real driver
// errors.
package chaos

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/flashfile/internal/volume"
)

// ErrInjected marks a failure produced by the wrapper.
var ErrInjected = errors.New("chaos: injected fault")

// Config controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
type Config struct {
	OpenFailRate     float64 // Fail Open
	ReadFailRate     float64 // Fail Read entirely
	PartialReadRate  float64 // Return fewer bytes than available
	WriteFailRate    float64 // Fail Write without writing
	PartialWriteRate float64 // Write a prefix then fail
	SeekFailRate     float64 // Fail Seek
	FlushFailRate    float64 // Fail Flush
	RenameFailRate   float64 // Fail Rename
	RemoveFailRate   float64 // Fail Remove
}

// DefaultConfig returns a config with modest fault rates.
func DefaultConfig() Config {
	return Config{
		OpenFailRate:     0.02,
		ReadFailRate:     0.02,
		PartialReadRate:  0.02,
		WriteFailRate:    0.02,
		PartialWriteRate: 0.03,
		SeekFailRate:     0.02,
		FlushFailRate:    0.02,
		RenameFailRate:   0.02,
		RemoveFailRate:   0.02,
	}
}

// Mode controls whether faults are injected.
type Mode uint8

const (
	// ModePassthrough forwards every call untouched.
	ModePassthrough Mode = iota
	// ModeInject applies the configured fault rates.
	ModeInject
)

// Stats contains counts of injected faults.
type Stats struct {
	OpenFails     int64
	ReadFails     int64
	PartialReads  int64
	WriteFails    int64
	PartialWrites int64
	SeekFails     int64
	FlushFails    int64
	RenameFails   int64
	RemoveFails   int64
}

// Total sums every counter.
func (s Stats) Total() int64 {
	return s.OpenFails + s.ReadFails + s.PartialReads + s.WriteFails +
		s.PartialWrites + s.SeekFails + s.FlushFails + s.RenameFails + s.RemoveFails
}

// Driver injects faults into an underlying volume.Driver.
type Driver struct {
	inner  volume.Driver
	config Config
	mode   atomic.Uint32

	rngMu sync.Mutex
	rng   *rand.Rand

	openFails     atomic.Int64
	readFails     atomic.Int64
	partialReads  atomic.Int64
	writeFails    atomic.Int64
	partialWrites atomic.Int64
	seekFails     atomic.Int64
	flushFails    atomic.Int64
	renameFails   atomic.Int64
	removeFails   atomic.Int64
}

var _ volume.Driver = (*Driver)(nil)

// New wraps inner. The wrapper starts in ModeInject.
func New(inner volume.Driver, seed int64, config Config) *Driver {
	d := &Driver{
		inner:  inner,
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
	d.SetMode(ModeInject)
	return d
}

// SetMode switches between passthrough and injection.
func (d *Driver) SetMode(m Mode) { d.mode.Store(uint32(m)) }

// Stats returns the current fault counts.
func (d *Driver) Stats() Stats {
	return Stats{
		OpenFails:     d.openFails.Load(),
		ReadFails:     d.readFails.Load(),
		PartialReads:  d.partialReads.Load(),
		WriteFails:    d.writeFails.Load(),
		PartialWrites: d.partialWrites.Load(),
		SeekFails:     d.seekFails.Load(),
		FlushFails:    d.flushFails.Load(),
		RenameFails:   d.renameFails.Load(),
		RemoveFails:   d.removeFails.Load(),
	}
}

func (d *Driver) Open(name string, flags volume.Flag) (volume.Descriptor, error) {
	if d.roll(d.config.OpenFailRate) {
		d.openFails.Add(1)
		return 0, ErrInjected
	}
	return d.inner.Open(name, flags)
}

func (d *Driver) Close(fd volume.Descriptor) error {
	return d.inner.Close(fd)
}

func (d *Driver) Read(fd volume.Descriptor, p []byte) (int, error) {
	if d.roll(d.config.ReadFailRate) {
		d.readFails.Add(1)
		return 0, ErrInjected
	}
	if len(p) > 1 && d.roll(d.config.PartialReadRate) {
		d.partialReads.Add(1)
		p = p[:d.intn(len(p)-1)+1]
	}
	return d.inner.Read(fd, p)
}

func (d *Driver) Write(fd volume.Descriptor, p []byte) (int, error) {
	if d.roll(d.config.WriteFailRate) {
		d.writeFails.Add(1)
		return 0, ErrInjected
	}
	if len(p) > 1 && d.roll(d.config.PartialWriteRate) {
		d.partialWrites.Add(1)
		n, err := d.inner.Write(fd, p[:d.intn(len(p)-1)+1])
		if err != nil {
			return n, err
		}
		return n, ErrInjected
	}
	return d.inner.Write(fd, p)
}

func (d *Driver) Seek(fd volume.Descriptor, offset int64, whence volume.Whence) (int64, error) {
	if d.roll(d.config.SeekFailRate) {
		d.seekFails.Add(1)
		return 0, ErrInjected
	}
	return d.inner.Seek(fd, offset, whence)
}

func (d *Driver) Tell(fd volume.Descriptor) (int64, error) {
	return d.inner.Tell(fd)
}

func (d *Driver) Flush(fd volume.Descriptor) error {
	if d.roll(d.config.FlushFailRate) {
		d.flushFails.Add(1)
		return ErrInjected
	}
	return d.inner.Flush(fd)
}

func (d *Driver) Remove(name string) error {
	if d.roll(d.config.RemoveFailRate) {
		d.removeFails.Add(1)
		return ErrInjected
	}
	return d.inner.Remove(name)
}

func (d *Driver) Rename(oldName, newName string) error {
	if d.roll(d.config.RenameFailRate) {
		d.renameFails.Add(1)
		return ErrInjected
	}
	return d.inner.Rename(oldName, newName)
}

func (d *Driver) Stat(name string) (volume.Entry, error) { return d.inner.Stat(name) }

func (d *Driver) Format() error { return d.inner.Format() }

func (d *Driver) Info() (uint64, uint64, error) { return d.inner.Info() }

func (d *Driver) List() ([]volume.Entry, error) { return d.inner.List() }

func (d *Driver) Config() volume.PhysicalConfig { return d.inner.Config() }

func (d *Driver) roll(rate float64) bool {
	if Mode(d.mode.Load()) != ModeInject || rate <= 0 {
		return false
	}
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.rng.Float64() < rate
}

func (d *Driver) intn(n int) int {
	d.rngMu.Lock()
	defer d.rngMu.Unlock()
	return d.rng.Intn(n)
}
