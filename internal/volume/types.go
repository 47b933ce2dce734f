package volume

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("file not found")
	ErrExists        = errors.New("file already exists")
	ErrNoSpace       = errors.New("volume full")
	ErrBadDescriptor = errors.New("bad file descriptor")
	ErrInvalidName   = errors.New("invalid file name")
	ErrReadOnly      = errors.New("descriptor not open for writing")
	ErrWriteOnly     = errors.New("descriptor not open for reading")
	ErrInvalidSeek   = errors.New("invalid seek")
)

// Descriptor identifies an open file inside a Driver.
type Descriptor int

// Flag is the set of access bits passed to Driver.Open.
type Flag uint8

const (
	FlagRead Flag = 1 << iota
	FlagWrite
	FlagCreate
	FlagTruncate
	FlagAppend
	FlagExclusive
)

// Has reports whether all bits of other are set.
func (f Flag) Has(other Flag) bool {
	return f&other == other
}

// String renders the flag set for logs.
func (f Flag) String() string {
	names := []struct {
		bit  Flag
		name string
	}{
		{FlagRead, "read"},
		{FlagWrite, "write"},
		{FlagCreate, "create"},
		{FlagTruncate, "truncate"},
		{FlagAppend, "append"},
		{FlagExclusive, "exclusive"},
	}

	out := ""
	for _, n := range names {
		if f.Has(n.bit) {
			if out != "" {
				out += "|"
			}
			out += n.name
		}
	}
	if out == "" {
		return "none"
	}
	return out
}

// ParseMode translates an fopen-style mode string into driver flags.
// Unknown modes open read-only.
func ParseMode(mode string) Flag {
	switch mode {
	case "w":
		return FlagWrite | FlagCreate | FlagTruncate
	case "a":
		return FlagWrite | FlagCreate | FlagAppend
	case "r+":
		return FlagRead | FlagWrite
	case "w+":
		return FlagRead | FlagWrite | FlagCreate | FlagTruncate
	case "a+":
		return FlagRead | FlagWrite | FlagCreate | FlagAppend
	default:
		return FlagRead
	}
}

// Whence selects the origin of a seek.
type Whence int

const (
	SeekSet Whence = iota
	SeekCur
	SeekEnd
)

var whenceNames = map[string]Whence{
	"set": SeekSet,
	"cur": SeekCur,
	"end": SeekEnd,
}

// ParseWhence maps "set", "cur" and "end" onto a Whence.
func ParseWhence(name string) (Whence, error) {
	w, ok := whenceNames[name]
	if !ok {
		return 0, fmt.Errorf("invalid option '%s'", name)
	}
	return w, nil
}

// String returns the scripting name of the whence.
func (w Whence) String() string {
	switch w {
	case SeekSet:
		return "set"
	case SeekCur:
		return "cur"
	case SeekEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Entry is one file on the volume.
type Entry struct {
	Name string `json:"name" yaml:"name"`
	Size int64  `json:"size" yaml:"size"`
}

// PhysicalConfig describes where the volume lives on flash.
type PhysicalConfig struct {
	Address uint32 `json:"address" yaml:"address"`
	Size    uint32 `json:"size" yaml:"size"`
}

// Driver is the primitive filesystem interface consumed by the file layer.
type Driver interface {
	Open(name string, flags Flag) (Descriptor, error)
	Close(fd Descriptor) error
	// Read returns 0, io.EOF once the descriptor is positioned at end of file.
	Read(fd Descriptor, p []byte) (int, error)
	// Write may return fewer bytes than len(p) together with an error.
	Write(fd Descriptor, p []byte) (int, error)
	Seek(fd Descriptor, offset int64, whence Whence) (int64, error)
	Tell(fd Descriptor) (int64, error)
	Flush(fd Descriptor) error
	Remove(name string) error
	Rename(oldName, newName string) error
	Stat(name string) (Entry, error)
	Format() error
	Info() (used, total uint64, err error)
	List() ([]Entry, error)
	Config() PhysicalConfig
}
