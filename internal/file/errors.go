package file

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidName     = errors.New("filename invalid")
	ErrInvalidArgument = errors.New("wrong arg range")
	ErrNoOpenFile      = errors.New("open a file first")
	ErrShortWrite      = errors.New("short write")
	ErrFormatFailed    = errors.New("failed to format file system")
	ErrVolumeFailed    = errors.New("file system failed")
	ErrIntegrity       = errors.New("file system error")
)

// AdviceReinitialize is attached to fatal volume errors.
const AdviceReinitialize = "the file system might be compromised; re-flash or reinitialize the volume image"

// ArgError reports an invalid caller argument. Position is 1-based.
type ArgError struct {
	Op       string
	Position int
	Err      error
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("bad argument #%d to '%s' (%v)", e.Position, e.Op, e.Err)
}

func (e *ArgError) Unwrap() error { return e.Err }

// IOError reports a driver-level failure.
type IOError struct {
	Op   string
	Name string
	Err  error
}

func (e *IOError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Name, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// FatalError reports a condition that leaves the volume in doubt.
type FatalError struct {
	Op     string
	Advice string
	Err    error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// Kind groups errors by how callers must surface them.
type Kind int

const (
	KindNone Kind = iota
	KindArgument
	KindPrecondition
	KindIO
	KindFatal
)

// String returns the metrics label of the kind.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "ok"
	case KindArgument:
		return "argument"
	case KindPrecondition:
		return "precondition"
	case KindIO:
		return "io"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps err onto a Kind. Unrecognised errors count as KindIO.
func Classify(err error) Kind {
	var (
		argErr   *ArgError
		fatalErr *FatalError
	)
	switch {
	case err == nil:
		return KindNone
	case errors.As(err, &fatalErr):
		return KindFatal
	case errors.As(err, &argErr):
		return KindArgument
	case errors.Is(err, ErrNoOpenFile):
		return KindPrecondition
	default:
		return KindIO
	}
}
