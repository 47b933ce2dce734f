package file

import (
	"fmt"

	"github.com/GriffinCanCode/flashfile/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/flashfile/internal/volume"
)

// Write writes p to the open file in one driver call. Anything short of
// len(p) bytes is a failure and is not retried.
func (m *Manager) Write(p []byte) (err error) {
	timer := monitoring.NewTimer(m.metrics, "write")
	defer func() { timer.Stop(outcome(err)) }()

	h, err := m.requireOpen("write")
	if err != nil {
		return err
	}
	return m.write(h, "write", p)
}

// WriteLine writes p followed by LineTerminator. A short write of p skips
// the terminator.
func (m *Manager) WriteLine(p []byte) (err error) {
	timer := monitoring.NewTimer(m.metrics, "writeline")
	defer func() { timer.Stop(outcome(err)) }()

	h, err := m.requireOpen("writeline")
	if err != nil {
		return err
	}
	if err := m.write(h, "writeline", p); err != nil {
		return err
	}
	return m.write(h, "writeline", []byte{LineTerminator})
}

func (m *Manager) write(h *handle, op string, p []byte) error {
	n, err := m.driver.Write(h.fd, p)
	m.metrics.AddBytesWritten(n)
	if n == len(p) {
		return nil
	}

	short := fmt.Errorf("%w (%d of %d bytes)", ErrShortWrite, n, len(p))
	if err != nil {
		short = fmt.Errorf("%w (%d of %d bytes): %w", ErrShortWrite, n, len(p), err)
	}
	return &IOError{Op: op, Name: h.name, Err: short}
}

// Seek repositions the open file and returns the resulting position.
func (m *Manager) Seek(whence volume.Whence, offset int64) (pos int64, err error) {
	timer := monitoring.NewTimer(m.metrics, "seek")
	defer func() { timer.Stop(outcome(err)) }()

	h, err := m.requireOpen("seek")
	if err != nil {
		return 0, err
	}
	if _, err := m.driver.Seek(h.fd, offset, whence); err != nil {
		return 0, &IOError{Op: "seek", Name: h.name, Err: err}
	}
	pos, err = m.driver.Tell(h.fd)
	if err != nil {
		return 0, &IOError{Op: "seek", Name: h.name, Err: err}
	}
	return pos, nil
}

// Flush asks the driver to persist buffered data of the open file.
func (m *Manager) Flush() (err error) {
	timer := monitoring.NewTimer(m.metrics, "flush")
	defer func() { timer.Stop(outcome(err)) }()

	h, err := m.requireOpen("flush")
	if err != nil {
		return err
	}
	if err := m.driver.Flush(h.fd); err != nil {
		return &IOError{Op: "flush", Name: h.name, Err: err}
	}
	return nil
}
