package file

import (
	"bytes"
	"errors"
	"io"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/flashfile/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/flashfile/internal/volume"
)

// NoTerminator disables terminator scanning in a ReadRequest.
const NoTerminator = -1

// ReadRequest selects between a length-limited read and a read up to a
// terminator byte.
type ReadRequest struct {
	// Length caps the read. Zero, negative, or larger than the chunk size
	// means one full chunk.
	Length int
	// Terminator is the byte value to stop after. Values outside 0..255
	// fall back to a length-limited read.
	Terminator int
}

// ByLength reads at most n bytes.
func ByLength(n int) ReadRequest {
	return ReadRequest{Length: n, Terminator: NoTerminator}
}

// UntilByte reads up to and including the first occurrence of term
// within one chunk.
func UntilByte(term int) ReadRequest {
	return ReadRequest{Terminator: term}
}

// Line reads up to and including the next newline within one chunk.
func Line() ReadRequest {
	return UntilByte(LineTerminator)
}

// normalize returns the clamped read length and the effective terminator.
func (r ReadRequest) normalize(chunk int) (int, int) {
	term := r.Terminator
	if term < 0 || term > 0xff {
		term = NoTerminator
	}

	n := r.Length
	if term != NoTerminator || n <= 0 || n > chunk {
		n = chunk
	}
	return n, term
}

// Read performs a single buffered read on the open file. It returns io.EOF
// with no data when nothing could be read.
func (m *Manager) Read(req ReadRequest) ([]byte, error) {
	return m.read("read", req)
}

// ReadLine is Read(Line()).
func (m *Manager) ReadLine() ([]byte, error) {
	return m.read("readline", Line())
}

func (m *Manager) read(op string, req ReadRequest) (data []byte, err error) {
	timer := monitoring.NewTimer(m.metrics, op)
	defer func() { timer.Stop(outcome(err)) }()

	h, err := m.requireOpen(op)
	if err != nil {
		return nil, err
	}

	limit, term := req.normalize(m.config.ChunkSize)
	buf := m.chunk[:limit]

	got, readErr := m.driver.Read(h.fd, buf)
	if got < 0 {
		got = 0
	}
	if got > limit {
		got = limit
	}

	end := got
	if term != NoTerminator {
		if i := bytes.IndexByte(buf[:got], byte(term)); i >= 0 {
			end = i + 1
		}
	}

	if end == 0 {
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, &IOError{Op: op, Name: h.name, Err: readErr}
		}
		return nil, io.EOF
	}
	if readErr != nil && !errors.Is(readErr, io.EOF) {
		m.logger.Debug("driver returned data with error",
			zap.String("name", h.name),
			zap.Int("bytes", got),
			zap.Error(readErr))
	}

	// Push back everything after the terminator.
	if excess := got - end; excess > 0 {
		if _, err := m.driver.Seek(h.fd, -int64(excess), volume.SeekCur); err != nil {
			m.logger.Warn("seek-back after terminator failed",
				zap.String("name", h.name),
				zap.Int("excess", excess),
				zap.Error(err))
		}
	}

	m.metrics.AddBytesRead(end)
	return bytes.Clone(buf[:end]), nil
}

// ReadFile opens name, reads it chunk by chunk to the end and closes it.
// Whatever was open before is closed, as with Open.
func (m *Manager) ReadFile(name string) ([]byte, error) {
	if err := m.Open(name, "r"); err != nil {
		return nil, err
	}
	defer m.release("readfile")

	var out []byte
	for {
		chunk, err := m.Read(ByLength(0))
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, chunk...)
	}
}
