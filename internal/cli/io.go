package cli

import (
	"fmt"
	"io"

	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
)

// Output formats accepted by --output.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// IO carries command output and the selected output format.
type IO struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	format string
}

// NewIO creates a new IO writing text output.
func NewIO(in io.Reader, out, errOut io.Writer) *IO {
	return &IO{in: in, out: out, errOut: errOut, format: FormatText}
}

// Println writes to stdout.
func (o *IO) Println(a ...any) {
	_, _ = fmt.Fprintln(o.out, a...)
}

// Printf writes formatted output to stdout.
func (o *IO) Printf(format string, a ...any) {
	_, _ = fmt.Fprintf(o.out, format, a...)
}

// ErrPrintln writes to stderr.
func (o *IO) ErrPrintln(a ...any) {
	_, _ = fmt.Fprintln(o.errOut, a...)
}

// Structured reports whether output goes through Emit rather than text.
func (o *IO) Structured() bool {
	return o.format != FormatText
}

// Emit writes v in the selected structured format.
func (o *IO) Emit(v any) error {
	var (
		data []byte
		err  error
	)
	switch o.format {
	case FormatYAML:
		data, err = yaml.Marshal(v)
	default:
		data, err = sonic.ConfigStd.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", o.format, err)
	}
	_, err = o.out.Write(data)
	return err
}

func validFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
		return true
	}
	return false
}
