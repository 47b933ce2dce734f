package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/peterh/liner"

	"github.com/GriffinCanCode/flashfile/internal/file"
	"github.com/GriffinCanCode/flashfile/internal/server"
)

const historyFile = ".flashfile_history"

// prompter is the part of liner.State the REPL needs.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// lineReader reads piped input one line per prompt.
type lineReader struct {
	scanner *bufio.Scanner
}

func (r *lineReader) Prompt(string) (string, error) {
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return r.scanner.Text(), nil
}

func (r *lineReader) AppendHistory(string) {}

var fileFuncs = []string{
	"file.open(", "file.close()", "file.read(", "file.readline()",
	"file.write(", "file.writeline(", "file.seek(", "file.flush()",
	"file.remove(", "file.rename(", "file.exists(", "file.list(",
	"file.format()", "file.fsinfo()", "file.fscfg()",
}

var replCommands = []string{".help", ".ls", ".info", ".reset", ".exit"}

func complete(line string) []string {
	var out []string
	for _, c := range append(fileFuncs, replCommands...) {
		if strings.HasPrefix(c, line) {
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, historyFile)
}

// saveHistory replaces the history file in one step so two sessions
// exiting together cannot interleave their writes.
func saveHistory(path string, h interface{ WriteHistory(io.Writer) (int, error) }) {
	var buf bytes.Buffer
	if _, err := h.WriteHistory(&buf); err != nil {
		return
	}
	_ = atomic.WriteFile(path, &buf)
}

func replCmd(e *env) *Command {
	return &Command{
		Usage: "repl",
		Short: "Interactive script shell",
		Long: "Evaluate one script line at a time against a live volume.\n" +
			"Commands: .help .ls .info .reset .exit",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if err := e.local("repl"); err != nil {
				return err
			}
			return e.withStack(func(s *server.Stack) error {
				if o.in != os.Stdin {
					return repl(ctx, o, s, &lineReader{scanner: bufio.NewScanner(o.in)}, "")
				}

				line := liner.NewLiner()
				defer line.Close()
				line.SetCtrlCAborts(true)
				line.SetCompleter(complete)

				path := historyPath()
				if path != "" {
					if f, err := os.Open(path); err == nil {
						_, _ = line.ReadHistory(f)
						_ = f.Close()
					}
				}

				err := repl(ctx, o, s, line, "> ")

				if path != "" {
					saveHistory(path, line)
				}
				return err
			})
		},
	}
}

// repl evaluates lines until EOF, an abort or .exit. Script errors are
// printed and the loop continues.
func repl(ctx context.Context, o *IO, s *server.Stack, p prompter, prompt string) error {
	for {
		input, err := p.Prompt(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		p.AppendHistory(input)

		switch input {
		case ".exit", "exit", "quit":
			return nil
		case ".help":
			o.Println("Each line runs as a script; the global 'file' holds the API.")
			o.Println("Commands:", strings.Join(replCommands, " "))
		case ".ls":
			err = s.Runtime.Do(func(m *file.Manager) error {
				files, err := m.List()
				if err == nil {
					printFiles(o, files)
				}
				return err
			})
		case ".info":
			err = s.Runtime.Do(func(m *file.Manager) error {
				return showInfo(o, m)
			})
		case ".reset":
			err = s.Runtime.Reset()
			if err == nil {
				o.Println("runtime reset")
			}
		default:
			err = execute(ctx, o, s.Runtime, input)
		}

		if err != nil {
			o.ErrPrintln("error:", err)
		}
	}
}
