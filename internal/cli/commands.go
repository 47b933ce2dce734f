package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/GriffinCanCode/flashfile/internal/client"
	"github.com/GriffinCanCode/flashfile/internal/file"
	"github.com/GriffinCanCode/flashfile/internal/script"
	"github.com/GriffinCanCode/flashfile/internal/server"
)

// scriptOutput is the structured form of one script run.
type scriptOutput struct {
	ID         string            `json:"id" yaml:"id"`
	Value      interface{}       `json:"value" yaml:"value"`
	Console    []script.LogEntry `json:"console" yaml:"console"`
	DurationMs float64           `json:"duration_ms" yaml:"duration_ms"`
}

// volumeReport merges fsinfo and fscfg.
type volumeReport struct {
	file.VolumeInfo `yaml:",inline"`
	Address         uint32 `json:"address" yaml:"address"`
	Size            uint32 `json:"size" yaml:"size"`
}

func runCmd(e *env) *Command {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	eval := fs.StringP("eval", "e", "", "Script source to run instead of files")

	return &Command{
		Flags: fs,
		Usage: "run [-e <script>] [file...]",
		Short: "Run scripts against the volume",
		Long: "Run each script in order against one volume and one file slot.\n" +
			"With no files and no -e, the script is read from stdin.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			sources, err := scriptSources(o, *eval, args)
			if err != nil {
				return err
			}
			if e.remote != nil {
				for _, src := range sources {
					if err := remoteExecute(ctx, o, e.remote, src, e.timeout); err != nil {
						return err
					}
				}
				return nil
			}
			return e.withStack(func(s *server.Stack) error {
				for _, src := range sources {
					if err := execute(ctx, o, s.Runtime, src); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func scriptSources(o *IO, eval string, paths []string) ([]string, error) {
	if eval != "" {
		return []string{eval}, nil
	}
	if len(paths) == 0 {
		if o.in == nil {
			return nil, errors.New("no script given")
		}
		data, err := io.ReadAll(o.in)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return []string{string(data)}, nil
	}

	sources := make([]string, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, string(data))
	}
	return sources, nil
}

// execute runs src and prints console output then the value.
func execute(ctx context.Context, o *IO, rt *script.Runtime, src string) error {
	res, err := rt.Execute(ctx, src)
	var out scriptOutput
	if res != nil {
		out = scriptOutput{
			ID:         res.ID,
			Value:      res.Value,
			Console:    res.Console,
			DurationMs: float64(res.Duration) / float64(time.Millisecond),
		}
	}
	return report(o, out, err)
}

// remoteExecute runs src on a server and prints like execute.
func remoteExecute(ctx context.Context, o *IO, c *client.Client, src string, timeout time.Duration) error {
	res, err := c.Run(ctx, src, timeout)
	if err != nil {
		var out scriptOutput
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			out.Console = apiErr.Body.Console
		}
		return report(o, out, err)
	}
	return report(o, scriptOutput(*res), nil)
}

func report(o *IO, out scriptOutput, err error) error {
	if o.Structured() && err == nil {
		return o.Emit(out)
	}
	for _, entry := range out.Console {
		o.Printf("[%s] %s\n", entry.Level, entry.Message)
	}
	if err != nil {
		printAdvice(o, err)
		return err
	}
	if out.Value != nil {
		o.Println(formatValue(out.Value))
	}
	return nil
}

func formatValue(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func lsCmd(e *env) *Command {
	return &Command{
		Usage: "ls [pattern]",
		Short: "List files with their sizes",
		Long:  "List files, optionally only those matching a glob pattern such as '*.js'.",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) > 1 {
				return errors.New("ls takes at most one pattern")
			}
			var pattern string
			if len(args) == 1 {
				pattern = args[0]
			}

			var files map[string]int64
			var err error
			if e.remote != nil {
				files, err = e.remote.List(ctx, pattern)
			} else {
				err = e.withStack(func(s *server.Stack) error {
					files, err = s.Files.Glob(pattern)
					return err
				})
			}
			if err != nil {
				return err
			}
			if o.Structured() {
				return o.Emit(files)
			}
			printFiles(o, files)
			return nil
		},
	}
}

func printFiles(o *IO, files map[string]int64) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		o.Printf("%8d  %s\n", files[name], name)
	}
}

func catCmd(e *env) *Command {
	return &Command{
		Usage: "cat <name>",
		Short: "Print a file from the volume",
		Exec: func(ctx context.Context, o *IO, args []string) error {
			if len(args) != 1 {
				return errors.New("cat takes exactly one file name")
			}

			var data []byte
			var err error
			if e.remote != nil {
				data, err = e.remote.ReadFile(ctx, args[0])
			} else {
				err = e.withStack(func(s *server.Stack) error {
					data, err = s.Files.ReadFile(args[0])
					return err
				})
			}
			if err != nil {
				return err
			}
			_, err = o.out.Write(data)
			return err
		},
	}
}

func putCmd(e *env) *Command {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	appendMode := fs.BoolP("append", "a", false, "Append instead of truncating")

	return &Command{
		Flags: fs,
		Usage: "put [-a] <local-file> <name>",
		Short: "Copy a local file onto the volume",
		Exec: func(_ context.Context, o *IO, args []string) error {
			if err := e.local("put"); err != nil {
				return err
			}
			if len(args) != 2 {
				return errors.New("put takes a local file and a volume name")
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			mode := "w"
			if *appendMode {
				mode = "a"
			}
			return e.withStack(func(s *server.Stack) error {
				if err := s.Files.Open(args[1], mode); err != nil {
					return err
				}
				chunk := s.Files.Config().ChunkSize
				for off := 0; off < len(data); off += chunk {
					end := min(off+chunk, len(data))
					if err := s.Files.Write(data[off:end]); err != nil {
						return err
					}
				}
				if err := s.Files.Close(); err != nil {
					return err
				}
				o.Printf("%d bytes written to %s\n", len(data), args[1])
				return nil
			})
		},
	}
}

func infoCmd(e *env) *Command {
	return &Command{
		Usage: "info",
		Short: "Show volume usage and placement",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if e.remote != nil {
				info, err := e.remote.Info(ctx)
				if err != nil {
					printAdvice(o, err)
					return err
				}
				phys, err := e.remote.PhysicalConfig(ctx)
				if err != nil {
					return err
				}
				return printReport(o, volumeReport{VolumeInfo: info, Address: phys.Address, Size: phys.Size})
			}
			return e.withStack(func(s *server.Stack) error {
				return showInfo(o, s.Files)
			})
		},
	}
}

func showInfo(o *IO, m *file.Manager) error {
	info, err := m.Info()
	if err != nil {
		printAdvice(o, err)
		return err
	}
	phys := m.PhysicalConfig()
	return printReport(o, volumeReport{VolumeInfo: info, Address: phys.Address, Size: phys.Size})
}

func printReport(o *IO, r volumeReport) error {
	if o.Structured() {
		return o.Emit(r)
	}
	o.Printf("total:   %d\n", r.Total)
	o.Printf("used:    %d\n", r.Used)
	o.Printf("free:    %d\n", r.Free)
	o.Printf("address: 0x%x\n", r.Address)
	o.Printf("size:    %d\n", r.Size)
	return nil
}

// printAdvice tells the user how to recover from a fatal volume error.
func printAdvice(o *IO, err error) {
	var fatal *file.FatalError
	var apiErr *client.APIError
	switch {
	case errors.As(err, &fatal):
		o.ErrPrintln("advice:", fatal.Advice)
	case errors.As(err, &apiErr) && apiErr.Body.Advice != "":
		o.ErrPrintln("advice:", apiErr.Body.Advice)
	}
}

func formatCmd(e *env) *Command {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	yes := fs.BoolP("yes", "y", false, "Confirm erasing every file")

	return &Command{
		Flags: fs,
		Usage: "format --yes",
		Short: "Erase the volume",
		Exec: func(_ context.Context, o *IO, _ []string) error {
			if err := e.local("format"); err != nil {
				return err
			}
			if !*yes {
				return errors.New("refusing to format without --yes")
			}
			return e.withStack(func(s *server.Stack) error {
				if err := s.Files.Format(); err != nil {
					printAdvice(o, err)
					return err
				}
				o.Println("volume formatted")
				return nil
			})
		},
	}
}
