package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/GriffinCanCode/flashfile/internal/client"
	"github.com/GriffinCanCode/flashfile/internal/infrastructure/config"
	"github.com/GriffinCanCode/flashfile/internal/server"
	"github.com/GriffinCanCode/flashfile/internal/volume/chaos"
)

// globalFlags are accepted before the command name.
type globalFlags struct {
	backend   string
	dir       string
	capacity  uint64
	output    string
	logLevel  string
	timeout   time.Duration
	chaosRate float64
	chaosSeed int64
	config    string
	remote    string
	help      bool
	flags     *flag.FlagSet
}

func newGlobalFlags() *globalFlags {
	g := &globalFlags{}
	fs := flag.NewFlagSet("flashfile", flag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)

	fs.StringVar(&g.backend, "backend", "", "Volume backend: memory or host (default from VOLUME_BACKEND)")
	fs.StringVar(&g.dir, "dir", "", "Host directory backing the volume")
	fs.Uint64Var(&g.capacity, "capacity", 0, "Volume capacity in bytes")
	fs.StringVarP(&g.output, "output", "o", FormatText, "Output format: text, json or yaml")
	fs.StringVar(&g.logLevel, "log-level", "", "Log level (default error, info for serve)")
	fs.DurationVar(&g.timeout, "timeout", 0, "Script timeout")
	fs.Float64Var(&g.chaosRate, "chaos", 0, "Inject driver faults at this rate (0 to 1)")
	fs.Int64Var(&g.chaosSeed, "chaos-seed", 0, "Seed for fault injection (default time based)")
	fs.StringVarP(&g.config, "config", "c", "", "TOML config file applied over the environment")
	fs.StringVar(&g.remote, "remote", "", "Server URL; run, ls, cat and info go to it instead of a local volume")
	fs.BoolVarP(&g.help, "help", "h", false, "Show help")
	g.flags = fs
	return g
}

// apply copies explicitly set flags over the environment configuration.
func (g *globalFlags) apply(cfg *config.Config, command string) error {
	if g.backend != "" {
		cfg.Volume.Backend = g.backend
	}
	if g.dir != "" {
		cfg.Volume.Dir = g.dir
		if g.backend == "" {
			cfg.Volume.Backend = config.BackendHost
		}
	}
	if g.capacity > 0 {
		cfg.Volume.Capacity = g.capacity
	}
	if g.timeout > 0 {
		cfg.Script.Timeout = g.timeout
	}
	switch {
	case g.logLevel != "":
		cfg.Logging.Level = g.logLevel
	case command != "serve":
		cfg.Logging.Level = "error"
	}
	if g.chaosRate < 0 || g.chaosRate > 1 {
		return fmt.Errorf("--chaos must be between 0 and 1, got %g", g.chaosRate)
	}
	return cfg.Validate()
}

func (g *globalFlags) options() []server.Option {
	if g.chaosRate == 0 {
		return nil
	}
	seed := g.chaosSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := g.chaosRate
	return []server.Option{server.WithChaos(seed, chaos.Config{
		OpenFailRate:     r,
		ReadFailRate:     r,
		PartialReadRate:  r,
		WriteFailRate:    r,
		PartialWriteRate: r,
		SeekFailRate:     r,
		FlushFailRate:    r,
		RenameFailRate:   r,
		RemoveFailRate:   r,
	})}
}

func (g *globalFlags) load() (*config.Config, error) {
	if g.config != "" {
		return config.LoadFile(g.config)
	}
	return config.Load()
}

// env is what commands need to build the file stack or reach a server.
type env struct {
	cfg     *config.Config
	opts    []server.Option
	remote  *client.Client
	timeout time.Duration
}

// local fails for commands that only work on a local volume.
func (e *env) local(command string) error {
	if e.remote != nil {
		return fmt.Errorf("%s does not support --remote", command)
	}
	return nil
}

func (e *env) stack() (*server.Stack, error) {
	return server.NewStack(e.cfg, e.opts...)
}

// withStack builds the stack, runs fn and closes the stack, keeping the
// first error.
func (e *env) withStack(fn func(*server.Stack) error) (err error) {
	stack, err := e.stack()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := stack.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()
	return fn(stack)
}

func commands(e *env) []*Command {
	return []*Command{
		runCmd(e),
		replCmd(e),
		serveCmd(e),
		lsCmd(e),
		catCmd(e),
		putCmd(e),
		infoCmd(e),
		formatCmd(e),
	}
}

// Run is the main entry point. args includes the program name. Returns
// exit code.
func Run(in io.Reader, out, errOut io.Writer, args []string, signals <-chan os.Signal) int {
	o := NewIO(in, out, errOut)
	if len(args) < 2 {
		printUsage(o, nil)
		return 0
	}

	g := newGlobalFlags()
	if err := g.flags.Parse(args[1:]); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}
	if !validFormat(g.output) {
		o.ErrPrintln("error: unknown output format:", g.output)
		return 1
	}
	o.format = g.output

	rest := g.flags.Args()
	if g.help || len(rest) == 0 {
		printUsage(o, g.flags)
		return 0
	}

	name := rest[0]
	cfg, err := g.load()
	if err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}
	if err := g.apply(cfg, name); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	// A signal cancels the running script or stops the server.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
	}()

	e := &env{cfg: cfg, opts: g.options(), timeout: g.timeout}
	if g.remote != "" {
		e.remote = client.New(client.DefaultConfig(strings.TrimSuffix(g.remote, "/")))
	}
	for _, cmd := range commands(e) {
		if cmd.Name() == name {
			return cmd.Run(ctx, o, rest[1:])
		}
	}

	o.ErrPrintln("error: unknown command:", name)
	return 1
}

func printUsage(o *IO, global *flag.FlagSet) {
	o.Println("flashfile - single-handle file access over a flash volume")
	o.Println()
	o.Println("Usage: flashfile [global flags] <command> [args]")
	o.Println()
	o.Println("Commands:")
	for _, cmd := range commands(&env{}) {
		o.Println(cmd.HelpLine())
	}
	if global == nil {
		global = newGlobalFlags().flags
	}
	o.Println()
	o.Println("Global flags:")
	var buf strings.Builder
	global.SetOutput(&buf)
	global.PrintDefaults()
	o.Printf("%s", buf.String())
}
