package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/flashfile/internal/server"
)

func serveCmd(e *env) *Command {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	host := fs.String("host", "", "Listen host (default from HOST)")
	port := fs.String("port", "", "Listen port (default from PORT)")

	return &Command{
		Flags: fs,
		Usage: "serve [--host <host>] [--port <port>]",
		Short: "Serve the script and volume API over HTTP",
		Exec: func(ctx context.Context, o *IO, _ []string) error {
			if err := e.local("serve"); err != nil {
				return err
			}
			if *host != "" {
				e.cfg.Server.Host = *host
			}
			if *port != "" {
				e.cfg.Server.Port = *port
			}

			srv, err := server.NewServer(e.cfg, e.opts...)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Run()
			}()

			select {
			case <-ctx.Done():
				srv.Logger.Info("Shutting down gracefully...")
				return srv.Close()
			case err := <-errCh:
				if cerr := srv.Close(); cerr != nil {
					srv.Logger.Error("Error during shutdown", zap.Error(cerr))
				}
				return err
			}
		},
	}
}
