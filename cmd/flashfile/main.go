package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/GriffinCanCode/flashfile/internal/cli"
)

func main() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	os.Exit(cli.Run(os.Stdin, os.Stdout, os.Stderr, os.Args, sigCh))
}
