package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dgallion1/docsplit/internal/cli"
	"github.com/dgallion1/docsplit/internal/config"
	"github.com/dgallion1/docsplit/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run serves until ctx is done. Records from the default JSON sink go to
// stdout and logs go to stderr.
func run(ctx context.Context, stdout, stderr io.Writer) int {
	cfg := config.Load(config.New())
	log := logging.New(cfg.LogFormat, cfg.LogLevel, stderr)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		return 1
	}

	if err := cli.Serve(ctx, cfg, log, stdout); err != nil {
		log.Error("server error", "error", err)
		return 1
	}
	return 0
}
