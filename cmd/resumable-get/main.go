package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/vertextoedge/resumable-http/internal/cmd"
)

// Set via -ldflags at build time
var (
	version   = "dev"
	commit    = "HEAD"
	buildDate = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.SetVersionInfo(version, commit, buildDate)
	if err := cmd.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
