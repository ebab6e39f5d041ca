package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"watchpost/internal/app"
	"watchpost/internal/config"
)

func main() {
	// The only argument is the optional mode word "dry".
	dry := len(os.Args) > 1 && os.Args[1] == "dry"

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx, config.PathFromEnv(), app.Options{DryRun: dry, Stdout: os.Stdout}); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		cancel()
		os.Exit(1)
	}
}
