package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vk/queryrun/internal/app"
	"github.com/vk/queryrun/internal/cli"
	"github.com/vk/queryrun/internal/hcl"
	"github.com/vk/queryrun/internal/options"
)

// main is the entrypoint for the queryrun application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error handling.
func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	env := options.EnvFromOS()

	appConfig, shouldExit, err := cli.Parse(args, outW, hcl.NewLoader(env))
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	queryApp, err := app.NewApp(outW, errW, appConfig, app.WithEnv(env))
	if err != nil {
		return err
	}
	defer queryApp.Close()

	return queryApp.Run(ctx)
}
