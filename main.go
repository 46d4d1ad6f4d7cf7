package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AlexLuu1/Memento/config"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "memento:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, argv []string) error {
	cmd := &cli.Command{
		Name:  "memento",
		Usage: "Voice companion that talks about family memories",
		Commands: []*cli.Command{
			serveCommand(),
			backfillCommand(),
		},
	}
	return cmd.Run(ctx, argv)
}

func serveCommand() *cli.Command {
	var (
		cfg   config.Config
		watch bool
	)
	flags := append(config.Flags(&cfg), &cli.BoolFlag{
		Name:        "watch",
		Usage:       "Caption photos dropped into the uploads directory",
		Sources:     cli.EnvVars("MEMENTO_WATCH_UPLOADS"),
		Destination: &watch,
	})

	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(ctx, &cfg, watch)
		},
	}
}

func backfillCommand() *cli.Command {
	var cfg config.Config

	return &cli.Command{
		Name:  "backfill",
		Usage: "Caption stored memories whose photo has no summary yet",
		Flags: config.Flags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := cfg.ValidateBackfill(); err != nil {
				return err
			}
			return backfill(ctx, &cfg)
		},
	}
}
