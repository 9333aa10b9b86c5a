package main

import (
	"context"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "playrun",
		Usage:                 "Run plays against workstreams",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			APICommand(),
			AdvanceCommand(),
			AdvancerCommand(),
			ValidateCommand(),
			SeedCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
