package main

import (
	"context"
	"log/slog"

	cli "github.com/urfave/cli/v3"

	"github.com/dealgrid/playrun/pkg/cmd"
	"github.com/dealgrid/playrun/pkg/config"
	"github.com/dealgrid/playrun/pkg/log"
	"github.com/dealgrid/playrun/pkg/persistence"
	"github.com/dealgrid/playrun/pkg/registry"
	"github.com/dealgrid/playrun/pkg/services"
)

func SeedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Load play definitions from a directory into persistence",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "plays-dir",
				Usage:    "Directory of play definition YAML files",
				Required: true,
				Sources:  cli.EnvVars("PLAYS_DIR"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("seed")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, nil)

			return seedPlays(ctx, logger, persistence, registry, command.String("plays-dir"))
		},
	}
}

func seedPlays(ctx context.Context, logger *slog.Logger, p persistence.Persistence, reg *registry.Registry, dir string) error {
	plays, err := config.LoadPlaysDir(dir)
	if err != nil {
		return err
	}

	playService := services.NewPlay(p, reg)

	for _, play := range plays {
		if err := playService.Save(ctx, play); err != nil {
			return err
		}

		logger.Info("Seeded play", "play_id", play.ID, "name", play.Name)
	}

	return nil
}
