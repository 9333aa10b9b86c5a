package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/dealgrid/playrun/pkg/cmd"
	"github.com/dealgrid/playrun/pkg/engine"
	"github.com/dealgrid/playrun/pkg/log"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/services"
)

// AdvanceCommand runs a single advance pass for one workstream and prints
// the resulting execution outcome as JSON.
func AdvanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "advance",
		Usage: "Advance one workstream's play and print the outcome",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workstream-id",
				Usage:    "Workstream to advance",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:  "user-id",
				Usage: "User recorded on the activity trail",
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

			logger := log.WithModule("advance")

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
			eng := engine.New(persistence, registry, nil, logger)
			workstreams := services.NewWorkstream(persistence, eng)

			var user *models.CurrentUser
			if userID := command.String("user-id"); userID != "" {
				user = &models.CurrentUser{ID: userID}
			}

			outcome, err := workstreams.Advance(ctx, command.String("workstream-id"), user)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")

			if err := encoder.Encode(outcome); err != nil {
				return fmt.Errorf("encoding outcome: %w", err)
			}

			return nil
		},
	}
}
