package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/dealgrid/playrun/pkg/cmd"
	"github.com/dealgrid/playrun/pkg/config"
	"github.com/dealgrid/playrun/pkg/log"
)

func ValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Validate play definition files without persisting them",
		ArgsUsage: "[play.yaml...]",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:  "play-file",
				Usage: "Play definition file to validate (repeatable)",
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

			logger := log.WithModule("validate")
			paths := append(command.StringSlice("play-file"), command.Args().Slice()...)

			if len(paths) == 0 {
				return fmt.Errorf("at least one play file is required")
			}

			reg := cmd.NewRegistry(logger, nil)

			for _, path := range paths {
				play, err := config.LoadPlay(path)
				if err != nil {
					return err
				}

				for _, node := range play.Nodes {
					if !reg.IsRegistered(node.StepType) {
						logger.Warn("Unknown step type, config not checked",
							"play_id", play.ID, "node_id", node.ID, "step_type", node.StepType)

						continue
					}

					if err := reg.ValidateNodeConfig(node.StepType, node.Config); err != nil {
						return fmt.Errorf("%s: node %q: %w", path, node.ID, err)
					}
				}

				logger.Info("Play is valid", "path", path, "play_id", play.ID)
			}

			return nil
		},
	}
}
