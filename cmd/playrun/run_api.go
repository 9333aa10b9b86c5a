package main

import (
	"context"

	cli "github.com/urfave/cli/v3"

	"github.com/dealgrid/playrun/pkg/cmd"
	"github.com/dealgrid/playrun/pkg/log"
	"github.com/dealgrid/playrun/pkg/otelhelper"
)

const defaultPort = 9091

func APICommand() *cli.Command {
	return &cli.Command{
		Name:    "api",
		Aliases: []string{"a"},
		Usage:   "Start the workstream API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "plays-dir",
				Usage:   "Directory of play definitions to seed at startup",
				Sources: cli.EnvVars("PLAYS_DIR"),
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

			logger := log.WithModule("api")
			logger.Info("Initializing playrun API")

			tracerProvider, err := otelhelper.InitTracer(ctx, "playrun-api")
			if err != nil {
				return err
			}

			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					logger.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			registry := cmd.NewRegistry(logger, eventBus)

			if dir := command.String("plays-dir"); dir != "" {
				if err := seedPlays(ctx, logger, persistence, registry, dir); err != nil {
					return err
				}
			}

			api := NewAPI(logger, persistence, registry, eventBus)

			return api.Start(int(command.Int("port")))
		},
	}
}
