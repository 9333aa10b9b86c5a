package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	cli "github.com/urfave/cli/v3"

	"github.com/dealgrid/playrun/pkg/advancer"
	"github.com/dealgrid/playrun/pkg/cmd"
	"github.com/dealgrid/playrun/pkg/engine"
	"github.com/dealgrid/playrun/pkg/lock"
	"github.com/dealgrid/playrun/pkg/log"
	"github.com/dealgrid/playrun/pkg/otelhelper"
	"github.com/dealgrid/playrun/pkg/services"
)

const defaultLockTTL = 30 * time.Second

func AdvancerCommand() *cli.Command {
	return &cli.Command{
		Name:  "advancer",
		Usage: "Run the periodic workstream advance sweep",
		Flags: []cli.Flag{
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
				Name:    "redis-url",
				Usage:   "Redis URL for workstream locks; empty disables locking",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Sweep cron schedule",
				Value:   advancer.DefaultSchedule,
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
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

			logger := log.WithModule("advancer")
			logger.Info("Initializing playrun advancer")

			tracerProvider, err := otelhelper.InitTracer(ctx, "playrun-advancer")
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

			var locker *lock.WorkstreamLocker

			if redisURL := command.String("redis-url"); redisURL != "" {
				opts, err := redis.ParseURL(redisURL)
				if err != nil {
					return err
				}

				locker = lock.NewWorkstreamLocker(redis.NewClient(opts), defaultLockTTL)
			}

			registry := cmd.NewRegistry(logger, eventBus)
			eng := engine.New(persistence, registry, eventBus, logger)
			workstreams := services.NewWorkstream(persistence, eng)

			adv, err := advancer.New(persistence, workstreams, locker, command.String("schedule"), logger)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := adv.Start(runCtx); err != nil {
				return err
			}

			<-runCtx.Done()

			return adv.Stop(context.Background())
		},
	}
}
