// Package main provides the playrun command-line entrypoints.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/dealgrid/playrun/pkg/engine"
	"github.com/dealgrid/playrun/pkg/eventbus"
	"github.com/dealgrid/playrun/pkg/persistence"
	"github.com/dealgrid/playrun/pkg/registry"
	"github.com/dealgrid/playrun/pkg/services"
	"github.com/dealgrid/playrun/pkg/web"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	eventBus    eventbus.EventBus
	validate    *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	eventBus eventbus.EventBus,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		eventBus:    eventBus,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	var publisher eventbus.EventPublisher
	if a.eventBus != nil {
		publisher = a.eventBus
	}

	eng := engine.New(a.persistence, a.registry, publisher, a.logger)
	workstreamService := services.NewWorkstream(a.persistence, eng)
	playService := services.NewPlay(a.persistence, a.registry)

	handlers := web.NewAPIHandlers(workstreamService, playService, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("Playrun API")
	})

	w := app.Group("/workstreams")
	w.Post("/:id/advance", handlers.AdvanceWorkstream)
	w.Post("/:id/resume", handlers.ResumeWorkstream)
	w.Get("/:id/pending-action", handlers.GetPendingAction)
	w.Get("/:id/executions", handlers.GetExecutions)
	w.Get("/:id/activity", handlers.GetActivity)

	p := app.Group("/plays")
	p.Get("/", handlers.GetPlays)
	p.Get("/:id", handlers.GetPlay)
	p.Post("/validate", handlers.ValidatePlay)

	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
