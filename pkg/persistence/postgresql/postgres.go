// Package postgresql provides PostgreSQL persistence for plays, workstreams
// and execution state.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/dealgrid/playrun/pkg/persistence"
	"github.com/dealgrid/playrun/pkg/persistence/sqlbase"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db             *sql.DB
	logger         *slog.Logger
	playRepo       *PlayRepository
	workstreamRepo *WorkstreamRepository
	executionRepo  *ExecutionStateRepository
	activityRepo   *ActivityRepository
}

// NewPersistence connects, runs migrations and returns the persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	if err := migrationManager.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:             database,
		logger:         logger,
		playRepo:       NewPlayRepository(database, logger),
		workstreamRepo: NewWorkstreamRepository(database, logger),
		executionRepo:  NewExecutionStateRepository(database, logger),
		activityRepo:   NewActivityRepository(database, logger),
	}, nil
}

func (p *Persistence) PlayRepository() persistence.PlayRepository {
	return p.playRepo
}

func (p *Persistence) WorkstreamRepository() persistence.WorkstreamRepository {
	return p.workstreamRepo
}

func (p *Persistence) ExecutionStateRepository() persistence.ExecutionStateRepository {
	return p.executionRepo
}

func (p *Persistence) ActivityRepository() persistence.ActivityRepository {
	return p.activityRepo
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
