// Package persistence provides the data storage abstraction consumed by the
// play execution engine.
package persistence

import (
	"context"

	"github.com/dealgrid/playrun/pkg/models"
)

// PlayRepository is the graph definition source.
type PlayRepository interface {
	Plays(ctx context.Context) ([]*models.Play, error)
	PlayByID(ctx context.Context, id string) (*models.Play, error)
	SavePlay(ctx context.Context, play *models.Play) error
}

// WorkstreamRepository reads workstreams and writes back declared step
// output fields. Everything else about a workstream is owned by the
// surrounding application.
type WorkstreamRepository interface {
	Workstreams(ctx context.Context) ([]*models.Workstream, error)
	WorkstreamByID(ctx context.Context, id string) (*models.Workstream, error)
	SaveWorkstream(ctx context.Context, workstream *models.Workstream) error
}

// ExecutionStateRepository stores the engine's per-(workstream, node)
// execution records. Upsert is idempotent and keyed on
// (workstream_id, node_id): the unit of atomicity is one key, last writer
// wins.
type ExecutionStateRepository interface {
	NodeExecutionStates(ctx context.Context, workstreamID, playID string) ([]*models.NodeExecutionState, error)
	UpsertNodeExecutionState(ctx context.Context, state *models.NodeExecutionState) error
}

// ActivityRepository is the append-only audit trail. Append failures are
// observability losses, not correctness failures: the engine logs them and
// still returns its result.
type ActivityRepository interface {
	AppendActivity(ctx context.Context, entry *models.ActivityEntry) error
	ActivityByWorkstream(ctx context.Context, workstreamID string) ([]*models.ActivityEntry, error)
}

// Persistence is the composite storage interface a backend implements.
type Persistence interface {
	PlayRepository() PlayRepository
	WorkstreamRepository() WorkstreamRepository
	ExecutionStateRepository() ExecutionStateRepository
	ActivityRepository() ActivityRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
