package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
	"github.com/dealgrid/playrun/pkg/persistence/postgresql"
)

var postgresContainer *postgres.PostgresContainer

func dropDB(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	for _, table := range []string{"activity_log", "node_execution_states", "workstreams", "plays", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	require.NoError(t, db.Close())
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("playrun_test"),
			postgres.WithUsername("playrun"),
			postgres.WithPassword("playrun"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDB(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDB(ctx, t, databaseURL)
		require.NoError(t, p.Close(ctx))
		cancel()
	})

	return p, ctx
}

func TestPersistenceIntegration_PlayRoundTrip(t *testing.T) {
	p, ctx := setupTestDB(t)

	play := &models.Play{
		ID:   "play-1",
		Name: "Enterprise Deal Play",
		Nodes: []*models.WorkflowNode{
			{ID: "intake", PlayID: "play-1", StepType: models.StepTypeManualTask, Name: "Intake"},
			{ID: "review", PlayID: "play-1", StepType: models.StepTypeApproval, Name: "Legal Review"},
		},
		Edges: []*models.WorkflowEdge{
			{ID: "e1", PlayID: "play-1", FromNodeID: "intake", ToNodeID: "review"},
		},
	}

	require.NoError(t, p.PlayRepository().SavePlay(ctx, play))

	loaded, err := p.PlayRepository().PlayByID(ctx, "play-1")
	require.NoError(t, err)
	assert.Equal(t, "Enterprise Deal Play", loaded.Name)
	assert.Len(t, loaded.Nodes, 2)
	assert.Len(t, loaded.Edges, 1)

	_, err = p.PlayRepository().PlayByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrPlayNotFound)
}

func TestPersistenceIntegration_ExecutionStateUpsert(t *testing.T) {
	p, ctx := setupTestDB(t)
	repo := p.ExecutionStateRepository()

	started := time.Now().UTC()
	state := &models.NodeExecutionState{
		WorkstreamID: "ws-1",
		NodeID:       "review",
		PlayID:       "play-1",
		Status:       models.NodeStatusBlocked,
		PendingAction: &models.PendingAction{
			Type:   "approval_decision",
			NodeID: "review",
			Params: map[string]any{"gate": 1},
		},
		StartedAt: &started,
	}

	require.NoError(t, repo.UpsertNodeExecutionState(ctx, state))

	states, err := repo.NodeExecutionStates(ctx, "ws-1", "play-1")
	require.NoError(t, err)
	require.Len(t, states, 1)
	require.NotNil(t, states[0].PendingAction)
	assert.Equal(t, "approval_decision", states[0].PendingAction.Type)

	completed := time.Now().UTC()
	state.Status = models.NodeStatusCompleted
	state.PendingAction = nil
	state.Output = map[string]any{"decision": "approved"}
	state.CompletedAt = &completed

	require.NoError(t, repo.UpsertNodeExecutionState(ctx, state))

	states, err = repo.NodeExecutionStates(ctx, "ws-1", "play-1")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, models.NodeStatusCompleted, states[0].Status)
	assert.Equal(t, "approved", states[0].Output["decision"])
	require.NotNil(t, states[0].CompletedAt)
}

func TestPersistenceIntegration_WorkstreamAndActivity(t *testing.T) {
	p, ctx := setupTestDB(t)

	ws := &models.Workstream{
		ID:     "ws-1",
		PlayID: "play-1",
		Name:   "Acme renewal",
		Stage:  "negotiation",
		Fields: map[string]any{models.FieldAnnualValue: 250000.0, models.FieldTier: "enterprise"},
	}

	require.NoError(t, p.WorkstreamRepository().SaveWorkstream(ctx, ws))

	loaded, err := p.WorkstreamRepository().WorkstreamByID(ctx, "ws-1")
	require.NoError(t, err)

	tier, ok := loaded.Field(models.FieldTier)
	require.True(t, ok)
	assert.Equal(t, "enterprise", tier)

	require.NoError(t, p.ActivityRepository().AppendActivity(ctx, &models.ActivityEntry{
		WorkstreamID: "ws-1",
		Kind:         models.ActivityPlayStarted,
	}))
	require.NoError(t, p.ActivityRepository().AppendActivity(ctx, &models.ActivityEntry{
		WorkstreamID: "ws-1",
		Kind:         models.ActivityNodeCompleted,
		NodeID:       "intake",
	}))

	entries, err := p.ActivityRepository().ActivityByWorkstream(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActivityPlayStarted, entries[0].Kind)
	assert.Equal(t, "intake", entries[1].NodeID)
}
