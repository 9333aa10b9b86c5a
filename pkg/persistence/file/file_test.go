package file

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	return NewPersistence(t.TempDir())
}

func TestPlayRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	play := &models.Play{
		ID:   "play-1",
		Name: "Renewal Play",
		Nodes: []*models.WorkflowNode{
			{ID: "intake", PlayID: "play-1", StepType: models.StepTypeManualTask, Name: "Intake"},
		},
		CreatedAt: time.Now().UTC(),
	}

	require.NoError(t, p.PlayRepository().SavePlay(ctx, play))

	loaded, err := p.PlayRepository().PlayByID(ctx, "play-1")
	require.NoError(t, err)
	assert.Equal(t, "Renewal Play", loaded.Name)
	require.Len(t, loaded.Nodes, 1)
	assert.Equal(t, models.StepTypeManualTask, loaded.Nodes[0].StepType)

	all, err := p.PlayRepository().Plays(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPlayRepository_NotFound(t *testing.T) {
	p := newTestPersistence(t)

	_, err := p.PlayRepository().PlayByID(context.Background(), "missing")
	require.ErrorIs(t, err, persistence.ErrPlayNotFound)
}

func TestWorkstreamRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)

	ws := &models.Workstream{
		ID:     "ws-1",
		PlayID: "play-1",
		Name:   "Acme expansion",
		Fields: map[string]any{models.FieldAnnualValue: 120000.0},
	}

	require.NoError(t, p.WorkstreamRepository().SaveWorkstream(ctx, ws))

	loaded, err := p.WorkstreamRepository().WorkstreamByID(ctx, "ws-1")
	require.NoError(t, err)

	value, ok := loaded.Field(models.FieldAnnualValue)
	require.True(t, ok)
	assert.InDelta(t, 120000.0, value, 0.001)
	assert.False(t, loaded.UpdatedAt.IsZero())

	_, err = p.WorkstreamRepository().WorkstreamByID(ctx, "missing")
	require.ErrorIs(t, err, persistence.ErrWorkstreamNotFound)
}

func TestExecutionStateRepository_UpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newTestPersistence(t)
	repo := p.ExecutionStateRepository()

	started := time.Now().UTC()
	state := &models.NodeExecutionState{
		WorkstreamID: "ws-1",
		NodeID:       "review",
		PlayID:       "play-1",
		Status:       models.NodeStatusPending,
		StartedAt:    &started,
	}

	require.NoError(t, repo.UpsertNodeExecutionState(ctx, state))
	require.NoError(t, repo.UpsertNodeExecutionState(ctx, state))

	states, err := repo.NodeExecutionStates(ctx, "ws-1", "play-1")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, models.NodeStatusPending, states[0].Status)

	// Last writer wins on the same key.
	state.Status = models.NodeStatusCompleted
	state.Output = map[string]any{"approved_by": "user-1"}
	require.NoError(t, repo.UpsertNodeExecutionState(ctx, state))

	states, err = repo.NodeExecutionStates(ctx, "ws-1", "play-1")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, models.NodeStatusCompleted, states[0].Status)
	assert.Equal(t, "user-1", states[0].Output["approved_by"])
}

func TestExecutionStateRepository_FiltersByPlay(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).ExecutionStateRepository()

	require.NoError(t, repo.UpsertNodeExecutionState(ctx, &models.NodeExecutionState{
		WorkstreamID: "ws-1", NodeID: "a", PlayID: "play-1", Status: models.NodeStatusCompleted,
	}))
	require.NoError(t, repo.UpsertNodeExecutionState(ctx, &models.NodeExecutionState{
		WorkstreamID: "ws-1", NodeID: "b", PlayID: "play-2", Status: models.NodeStatusPending,
	}))

	states, err := repo.NodeExecutionStates(ctx, "ws-1", "play-1")
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "a", states[0].NodeID)
}

func TestActivityRepository_AppendOrder(t *testing.T) {
	ctx := context.Background()
	repo := newTestPersistence(t).ActivityRepository()

	for _, kind := range []string{models.ActivityPlayStarted, models.ActivityNodeCompleted, models.ActivityPlayCompleted} {
		require.NoError(t, repo.AppendActivity(ctx, &models.ActivityEntry{
			WorkstreamID: "ws-1",
			Kind:         kind,
		}))
	}

	entries, err := repo.ActivityByWorkstream(ctx, "ws-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.ActivityPlayStarted, entries[0].Kind)
	assert.Equal(t, models.ActivityPlayCompleted, entries[2].Kind)

	for _, entry := range entries {
		assert.NotEmpty(t, entry.ID)
		assert.False(t, entry.CreatedAt.IsZero())
	}
}

func TestActivityRepository_EmptyLog(t *testing.T) {
	repo := newTestPersistence(t).ActivityRepository()

	entries, err := repo.ActivityByWorkstream(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPersistence_HealthCheck(t *testing.T) {
	p := newTestPersistence(t)
	require.NoError(t, p.HealthCheck(context.Background()))

	missing := NewPersistence("/nonexistent/playrun-test-root")
	require.Error(t, missing.HealthCheck(context.Background()))
}
