package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dealgrid/playrun/pkg/engine"
	"github.com/dealgrid/playrun/pkg/eventbus"
	"github.com/dealgrid/playrun/pkg/events"
	"github.com/dealgrid/playrun/pkg/mocks"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence/file"
	"github.com/dealgrid/playrun/pkg/registry"
	"github.com/dealgrid/playrun/pkg/steps/docgen"
	"github.com/dealgrid/playrun/pkg/testutil"
)

func newEventHarness(t *testing.T, bus *mocks.MockEventBus) (*engine.Engine, *file.Persistence) {
	t.Helper()

	p := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.DiscardHandler)

	reg := registry.NewRegistry(logger)
	reg.RegisterStep(docgen.NewDocGenStepFactory())

	return engine.New(p, reg, bus, logger), p
}

func TestExecutePlayPublishesLifecycleEvents(t *testing.T) {
	bus := &mocks.MockEventBus{}

	var (
		mu        sync.Mutex
		published []events.EventType
	)

	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			event, ok := args.Get(2).(eventbus.Event)
			require.True(t, ok)

			mu.Lock()
			published = append(published, event.GetType())
			mu.Unlock()
		}).
		Return(nil)

	eng, p := newEventHarness(t, bus)

	node := testutil.CreateTestNode(
		testutil.WithID("memo"),
		testutil.WithStepType(models.StepTypeDocGen),
		testutil.WithConfig(map[string]any{"template": "memo"}),
	)
	play := testutil.CreateTestPlay([]*models.WorkflowNode{node}, nil)
	workstream := testutil.CreateTestWorkstream()

	ctx := context.Background()
	require.NoError(t, p.PlayRepository().SavePlay(ctx, play))
	require.NoError(t, p.WorkstreamRepository().SaveWorkstream(ctx, workstream))

	outcome, err := eng.ExecutePlay(ctx, workstream, play, testutil.CreateTestUser())
	require.NoError(t, err)
	require.Equal(t, models.PlayStatusCompleted, outcome.Status)

	assert.Contains(t, published, events.PlayExecutionStartedEvent)
	assert.Contains(t, published, events.NodeCompletedEvent)
	assert.Contains(t, published, events.PlayExecutionCompletedEvent)
}

func TestExecutePlayToleratesPublishFailure(t *testing.T) {
	bus := &mocks.MockEventBus{}
	bus.On("Publish", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("broker unavailable"))

	eng, p := newEventHarness(t, bus)

	node := testutil.CreateTestNode(
		testutil.WithID("memo"),
		testutil.WithStepType(models.StepTypeDocGen),
		testutil.WithConfig(map[string]any{"template": "memo"}),
	)
	play := testutil.CreateTestPlay([]*models.WorkflowNode{node}, nil)
	workstream := testutil.CreateTestWorkstream()

	ctx := context.Background()
	require.NoError(t, p.PlayRepository().SavePlay(ctx, play))
	require.NoError(t, p.WorkstreamRepository().SaveWorkstream(ctx, workstream))

	outcome, err := eng.ExecutePlay(ctx, workstream, play, testutil.CreateTestUser())
	require.NoError(t, err)
	assert.Equal(t, models.PlayStatusCompleted, outcome.Status)
}
