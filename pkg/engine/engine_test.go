package engine_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealgrid/playrun/pkg/engine"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence/file"
	"github.com/dealgrid/playrun/pkg/protocol"
	"github.com/dealgrid/playrun/pkg/registry"
	"github.com/dealgrid/playrun/pkg/steps/approval"
	"github.com/dealgrid/playrun/pkg/steps/docgen"
	"github.com/dealgrid/playrun/pkg/steps/fieldupdate"
	"github.com/dealgrid/playrun/pkg/steps/manualtask"
	"github.com/dealgrid/playrun/pkg/testutil"
)

type harness struct {
	engine      *engine.Engine
	persistence *file.Persistence
	registry    *registry.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	p := file.NewPersistence(t.TempDir())

	logger := slog.New(slog.DiscardHandler)

	reg := registry.NewRegistry(logger)
	reg.RegisterStep(approval.NewApprovalStepFactory())
	reg.RegisterStep(manualtask.NewManualTaskStepFactory())
	reg.RegisterStep(docgen.NewDocGenStepFactory())
	reg.RegisterStep(fieldupdate.NewFieldUpdateStepFactory())

	return &harness{
		engine:      engine.New(p, reg, nil, logger),
		persistence: p,
		registry:    reg,
	}
}

func (h *harness) save(t *testing.T, play *models.Play, workstream *models.Workstream) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, h.persistence.PlayRepository().SavePlay(ctx, play))
	require.NoError(t, h.persistence.WorkstreamRepository().SaveWorkstream(ctx, workstream))
}

func docNode(id string) *models.WorkflowNode {
	return testutil.CreateTestNode(
		testutil.WithID(id),
		testutil.WithStepType(models.StepTypeDocGen),
		testutil.WithConfig(map[string]any{"template": "generated by " + id}),
	)
}

// diamondPlay builds A(entry) -> B -> D and A -> C -> D, with A -> B guarded
// by annual_value > 100000 and A -> C the unconditional fallback.
func diamondPlay() *models.Play {
	nodes := []*models.WorkflowNode{docNode("A"), docNode("B"), docNode("C"), docNode("D")}

	edges := []*models.WorkflowEdge{
		testutil.CreateTestEdge("A", "B", testutil.WithCondition(&models.EdgeCondition{
			Metric:   models.FieldAnnualValue,
			Operator: models.OperatorGreaterThan,
			Value:    100000,
		})),
		testutil.CreateTestEdge("A", "C"),
		testutil.CreateTestEdge("B", "D"),
		testutil.CreateTestEdge("C", "D"),
	}

	return testutil.CreateTestPlay(nodes, edges)
}

func statusByNode(outcome *models.PlayExecutionOutcome) map[string]models.NodeStatus {
	statuses := make(map[string]models.NodeStatus, len(outcome.States))
	for _, state := range outcome.States {
		statuses[state.NodeID] = state.Status
	}

	return statuses
}

func TestExecutePlayDiamondLowValueSkipsGuardedBranch(t *testing.T) {
	h := newHarness(t)
	play := diamondPlay()
	workstream := testutil.CreateTestWorkstream(testutil.WithFields(map[string]any{
		models.FieldAnnualValue: 50000,
	}))
	h.save(t, play, workstream)

	outcome, err := h.engine.ExecutePlay(context.Background(), workstream, play, testutil.CreateTestUser())
	require.NoError(t, err)

	assert.Equal(t, models.PlayStatusCompleted, outcome.Status)

	statuses := statusByNode(outcome)
	assert.Equal(t, models.NodeStatusCompleted, statuses["A"])
	assert.Equal(t, models.NodeStatusSkipped, statuses["B"])
	assert.Equal(t, models.NodeStatusCompleted, statuses["C"])
	assert.Equal(t, models.NodeStatusCompleted, statuses["D"])
}

func TestExecutePlayDiamondHighValueRunsBothBranches(t *testing.T) {
	h := newHarness(t)
	play := diamondPlay()
	workstream := testutil.CreateTestWorkstream(testutil.WithFields(map[string]any{
		models.FieldAnnualValue: 250000,
	}))
	h.save(t, play, workstream)

	outcome, err := h.engine.ExecutePlay(context.Background(), workstream, play, testutil.CreateTestUser())
	require.NoError(t, err)

	assert.Equal(t, models.PlayStatusCompleted, outcome.Status)

	statuses := statusByNode(outcome)
	assert.Equal(t, models.NodeStatusCompleted, statuses["A"])
	assert.Equal(t, models.NodeStatusCompleted, statuses["B"])
	assert.Equal(t, models.NodeStatusCompleted, statuses["C"])
	assert.Equal(t, models.NodeStatusCompleted, statuses["D"])
}

func approvalPlay() *models.Play {
	gate := testutil.CreateTestNode(
		testutil.WithID("legal_approval"),
		testutil.WithStepType(models.StepTypeApproval),
		testutil.WithConfig(map[string]any{"gate": "legal_review"}),
	)

	nodes := []*models.WorkflowNode{gate, docNode("engagement_letter")}
	edges := []*models.WorkflowEdge{testutil.CreateTestEdge("legal_approval", "engagement_letter")}

	return testutil.CreateTestPlay(nodes, edges)
}

func TestExecutePlayBlocksOnApprovalAndResumeCascades(t *testing.T) {
	h := newHarness(t)
	play := approvalPlay()
	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	ctx := context.Background()
	user := testutil.CreateTestUser("counsel")

	outcome, err := h.engine.ExecutePlay(ctx, workstream, play, user)
	require.NoError(t, err)

	assert.Equal(t, models.PlayStatusAwaitingInput, outcome.Status)
	require.Len(t, outcome.PendingActions, 1)
	assert.Equal(t, approval.ActionType, outcome.PendingActions[0].Type)

	active, err := h.engine.HasActivePlay(ctx, workstream.ID)
	require.NoError(t, err)
	assert.True(t, active)

	pending, err := h.engine.GetPendingAction(ctx, workstream.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Equal(t, approval.ActionType, pending.Type)

	resumed, err := h.engine.ResumePlayExecution(ctx, workstream.ID, pending, map[string]any{
		"decision": approval.DecisionApproved,
	}, user)
	require.NoError(t, err)

	assert.Equal(t, models.PlayStatusCompleted, resumed.Status)

	statuses := statusByNode(resumed)
	assert.Equal(t, models.NodeStatusCompleted, statuses["legal_approval"])
	assert.Equal(t, models.NodeStatusCompleted, statuses["engagement_letter"])

	active, err = h.engine.HasActivePlay(ctx, workstream.ID)
	require.NoError(t, err)
	assert.False(t, active)
}

func TestResumePlayExecutionInvalidResponseLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t)
	play := approvalPlay()
	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	ctx := context.Background()
	user := testutil.CreateTestUser()

	_, err := h.engine.ExecutePlay(ctx, workstream, play, user)
	require.NoError(t, err)

	pending, err := h.engine.GetPendingAction(ctx, workstream.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)

	_, err = h.engine.ResumePlayExecution(ctx, workstream.ID, pending, map[string]any{
		"decision": "maybe",
	}, user)
	assert.ErrorIs(t, err, protocol.ErrInvalidResumption)

	states, err := h.persistence.ExecutionStateRepository().NodeExecutionStates(ctx, workstream.ID, play.ID)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, models.NodeStatusBlocked, states[0].Status)
}

func TestResumePlayExecutionNoMatchingPendingAction(t *testing.T) {
	h := newHarness(t)
	play := approvalPlay()
	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	ctx := context.Background()

	_, err := h.engine.ExecutePlay(ctx, workstream, play, testutil.CreateTestUser())
	require.NoError(t, err)

	_, err = h.engine.ResumePlayExecution(ctx, workstream.ID, &models.PendingAction{
		Type: manualtask.ActionType,
	}, map[string]any{"done": true}, testutil.CreateTestUser())
	assert.ErrorIs(t, err, protocol.ErrInvalidResumption)
}

func TestExecutePlayUnregisteredStepTypeFailsPlay(t *testing.T) {
	h := newHarness(t)

	broken := testutil.CreateTestNode(
		testutil.WithID("escrow_setup"),
		testutil.WithStepType("escrow"),
		testutil.WithConfig(map[string]any{}),
	)

	nodes := []*models.WorkflowNode{broken, docNode("closing_memo")}
	edges := []*models.WorkflowEdge{testutil.CreateTestEdge("escrow_setup", "closing_memo")}
	play := testutil.CreateTestPlay(nodes, edges)

	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	outcome, err := h.engine.ExecutePlay(context.Background(), workstream, play, testutil.CreateTestUser())
	require.NoError(t, err)

	assert.Equal(t, models.PlayStatusFailed, outcome.Status)

	statuses := statusByNode(outcome)
	assert.Equal(t, models.NodeStatusFailed, statuses["escrow_setup"])
	// The dependent node is never dispatched.
	assert.NotContains(t, statuses, "closing_memo")

	states, err := h.persistence.ExecutionStateRepository().NodeExecutionStates(context.Background(), workstream.ID, play.ID)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Contains(t, states[0].ErrorMessage, "unknown step type")
}

func TestExecutePlayIdempotentReentry(t *testing.T) {
	h := newHarness(t)
	play := approvalPlay()
	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	ctx := context.Background()
	user := testutil.CreateTestUser()

	first, err := h.engine.ExecutePlay(ctx, workstream, play, user)
	require.NoError(t, err)
	assert.Equal(t, models.PlayStatusAwaitingInput, first.Status)

	activityBefore, err := h.persistence.ActivityRepository().ActivityByWorkstream(ctx, workstream.ID)
	require.NoError(t, err)

	second, err := h.engine.ExecutePlay(ctx, workstream, play, user)
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, len(first.States), len(second.States))

	activityAfter, err := h.persistence.ActivityRepository().ActivityByWorkstream(ctx, workstream.ID)
	require.NoError(t, err)
	assert.Len(t, activityAfter, len(activityBefore), "re-entry must not append duplicate activity")
}

func TestExecutePlayFieldUpdateWritesBack(t *testing.T) {
	h := newHarness(t)

	update := testutil.CreateTestNode(
		testutil.WithID("promote_tier"),
		testutil.WithStepType(models.StepTypeFieldUpdate),
		testutil.WithConfig(map[string]any{
			"fields": map[string]any{models.FieldTier: "strategic"},
		}),
	)
	play := testutil.CreateTestPlay([]*models.WorkflowNode{update}, nil)

	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	ctx := context.Background()

	outcome, err := h.engine.ExecutePlay(ctx, workstream, play, testutil.CreateTestUser())
	require.NoError(t, err)
	assert.Equal(t, models.PlayStatusCompleted, outcome.Status)

	persisted, err := h.persistence.WorkstreamRepository().WorkstreamByID(ctx, workstream.ID)
	require.NoError(t, err)
	assert.Equal(t, "strategic", persisted.Fields[models.FieldTier])
}

func TestExecutePlayInvalidConditionStrandsBranch(t *testing.T) {
	h := newHarness(t)

	nodes := []*models.WorkflowNode{docNode("A"), docNode("B")}
	edges := []*models.WorkflowEdge{
		testutil.CreateTestEdge("A", "B", testutil.WithCondition(&models.EdgeCondition{
			Metric:   "renewal_quarter", // Not present on the workstream
			Operator: models.OperatorGreaterThan,
			Value:    2,
		})),
	}
	play := testutil.CreateTestPlay(nodes, edges)

	workstream := testutil.CreateTestWorkstream(testutil.WithFields(map[string]any{}))
	h.save(t, play, workstream)

	outcome, err := h.engine.ExecutePlay(context.Background(), workstream, play, testutil.CreateTestUser())
	require.NoError(t, err)

	statuses := statusByNode(outcome)
	assert.Equal(t, models.NodeStatusCompleted, statuses["A"])
	assert.Equal(t, models.NodeStatusSkipped, statuses["B"])
	// The terminal node never completed: the play is stuck, not done.
	assert.Equal(t, models.PlayStatusRunning, outcome.Status)
}

func TestExecutePlayMalformedPlayRejectedBeforeExecution(t *testing.T) {
	h := newHarness(t)

	// Two entry nodes.
	play := testutil.CreateTestPlay([]*models.WorkflowNode{docNode("A"), docNode("B")}, nil)
	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	ctx := context.Background()

	_, err := h.engine.ExecutePlay(ctx, workstream, play, testutil.CreateTestUser())
	require.Error(t, err)

	states, err := h.persistence.ExecutionStateRepository().NodeExecutionStates(ctx, workstream.ID, play.ID)
	require.NoError(t, err)
	assert.Empty(t, states, "malformed play must never be partially applied")
}

func TestHasActivePlayBeforeStart(t *testing.T) {
	h := newHarness(t)
	play := approvalPlay()
	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	active, err := h.engine.HasActivePlay(context.Background(), workstream.ID)
	require.NoError(t, err)
	assert.False(t, active)

	pending, err := h.engine.GetPendingAction(context.Background(), workstream.ID)
	require.NoError(t, err)
	assert.Nil(t, pending)
}

func TestExecutePlayManualTaskResume(t *testing.T) {
	h := newHarness(t)

	task := testutil.CreateTestNode(
		testutil.WithID("collect_nda"),
		testutil.WithStepType(models.StepTypeManualTask),
		testutil.WithConfig(map[string]any{"title": "Collect signed NDA"}),
	)
	play := testutil.CreateTestPlay([]*models.WorkflowNode{task, docNode("filing")}, []*models.WorkflowEdge{
		testutil.CreateTestEdge("collect_nda", "filing"),
	})

	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	ctx := context.Background()
	user := testutil.CreateTestUser()

	outcome, err := h.engine.ExecutePlay(ctx, workstream, play, user)
	require.NoError(t, err)
	assert.Equal(t, models.PlayStatusAwaitingInput, outcome.Status)

	resumed, err := h.engine.ResumePlayExecution(ctx, workstream.ID, &models.PendingAction{
		Type:   manualtask.ActionType,
		NodeID: "collect_nda",
	}, map[string]any{"done": true}, user)
	require.NoError(t, err)

	assert.Equal(t, models.PlayStatusCompleted, resumed.Status)
}

func TestExecutePlayFailedPlayHaltsOnReentry(t *testing.T) {
	h := newHarness(t)

	broken := testutil.CreateTestNode(
		testutil.WithID("B"),
		testutil.WithStepType("escrow"),
		testutil.WithConfig(map[string]any{}),
	)
	nodes := []*models.WorkflowNode{docNode("A"), broken, docNode("C"), docNode("D")}
	edges := []*models.WorkflowEdge{
		testutil.CreateTestEdge("A", "B"),
		testutil.CreateTestEdge("A", "C"),
		testutil.CreateTestEdge("B", "D"),
		testutil.CreateTestEdge("C", "D"),
	}
	play := testutil.CreateTestPlay(nodes, edges)

	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	ctx := context.Background()
	user := testutil.CreateTestUser()

	first, err := h.engine.ExecutePlay(ctx, workstream, play, user)
	require.NoError(t, err)
	assert.Equal(t, models.PlayStatusFailed, first.Status)
	assert.NotContains(t, statusByNode(first), "D")

	activityBefore, err := h.persistence.ActivityRepository().ActivityByWorkstream(ctx, workstream.ID)
	require.NoError(t, err)

	second, err := h.engine.ExecutePlay(ctx, workstream, play, user)
	require.NoError(t, err)

	assert.Equal(t, models.PlayStatusFailed, second.Status)
	// The join must not advance through the failed node's sibling path.
	assert.NotContains(t, statusByNode(second), "D")
	assert.Len(t, second.States, len(first.States))

	activityAfter, err := h.persistence.ActivityRepository().ActivityByWorkstream(ctx, workstream.ID)
	require.NoError(t, err)
	assert.Len(t, activityAfter, len(activityBefore), "re-entry on a failed play must not append activity")
}

// stalledStepFactory produces a step that suspends without declaring what
// external input it is waiting on.
type stalledStepFactory struct{}

func (stalledStepFactory) Create(_ context.Context, _ string, _ map[string]any) (protocol.Step, error) {
	return stalledStep{}, nil
}

func (stalledStepFactory) ID() string             { return "escrow_hold" }
func (stalledStepFactory) Name() string           { return "Escrow Hold" }
func (stalledStepFactory) Description() string    { return "Waits for escrow funds to clear" }
func (stalledStepFactory) Schema() map[string]any { return map[string]any{"type": "object"} }

type stalledStep struct{}

func (stalledStep) Execute(_ context.Context, _ models.ExecutionContext, _ *slog.Logger) (models.StepOutcome, error) {
	return models.BlockedOutcome(nil), nil
}

func (stalledStep) Resume(_ context.Context, _ models.ExecutionContext, _ *models.PendingAction, _ map[string]any, _ *slog.Logger) (models.StepOutcome, error) {
	return models.StepOutcome{}, protocol.ErrInvalidResumption
}

func TestExecutePlayBlockedWithoutPendingActionFailsNode(t *testing.T) {
	h := newHarness(t)
	h.registry.RegisterStep(stalledStepFactory{})

	node := testutil.CreateTestNode(
		testutil.WithID("escrow_wait"),
		testutil.WithStepType("escrow_hold"),
		testutil.WithConfig(map[string]any{}),
	)
	play := testutil.CreateTestPlay([]*models.WorkflowNode{node, docNode("release_memo")}, []*models.WorkflowEdge{
		testutil.CreateTestEdge("escrow_wait", "release_memo"),
	})

	workstream := testutil.CreateTestWorkstream()
	h.save(t, play, workstream)

	outcome, err := h.engine.ExecutePlay(context.Background(), workstream, play, testutil.CreateTestUser())
	require.NoError(t, err)

	// A suspension with nothing to resume can never make progress, so the
	// node fails instead of blocking.
	assert.Equal(t, models.PlayStatusFailed, outcome.Status)
	assert.Equal(t, models.NodeStatusFailed, statusByNode(outcome)["escrow_wait"])

	states, err := h.persistence.ExecutionStateRepository().NodeExecutionStates(context.Background(), workstream.ID, play.ID)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Contains(t, states[0].ErrorMessage, "blocked without a pending action")
}
