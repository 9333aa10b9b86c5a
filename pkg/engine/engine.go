// Package engine implements the play scheduler: a cooperative,
// request-driven state machine that advances a workstream's play run to a
// fixed point on every invocation. There is no background scheduler thread;
// the engine moves only when called, and callers are responsible for
// per-workstream mutual exclusion.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealgrid/playrun/pkg/eventbus"
	"github.com/dealgrid/playrun/pkg/events"
	"github.com/dealgrid/playrun/pkg/graph"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/otelhelper"
	"github.com/dealgrid/playrun/pkg/persistence"
	"github.com/dealgrid/playrun/pkg/protocol"
	"github.com/dealgrid/playrun/pkg/registry"
)

type Engine struct {
	persistence persistence.Persistence
	registry    *registry.Registry
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

// New wires the engine to its collaborators. The publisher may be nil, in
// which case lifecycle events are not emitted; everything else is required.
func New(p persistence.Persistence, reg *registry.Registry, publisher eventbus.EventPublisher, logger *slog.Logger) *Engine {
	return &Engine{
		persistence: p,
		registry:    reg,
		publisher:   publisher,
		tracer:      otel.Tracer("playrun-engine"),
		logger:      logger.With("module", "engine"),
	}
}

// playRun is the in-memory working set of one engine invocation.
type playRun struct {
	graph      *graph.Graph
	workstream *models.Workstream
	user       *models.CurrentUser
	states     map[string]*models.NodeExecutionState
	changed    bool
}

// ExecutePlay advances the workstream's play run to a fixed point: it
// computes the frontier, dispatches every eligible node, applies outcomes
// and repeats until no node is runnable. Re-invoking with an unchanged
// frontier is a no-op.
func (e *Engine) ExecutePlay(ctx context.Context, workstream *models.Workstream, play *models.Play, user *models.CurrentUser) (*models.PlayExecutionOutcome, error) {
	if workstream == nil || play == nil {
		return nil, errors.New("workstream and play are required")
	}

	g, err := graph.New(play)
	if err != nil {
		return nil, err
	}

	ctx, span := e.tracer.Start(ctx, "playrun.execute_play", trace.WithAttributes(
		attribute.String(otelhelper.WorkstreamIDKey, workstream.ID),
		attribute.String(otelhelper.PlayIDKey, play.ID),
	))
	defer span.End()

	run, err := e.loadRun(ctx, g, workstream, user)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if len(run.states) == 0 {
		if err := e.initializeRun(ctx, run); err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}
	}

	return e.finish(ctx, span, run)
}

// ResumePlayExecution applies external input to the unique blocked node
// matching the pending action, then re-runs the scheduler so the resumption
// can cascade. An inadmissible response leaves all state unchanged and
// returns ErrInvalidResumption.
func (e *Engine) ResumePlayExecution(ctx context.Context, workstreamID string, action *models.PendingAction, response map[string]any, user *models.CurrentUser) (*models.PlayExecutionOutcome, error) {
	if action == nil {
		return nil, fmt.Errorf("%w: no pending action supplied", protocol.ErrInvalidResumption)
	}

	run, g, err := e.loadRunByWorkstreamID(ctx, workstreamID, user)
	if err != nil {
		return nil, err
	}

	target := findBlockedState(run, action)
	if target == nil {
		return nil, fmt.Errorf("%w: no blocked node awaiting %q", protocol.ErrInvalidResumption, action.Type)
	}

	node := g.Node(target.NodeID)
	if node == nil {
		return nil, fmt.Errorf("blocked node %q is not part of play %q", target.NodeID, g.Play().ID)
	}

	ctx, span := e.tracer.Start(ctx, "playrun.resume_play", trace.WithAttributes(
		attribute.String(otelhelper.WorkstreamIDKey, workstreamID),
		attribute.String(otelhelper.PlayIDKey, g.Play().ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
	))
	defer span.End()

	step, err := e.registry.CreateStep(ctx, node.StepType, node.ID, node.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	execCtx := run.executionContext(node, target)

	outcome, err := step.Resume(ctx, execCtx, target.PendingAction, response, e.logger)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	e.appendActivity(ctx, run, models.ActivityNodeResumed, node.ID, map[string]any{
		"action_type": target.PendingAction.Type,
	})
	e.publish(ctx, run.workstream.ID, events.PlayExecutionResumed{
		BaseEvent:  baseEvent(events.PlayExecutionResumedEvent, run),
		NodeID:     node.ID,
		ActionType: target.PendingAction.Type,
		UserID:     userID(user),
	})

	if err := e.applyOutcome(ctx, run, node, outcome); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	return e.finish(ctx, span, run)
}

// HasActivePlay reports whether the workstream has a play run in progress:
// started but neither completed nor failed. Read-only.
func (e *Engine) HasActivePlay(ctx context.Context, workstreamID string) (bool, error) {
	run, _, err := e.loadRunByWorkstreamID(ctx, workstreamID, nil)
	if err != nil {
		return false, err
	}

	switch e.deriveStatus(run) {
	case models.PlayStatusRunning, models.PlayStatusAwaitingInput:
		return true, nil
	default:
		return false, nil
	}
}

// GetPendingAction returns the pending action of the first blocked node (by
// node ID), or nil when nothing is awaiting input. Read-only.
func (e *Engine) GetPendingAction(ctx context.Context, workstreamID string) (*models.PendingAction, error) {
	run, _, err := e.loadRunByWorkstreamID(ctx, workstreamID, nil)
	if err != nil {
		return nil, err
	}

	blocked := blockedStates(run)
	if len(blocked) == 0 {
		return nil, nil
	}

	return blocked[0].PendingAction, nil
}

// finish runs the scheduler loop, derives the aggregate status and records
// the run-level activity and events when this invocation changed state.
func (e *Engine) finish(ctx context.Context, span trace.Span, run *playRun) (*models.PlayExecutionOutcome, error) {
	if err := e.runToFixedPoint(ctx, run); err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	status := e.deriveStatus(run)
	span.SetAttributes(attribute.String("playrun.play.status", string(status)))

	if run.changed {
		e.recordRunStatus(ctx, run, status)
	}

	return run.outcome(status), nil
}

func (e *Engine) recordRunStatus(ctx context.Context, run *playRun, status models.PlayStatus) {
	switch status {
	case models.PlayStatusCompleted:
		e.appendActivity(ctx, run, models.ActivityPlayCompleted, "", nil)
		e.publish(ctx, run.workstream.ID, events.PlayExecutionCompleted{
			BaseEvent: baseEvent(events.PlayExecutionCompletedEvent, run),
		})
	case models.PlayStatusFailed:
		nodeID, errorMessage := firstFailure(run)
		e.appendActivity(ctx, run, models.ActivityPlayFailed, nodeID, map[string]any{"error": errorMessage})
		e.publish(ctx, run.workstream.ID, events.PlayExecutionFailed{
			BaseEvent: baseEvent(events.PlayExecutionFailedEvent, run),
			NodeID:    nodeID,
			Error:     errorMessage,
		})
	case models.PlayStatusAwaitingInput:
		actions := pendingActions(run)
		e.appendActivity(ctx, run, models.ActivityPlaySuspended, "", map[string]any{"pending": len(actions)})
		e.publish(ctx, run.workstream.ID, events.PlayExecutionSuspended{
			BaseEvent:      baseEvent(events.PlayExecutionSuspendedEvent, run),
			PendingActions: actions,
		})
	default:
	}
}

func (e *Engine) loadRun(ctx context.Context, g *graph.Graph, workstream *models.Workstream, user *models.CurrentUser) (*playRun, error) {
	states, err := e.stateRepo().NodeExecutionStates(ctx, workstream.ID, g.Play().ID)
	if err != nil {
		return nil, fmt.Errorf("loading execution states: %w", err)
	}

	indexed := make(map[string]*models.NodeExecutionState, len(states))
	for _, state := range states {
		indexed[state.NodeID] = state
	}

	return &playRun{
		graph:      g,
		workstream: workstream,
		user:       user,
		states:     indexed,
	}, nil
}

func (e *Engine) loadRunByWorkstreamID(ctx context.Context, workstreamID string, user *models.CurrentUser) (*playRun, *graph.Graph, error) {
	workstream, err := e.persistence.WorkstreamRepository().WorkstreamByID(ctx, workstreamID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading workstream: %w", err)
	}

	play, err := e.persistence.PlayRepository().PlayByID(ctx, workstream.PlayID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading play: %w", err)
	}

	g, err := graph.New(play)
	if err != nil {
		return nil, nil, err
	}

	run, err := e.loadRun(ctx, g, workstream, user)
	if err != nil {
		return nil, nil, err
	}

	return run, g, nil
}

// initializeRun persists the entry node as pending and records the start of
// the run.
func (e *Engine) initializeRun(ctx context.Context, run *playRun) error {
	entry := run.graph.EntryNode()

	state := &models.NodeExecutionState{
		WorkstreamID: run.workstream.ID,
		NodeID:       entry.ID,
		PlayID:       run.graph.Play().ID,
		Status:       models.NodeStatusPending,
	}

	if err := e.stateRepo().UpsertNodeExecutionState(ctx, state); err != nil {
		return fmt.Errorf("initializing entry node: %w", err)
	}

	run.states[entry.ID] = state
	run.changed = true

	e.logger.Info("Play execution started",
		"workstream_id", run.workstream.ID,
		"play_id", run.graph.Play().ID,
		"entry_node_id", entry.ID)

	e.appendActivity(ctx, run, models.ActivityPlayStarted, "", nil)
	e.publish(ctx, run.workstream.ID, events.PlayExecutionStarted{
		BaseEvent: baseEvent(events.PlayExecutionStartedEvent, run),
		UserID:    userID(run.user),
	})

	return nil
}

func (e *Engine) stateRepo() persistence.ExecutionStateRepository {
	return e.persistence.ExecutionStateRepository()
}

// appendActivity is best-effort: a failed append is logged and never changes
// the outcome returned to the caller.
func (e *Engine) appendActivity(ctx context.Context, run *playRun, kind, nodeID string, detail map[string]any) {
	entry := &models.ActivityEntry{
		ID:           uuid.NewString(),
		WorkstreamID: run.workstream.ID,
		Kind:         kind,
		NodeID:       nodeID,
		UserID:       userID(run.user),
		Detail:       detail,
		CreatedAt:    time.Now().UTC(),
	}

	if err := e.persistence.ActivityRepository().AppendActivity(ctx, entry); err != nil {
		e.logger.Warn("Activity append failed",
			"workstream_id", run.workstream.ID,
			"kind", kind,
			"error", err)
	}
}

// publish is best-effort, like activity appends.
func (e *Engine) publish(ctx context.Context, key string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, key, event); err != nil {
		e.logger.Warn("Event publish failed",
			"event_type", string(event.GetType()),
			"error", err)
	}
}

func (run *playRun) executionContext(node *models.WorkflowNode, prior *models.NodeExecutionState) models.ExecutionContext {
	outputs := make(map[string]any)

	for nodeID, state := range run.states {
		if state.Status == models.NodeStatusCompleted && state.Output != nil {
			outputs[nodeID] = state.Output
		}
	}

	return models.ExecutionContext{
		Node:        node,
		Workstream:  run.workstream,
		User:        run.user,
		PriorState:  prior,
		NodeOutputs: outputs,
	}
}

func (run *playRun) outcome(status models.PlayStatus) *models.PlayExecutionOutcome {
	states := make([]*models.NodeExecutionState, 0, len(run.states))
	for _, state := range run.states {
		states = append(states, state)
	}

	sort.Slice(states, func(i, j int) bool { return states[i].NodeID < states[j].NodeID })

	return &models.PlayExecutionOutcome{
		WorkstreamID:   run.workstream.ID,
		PlayID:         run.graph.Play().ID,
		Status:         status,
		States:         states,
		PendingActions: pendingActions(run),
	}
}

func baseEvent(eventType events.EventType, run *playRun) events.BaseEvent {
	return events.BaseEvent{
		ID:           uuid.NewString(),
		Type:         eventType,
		Timestamp:    time.Now().UTC(),
		WorkstreamID: run.workstream.ID,
		PlayID:       run.graph.Play().ID,
	}
}

func userID(user *models.CurrentUser) string {
	if user == nil {
		return ""
	}

	return user.ID
}

func blockedStates(run *playRun) []*models.NodeExecutionState {
	blocked := make([]*models.NodeExecutionState, 0, 1)

	for _, state := range run.states {
		if state.Status == models.NodeStatusBlocked {
			blocked = append(blocked, state)
		}
	}

	sort.Slice(blocked, func(i, j int) bool { return blocked[i].NodeID < blocked[j].NodeID })

	return blocked
}

func pendingActions(run *playRun) []*models.PendingAction {
	blocked := blockedStates(run)

	actions := make([]*models.PendingAction, 0, len(blocked))
	for _, state := range blocked {
		if state.PendingAction != nil {
			actions = append(actions, state.PendingAction)
		}
	}

	return actions
}

// findBlockedState matches the supplied action against the blocked states:
// the action type must match the recorded one, and when the supplied action
// names a node it must be that node.
func findBlockedState(run *playRun, action *models.PendingAction) *models.NodeExecutionState {
	for _, state := range blockedStates(run) {
		if state.PendingAction == nil || state.PendingAction.Type != action.Type {
			continue
		}

		if action.NodeID != "" && action.NodeID != state.NodeID {
			continue
		}

		return state
	}

	return nil
}

func firstFailure(run *playRun) (string, string) {
	for _, node := range run.graph.Play().Nodes {
		if state := run.states[node.ID]; state != nil && state.Status == models.NodeStatusFailed {
			return state.NodeID, state.ErrorMessage
		}
	}

	return "", ""
}
