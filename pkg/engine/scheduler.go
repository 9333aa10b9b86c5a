package engine

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dealgrid/playrun/pkg/condition"
	"github.com/dealgrid/playrun/pkg/events"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/otelhelper"
)

// edgeResolution classifies an incoming edge during frontier computation.
type edgeResolution int

const (
	edgeUnresolved  edgeResolution = iota // Source not yet in a deciding state
	edgeTraversable                       // Source completed, guard admits
	edgeClosed                            // Resolved and not traversable
)

// runToFixedPoint repeats frontier computation and dispatch until nothing is
// runnable. A Failed outcome halts the run after the current pass; siblings
// already dispatched still get their outcomes applied.
func (e *Engine) runToFixedPoint(ctx context.Context, run *playRun) error {
	// A failed node halts the play permanently. Re-entry must not resolve
	// the failed node's edges and dispatch sibling-path successors.
	if nodeID, _ := firstFailure(run); nodeID != "" {
		return nil
	}

	for {
		frontier, skips := e.computeFrontier(run)

		for _, node := range skips {
			if err := e.applySkip(ctx, run, node); err != nil {
				return err
			}
		}

		if len(frontier) == 0 {
			if len(skips) > 0 {
				// Skips can close further edges downstream.
				continue
			}

			return nil
		}

		halted, err := e.dispatchFrontier(ctx, run, frontier)
		if err != nil {
			return err
		}

		if halted {
			return nil
		}
	}
}

// computeFrontier is a pure projection over the current states: pending
// nodes whose inbound edges have all resolved with at least one satisfied
// guard. Nodes whose inbound edges all resolved closed are returned as
// skips; neither decision is made while any inbound guard is undecided.
func (e *Engine) computeFrontier(run *playRun) ([]*models.WorkflowNode, []*models.WorkflowNode) {
	var frontier, skips []*models.WorkflowNode

	for _, node := range run.graph.Play().Nodes {
		if state := run.states[node.ID]; state != nil && state.Status != models.NodeStatusPending {
			continue
		}

		incoming := run.graph.IncomingEdges(node.ID)
		if len(incoming) == 0 {
			frontier = append(frontier, node)

			continue
		}

		traversable, unresolved := false, false

		for _, edge := range incoming {
			switch e.resolveEdge(run, edge) {
			case edgeTraversable:
				traversable = true
			case edgeUnresolved:
				unresolved = true
			case edgeClosed:
			}
		}

		// A join waits until every inbound edge has resolved: no node runs
		// while any guarding predecessor is still undecided.
		switch {
		case unresolved:
		case traversable:
			frontier = append(frontier, node)
		default:
			skips = append(skips, node)
		}
	}

	return frontier, skips
}

func (e *Engine) resolveEdge(run *playRun, edge *models.WorkflowEdge) edgeResolution {
	source := run.states[edge.FromNodeID]
	if source == nil {
		return edgeUnresolved
	}

	switch source.Status {
	case models.NodeStatusSkipped, models.NodeStatusFailed:
		return edgeClosed
	case models.NodeStatusCompleted:
	default:
		return edgeUnresolved
	}

	ok, err := condition.Evaluate(edge.Condition, run.workstream, source.Output)
	if err != nil {
		// Edge treated as non-traversable, never silently true.
		e.logger.Warn("Edge condition not evaluable",
			"workstream_id", run.workstream.ID,
			"edge_id", edge.ID,
			"error", err)

		return edgeClosed
	}

	if ok {
		return edgeTraversable
	}

	return edgeClosed
}

// dispatchFrontier marks every frontier node running, then executes each
// step and applies its outcome. Steps run one at a time: sibling nodes carry
// no ordering guarantee but share the workstream, so serializing both
// execution and outcome application keeps state writes race-free.
func (e *Engine) dispatchFrontier(ctx context.Context, run *playRun, frontier []*models.WorkflowNode) (bool, error) {
	outcomes := make([]models.StepOutcome, len(frontier))

	for _, node := range frontier {
		if err := e.markRunning(ctx, run, node); err != nil {
			return false, err
		}
	}

	for i, node := range frontier {
		outcomes[i] = e.executeNode(ctx, run, node)
	}

	halted := false

	for i, node := range frontier {
		if err := e.applyOutcome(ctx, run, node, outcomes[i]); err != nil {
			return false, err
		}

		if outcomes[i].Kind == models.OutcomeFailed {
			halted = true
		}
	}

	return halted, nil
}

func (e *Engine) executeNode(ctx context.Context, run *playRun, node *models.WorkflowNode) models.StepOutcome {
	nodeCtx, span := e.tracer.Start(ctx, "playrun.execute_node", trace.WithAttributes(
		attribute.String(otelhelper.WorkstreamIDKey, run.workstream.ID),
		attribute.String(otelhelper.NodeIDKey, node.ID),
		attribute.String(otelhelper.StepTypeKey, node.StepType),
	))
	defer span.End()

	step, err := e.registry.CreateStep(nodeCtx, node.StepType, node.ID, node.Config)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.FailedOutcome(err)
	}

	outcome, err := step.Execute(nodeCtx, run.executionContext(node, nil), e.logger)
	if err != nil {
		outcome = models.FailedOutcome(err)
	}

	if outcome.Kind == models.OutcomeFailed {
		otelhelper.SetError(span, outcome.Err)
	}

	return outcome
}

func (e *Engine) markRunning(ctx context.Context, run *playRun, node *models.WorkflowNode) error {
	state := run.states[node.ID]
	if state == nil {
		state = &models.NodeExecutionState{
			WorkstreamID: run.workstream.ID,
			NodeID:       node.ID,
			PlayID:       run.graph.Play().ID,
		}
		run.states[node.ID] = state
	}

	startedAt := time.Now().UTC()
	state.Status = models.NodeStatusRunning
	state.StartedAt = &startedAt

	if err := e.stateRepo().UpsertNodeExecutionState(ctx, state); err != nil {
		return err
	}

	run.changed = true

	return nil
}

// applyOutcome persists one step outcome and records its activity and event.
func (e *Engine) applyOutcome(ctx context.Context, run *playRun, node *models.WorkflowNode, outcome models.StepOutcome) error {
	// A blocked outcome must name what it is waiting on; without a pending
	// action the node could never be resumed.
	if outcome.Kind == models.OutcomeBlocked && outcome.PendingAction == nil {
		outcome = models.FailedOutcome(errors.New("step blocked without a pending action"))
	}

	state := run.states[node.ID]
	now := time.Now().UTC()

	switch outcome.Kind {
	case models.OutcomeCompleted:
		state.Status = models.NodeStatusCompleted
		state.Output = outcome.Output
		state.CompletedAt = &now
		state.PendingAction = nil
		state.ErrorMessage = ""

		if err := e.stateRepo().UpsertNodeExecutionState(ctx, state); err != nil {
			return err
		}

		// Declared output fields may have been written back by the step.
		if err := e.persistence.WorkstreamRepository().SaveWorkstream(ctx, run.workstream); err != nil {
			return err
		}

		e.logger.Info("Node completed",
			"workstream_id", run.workstream.ID,
			"node_id", node.ID,
			"step_type", node.StepType)

		e.appendActivity(ctx, run, models.ActivityNodeCompleted, node.ID, map[string]any{
			"step_type": node.StepType,
		})
		e.publish(ctx, run.workstream.ID, events.NodeCompleted{
			BaseEvent: baseEvent(events.NodeCompletedEvent, run),
			NodeID:    node.ID,
			StepType:  node.StepType,
			Output:    outcome.Output,
		})

	case models.OutcomeBlocked:
		state.Status = models.NodeStatusBlocked
		state.PendingAction = outcome.PendingAction

		if err := e.stateRepo().UpsertNodeExecutionState(ctx, state); err != nil {
			return err
		}

		e.logger.Info("Node blocked awaiting input",
			"workstream_id", run.workstream.ID,
			"node_id", node.ID,
			"action_type", outcome.PendingAction.Type)

		e.appendActivity(ctx, run, models.ActivityNodeBlocked, node.ID, map[string]any{
			"action_type": outcome.PendingAction.Type,
		})
		e.publish(ctx, run.workstream.ID, events.NodeBlocked{
			BaseEvent:     baseEvent(events.NodeBlockedEvent, run),
			NodeID:        node.ID,
			StepType:      node.StepType,
			PendingAction: outcome.PendingAction,
		})

	case models.OutcomeFailed:
		state.Status = models.NodeStatusFailed
		state.ErrorMessage = outcome.Err.Error()
		state.CompletedAt = &now
		state.PendingAction = nil

		if err := e.stateRepo().UpsertNodeExecutionState(ctx, state); err != nil {
			return err
		}

		e.logger.Error("Node failed",
			"workstream_id", run.workstream.ID,
			"node_id", node.ID,
			"step_type", node.StepType,
			"error", outcome.Err)

		e.appendActivity(ctx, run, models.ActivityNodeFailed, node.ID, map[string]any{
			"step_type": node.StepType,
			"error":     outcome.Err.Error(),
		})
		e.publish(ctx, run.workstream.ID, events.NodeFailed{
			BaseEvent: baseEvent(events.NodeFailedEvent, run),
			NodeID:    node.ID,
			StepType:  node.StepType,
			Error:     outcome.Err.Error(),
		})
	}

	run.changed = true

	return nil
}

// applySkip records a skipped node: reached only by edges that have resolved
// closed. A skipped state is terminal and keeps the play from deadlocking.
func (e *Engine) applySkip(ctx context.Context, run *playRun, node *models.WorkflowNode) error {
	state := run.states[node.ID]
	if state == nil {
		state = &models.NodeExecutionState{
			WorkstreamID: run.workstream.ID,
			NodeID:       node.ID,
			PlayID:       run.graph.Play().ID,
		}
		run.states[node.ID] = state
	}

	state.Status = models.NodeStatusSkipped

	if err := e.stateRepo().UpsertNodeExecutionState(ctx, state); err != nil {
		return err
	}

	run.changed = true

	e.logger.Info("Node skipped",
		"workstream_id", run.workstream.ID,
		"node_id", node.ID)

	e.appendActivity(ctx, run, models.ActivityNodeSkipped, node.ID, nil)
	e.publish(ctx, run.workstream.ID, events.NodeSkipped{
		BaseEvent: baseEvent(events.NodeSkippedEvent, run),
		NodeID:    node.ID,
	})

	return nil
}

// deriveStatus projects the aggregate play status over the current states.
// A run whose reached branches are all terminal but whose terminal node
// never completed is reported Running: it cannot advance without a play
// definition fix, and the stuck frontier is visible in the states.
func (e *Engine) deriveStatus(run *playRun) models.PlayStatus {
	if len(run.states) == 0 {
		return models.PlayStatusNotStarted
	}

	anyFailed, anyBlocked, anyInFlight := false, false, false

	for _, state := range run.states {
		switch state.Status {
		case models.NodeStatusFailed:
			anyFailed = true
		case models.NodeStatusBlocked:
			anyBlocked = true
		case models.NodeStatusCompleted, models.NodeStatusSkipped:
		default:
			anyInFlight = true
		}
	}

	if anyFailed {
		return models.PlayStatusFailed
	}

	if anyBlocked {
		return models.PlayStatusAwaitingInput
	}

	if !anyInFlight {
		for _, terminal := range run.graph.TerminalNodes() {
			if state := run.states[terminal.ID]; state != nil && state.Status == models.NodeStatusCompleted {
				return models.PlayStatusCompleted
			}
		}
	}

	return models.PlayStatusRunning
}
