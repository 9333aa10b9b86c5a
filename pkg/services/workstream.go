package services

import (
	"context"
	"fmt"

	"github.com/dealgrid/playrun/pkg/engine"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
)

// Workstream exposes play execution over a workstream to the API layer. All
// mutating calls go through the engine; the service adds loading and
// request-shape checks only.
type Workstream struct {
	persistence persistence.Persistence
	engine      *engine.Engine
}

func NewWorkstream(p persistence.Persistence, eng *engine.Engine) *Workstream {
	return &Workstream{
		persistence: p,
		engine:      eng,
	}
}

// HealthCheck checks the health of the persistence layer.
func (s *Workstream) HealthCheck(ctx context.Context) (string, bool) {
	if s.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := s.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Advance loads the workstream and its play and runs the engine to a fixed
// point. Safe to call repeatedly; an unchanged frontier is a no-op.
func (s *Workstream) Advance(ctx context.Context, workstreamID string, user *models.CurrentUser) (*models.PlayExecutionOutcome, error) {
	if workstreamID == "" {
		return nil, ErrWorkstreamIDRequired
	}

	workstream, err := s.persistence.WorkstreamRepository().WorkstreamByID(ctx, workstreamID)
	if err != nil {
		return nil, fmt.Errorf("loading workstream: %w", err)
	}

	play, err := s.persistence.PlayRepository().PlayByID(ctx, workstream.PlayID)
	if err != nil {
		return nil, fmt.Errorf("loading play: %w", err)
	}

	return s.engine.ExecutePlay(ctx, workstream, play, user)
}

// Resume applies external input to the blocked node matching the action.
func (s *Workstream) Resume(ctx context.Context, workstreamID string, action *models.PendingAction, response map[string]any, user *models.CurrentUser) (*models.PlayExecutionOutcome, error) {
	if workstreamID == "" {
		return nil, ErrWorkstreamIDRequired
	}

	return s.engine.ResumePlayExecution(ctx, workstreamID, action, response, user)
}

// PendingAction returns what the workstream is currently waiting on, nil
// when nothing is blocked.
func (s *Workstream) PendingAction(ctx context.Context, workstreamID string) (*models.PendingAction, error) {
	if workstreamID == "" {
		return nil, ErrWorkstreamIDRequired
	}

	return s.engine.GetPendingAction(ctx, workstreamID)
}

// HasActivePlay reports whether a play run is in progress.
func (s *Workstream) HasActivePlay(ctx context.Context, workstreamID string) (bool, error) {
	if workstreamID == "" {
		return false, ErrWorkstreamIDRequired
	}

	return s.engine.HasActivePlay(ctx, workstreamID)
}

// Executions returns the node execution states of the workstream's play
// run, the read model behind the UI's progress view and the polling
// contract for async steps.
func (s *Workstream) Executions(ctx context.Context, workstreamID string) ([]*models.NodeExecutionState, error) {
	if workstreamID == "" {
		return nil, ErrWorkstreamIDRequired
	}

	workstream, err := s.persistence.WorkstreamRepository().WorkstreamByID(ctx, workstreamID)
	if err != nil {
		return nil, fmt.Errorf("loading workstream: %w", err)
	}

	return s.persistence.ExecutionStateRepository().NodeExecutionStates(ctx, workstreamID, workstream.PlayID)
}

// Activity returns the workstream's audit trail.
func (s *Workstream) Activity(ctx context.Context, workstreamID string) ([]*models.ActivityEntry, error) {
	if workstreamID == "" {
		return nil, ErrWorkstreamIDRequired
	}

	return s.persistence.ActivityRepository().ActivityByWorkstream(ctx, workstreamID)
}
