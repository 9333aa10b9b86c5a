// Package protocol defines the interfaces and contracts for pluggable step
// bricks.
package protocol

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dealgrid/playrun/pkg/models"
)

// ErrInvalidResumption indicates a resume call whose user response does not
// match the recorded pending action. The step rejects it and state is left
// unchanged; the caller must retry with admissible input.
var ErrInvalidResumption = errors.New("invalid resumption")

// Step executes exactly one node for one workstream. Implementations may
// mutate declared workstream output fields and call external collaborators;
// those side effects must be idempotent on retry, the executor provides no
// transactional rollback across them.
type Step interface {
	// Execute runs the step to completion, suspension or failure. An error
	// return is an infrastructure failure and is treated like a Failed
	// outcome by the scheduler.
	Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (models.StepOutcome, error)

	// Resume is called when a previously blocked step receives external
	// input. Implementations must validate that response is admissible for
	// the recorded action before transitioning, returning ErrInvalidResumption
	// otherwise.
	Resume(ctx context.Context, execCtx models.ExecutionContext, action *models.PendingAction, response map[string]any, logger *slog.Logger) (models.StepOutcome, error)
}

// StepFactory creates step instances and provides metadata about the step
// type.
type StepFactory interface {
	// Create creates a new step instance with the given node configuration.
	Create(ctx context.Context, nodeID string, config map[string]any) (Step, error)

	// ID returns the unique step_type identifier for this factory.
	ID() string

	// Name returns the human-readable name for this step type.
	Name() string

	// Description returns a description of what this step does.
	Description() string

	// Schema returns the JSON schema for configuring this step type.
	Schema() map[string]any
}
