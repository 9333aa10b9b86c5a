package models

// StepOutcomeKind tags the variant of a StepOutcome.
type StepOutcomeKind string

const (
	OutcomeCompleted StepOutcomeKind = "completed"
	OutcomeBlocked   StepOutcomeKind = "blocked"
	OutcomeFailed    StepOutcomeKind = "failed"
)

// StepOutcome is the tagged result of executing one step: exactly one of
// Output, PendingAction or Err is meaningful, selected by Kind.
type StepOutcome struct {
	Kind          StepOutcomeKind
	Output        map[string]any
	PendingAction *PendingAction
	Err           error
}

// CompletedOutcome builds a Completed outcome with the step's output payload.
func CompletedOutcome(output map[string]any) StepOutcome {
	return StepOutcome{Kind: OutcomeCompleted, Output: output}
}

// BlockedOutcome builds a Blocked outcome awaiting the given external input.
func BlockedOutcome(action *PendingAction) StepOutcome {
	return StepOutcome{Kind: OutcomeBlocked, PendingAction: action}
}

// FailedOutcome builds a Failed outcome carrying the step error.
func FailedOutcome(err error) StepOutcome {
	return StepOutcome{Kind: OutcomeFailed, Err: err}
}

// PlayStatus is the aggregate state of a workstream's play run, projected
// over its node execution states.
type PlayStatus string

const (
	PlayStatusNotStarted    PlayStatus = "not_started"
	PlayStatusRunning       PlayStatus = "running"
	PlayStatusAwaitingInput PlayStatus = "awaiting_input"
	PlayStatusCompleted     PlayStatus = "completed"
	PlayStatusFailed        PlayStatus = "failed"
)

// PlayExecutionOutcome is returned to the caller after each engine
// invocation: the aggregate status plus the states as they stand.
type PlayExecutionOutcome struct {
	WorkstreamID   string                `json:"workstream_id"`
	PlayID         string                `json:"play_id"`
	Status         PlayStatus            `json:"status"`
	States         []*NodeExecutionState `json:"states"`
	PendingActions []*PendingAction      `json:"pending_actions,omitempty"`
}
