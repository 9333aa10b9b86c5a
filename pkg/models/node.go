package models

import "time"

// Built-in step types. The registry is string-keyed so deployments can add
// their own bricks, but unknown types fail at dispatch time.
const (
	StepTypeApproval    = "approval"
	StepTypeManualTask  = "manualtask"
	StepTypeDocGen      = "docgen"
	StepTypeNotify      = "notify"
	StepTypeFieldUpdate = "fieldupdate"
)

// WorkflowNode is a single step instance in a Play graph. Config is opaque to
// the scheduler; it is interpreted by the step brick selected via StepType.
type WorkflowNode struct {
	ID        string         `json:"id"        validate:"required"`
	PlayID    string         `json:"play_id"   validate:"required"`
	StepType  string         `json:"step_type" validate:"required"`
	Name      string         `json:"name"      validate:"required,min=1"`
	Config    map[string]any `json:"config"`
	PositionX int            `json:"position_x"` // Layout only, never execution-relevant
	PositionY int            `json:"position_y"`
}

// NodeStatus defines the possible states of a node execution.
type NodeStatus string

const (
	NodeStatusPending   NodeStatus = "pending"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusBlocked   NodeStatus = "blocked"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusSkipped   NodeStatus = "skipped"
)

// Terminal reports whether the status is final for this node: the scheduler
// never re-dispatches a node in a terminal status.
func (s NodeStatus) Terminal() bool {
	return s == NodeStatusCompleted || s == NodeStatusFailed || s == NodeStatusSkipped
}

// NodeExecutionState is the engine's persisted record for one reached node of
// one workstream. Created when the scheduler first finds the node reachable,
// transitioned exclusively by the scheduler, never deleted.
//
// Uniqueness invariant: at most one non-skipped state per
// (workstream_id, node_id).
type NodeExecutionState struct {
	WorkstreamID  string         `json:"workstream_id" validate:"required"`
	NodeID        string         `json:"node_id"       validate:"required"`
	PlayID        string         `json:"play_id"       validate:"required"`
	Status        NodeStatus     `json:"status"        validate:"required"`
	Output        map[string]any `json:"output,omitempty"`
	PendingAction *PendingAction `json:"pending_action,omitempty"` // Set while Status == blocked
	ErrorMessage  string         `json:"error_message,omitempty"`  // Set while Status == failed
	StartedAt     *time.Time     `json:"started_at,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// PendingAction describes the external input a blocked step is waiting for.
// Type selects the admissible responses; Params are step-specific.
type PendingAction struct {
	Type   string         `json:"type" validate:"required"`
	NodeID string         `json:"node_id"`
	Params map[string]any `json:"params,omitempty"`
}
