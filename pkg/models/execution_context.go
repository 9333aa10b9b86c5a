package models

// ExecutionContext carries everything a step brick receives for one node
// execution: the node's config, the workstream, the acting user and the
// outputs of completed upstream nodes.
type ExecutionContext struct {
	Node        *WorkflowNode       `json:"node"`
	Workstream  *Workstream         `json:"workstream"`
	User        *CurrentUser        `json:"user"`
	PriorState  *NodeExecutionState `json:"prior_state,omitempty"` // Set when resuming a blocked node
	NodeOutputs map[string]any      `json:"node_outputs,omitempty"`
}
