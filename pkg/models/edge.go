package models

// ConditionOperator is the comparator of an edge guard expression.
type ConditionOperator string

const (
	OperatorLessThan    ConditionOperator = "less_than"
	OperatorGreaterThan ConditionOperator = "greater_than"
	OperatorEquals      ConditionOperator = "equals"
	OperatorBetween     ConditionOperator = "between" // Inclusive on both bounds
)

// EdgeCondition is the closed guard grammar evaluated against workstream
// fields and the completed source node's output. Metric names the value to
// compare; Value2 is only set for between.
type EdgeCondition struct {
	Metric   string            `json:"metric"   validate:"required"`
	Operator ConditionOperator `json:"operator" validate:"required,oneof=less_than greater_than equals between"`
	Value    any               `json:"value"`
	Value2   any               `json:"value2,omitempty"`
}

// WorkflowEdge is a directed transition between two nodes of a Play. A nil
// Condition means the edge is unconditional. If a node has multiple outgoing
// edges, at most one may be unconditional (the fallback).
type WorkflowEdge struct {
	ID         string         `json:"id"           validate:"required"`
	PlayID     string         `json:"play_id"      validate:"required"`
	FromNodeID string         `json:"from_node_id" validate:"required"`
	ToNodeID   string         `json:"to_node_id"   validate:"required"`
	Condition  *EdgeCondition `json:"condition,omitempty"`
}

// Unconditional reports whether the edge carries no guard.
func (e *WorkflowEdge) Unconditional() bool {
	return e.Condition == nil
}
