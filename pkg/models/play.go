// Package models defines the core domain models for play-driven workstream execution.
package models

import "time"

// Play is a reusable workflow template: a DAG of typed steps connected by
// optionally guarded edges. A Play is owned by the template-authoring
// subsystem; the engine treats it as read-only.
type Play struct {
	ID        string          `json:"id"         validate:"required"`
	Name      string          `json:"name"       validate:"required,min=3"`
	Nodes     []*WorkflowNode `json:"nodes"`
	Edges     []*WorkflowEdge `json:"edges"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NodeByID returns the node with the given ID, or nil if the play has none.
func (p *Play) NodeByID(nodeID string) *WorkflowNode {
	for _, node := range p.Nodes {
		if node.ID == nodeID {
			return node
		}
	}

	return nil
}
