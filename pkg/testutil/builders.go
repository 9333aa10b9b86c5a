// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/dealgrid/playrun/pkg/models"
)

// CreateTestNode creates a test WorkflowNode with default values that can be
// overridden.
func CreateTestNode(overrides ...func(*models.WorkflowNode)) *models.WorkflowNode {
	node := &models.WorkflowNode{
		ID:        uuid.New().String(),
		PlayID:    "test-play",
		StepType:  models.StepTypeManualTask,
		Name:      "Test Node",
		Config:    map[string]any{"title": "test task"},
		PositionX: 100,
		PositionY: 200,
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithID sets the node ID.
func WithID(id string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.ID = id
	}
}

// WithStepType sets the node step type.
func WithStepType(stepType string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.StepType = stepType
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Config = config
	}
}

// WithName sets the node name.
func WithName(name string) func(*models.WorkflowNode) {
	return func(n *models.WorkflowNode) {
		n.Name = name
	}
}

// CreateTestEdge creates an unconditional edge between two nodes.
func CreateTestEdge(fromNodeID, toNodeID string, overrides ...func(*models.WorkflowEdge)) *models.WorkflowEdge {
	edge := &models.WorkflowEdge{
		ID:         uuid.New().String(),
		PlayID:     "test-play",
		FromNodeID: fromNodeID,
		ToNodeID:   toNodeID,
	}

	for _, override := range overrides {
		override(edge)
	}

	return edge
}

// WithCondition guards the edge.
func WithCondition(cond *models.EdgeCondition) func(*models.WorkflowEdge) {
	return func(e *models.WorkflowEdge) {
		e.Condition = cond
	}
}

// CreateTestPlay creates a test play over the given nodes and edges.
func CreateTestPlay(nodes []*models.WorkflowNode, edges []*models.WorkflowEdge, overrides ...func(*models.Play)) *models.Play {
	play := &models.Play{
		ID:        "test-play",
		Name:      "Test Play",
		Nodes:     nodes,
		Edges:     edges,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(play)
	}

	return play
}

// CreateTestWorkstream creates a workstream bound to the test play.
func CreateTestWorkstream(overrides ...func(*models.Workstream)) *models.Workstream {
	workstream := &models.Workstream{
		ID:     uuid.New().String(),
		PlayID: "test-play",
		Name:   "Test Workstream",
		Stage:  "qualification",
		Fields: map[string]any{
			models.FieldAnnualValue:    50000,
			models.FieldTier:           "standard",
			models.FieldCounterpartyID: "acme-corp",
		},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(workstream)
	}

	return workstream
}

// WithFields replaces the workstream's business fields.
func WithFields(fields map[string]any) func(*models.Workstream) {
	return func(w *models.Workstream) {
		w.Fields = fields
	}
}

// WithWorkstreamID sets the workstream ID.
func WithWorkstreamID(id string) func(*models.Workstream) {
	return func(w *models.Workstream) {
		w.ID = id
	}
}

// CreateTestUser creates a user with the given roles.
func CreateTestUser(roles ...string) *models.CurrentUser {
	return &models.CurrentUser{
		ID:    uuid.New().String(),
		Name:  "Test User",
		Email: "test@example.com",
		Roles: roles,
	}
}
