package manualtask

import (
	"context"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
)

type ManualTaskStepFactory struct{}

func NewManualTaskStepFactory() protocol.StepFactory {
	return &ManualTaskStepFactory{}
}

func (f *ManualTaskStepFactory) Create(ctx context.Context, nodeID string, config map[string]any) (protocol.Step, error) {
	return NewManualTaskStep(nodeID, config)
}

func (f *ManualTaskStepFactory) ID() string {
	return models.StepTypeManualTask
}

func (f *ManualTaskStepFactory) Name() string {
	return "Manual Task"
}

func (f *ManualTaskStepFactory) Description() string {
	return "Opens a to-do that blocks the workstream until a user marks it done."
}

func (f *ManualTaskStepFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{
				"type":        "string",
				"description": "Short task title shown to the assignee.",
			},
			"description": map[string]any{
				"type":        "string",
				"description": "Longer instructions for completing the task.",
			},
			"assignee_role": map[string]any{
				"type":        "string",
				"description": "Role the task is routed to. Informational, not enforced on completion.",
			},
		},
		"required": []string{"title"},
	}
}
