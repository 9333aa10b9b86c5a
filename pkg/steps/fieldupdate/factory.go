package fieldupdate

import (
	"context"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
)

type FieldUpdateStepFactory struct{}

func NewFieldUpdateStepFactory() protocol.StepFactory {
	return &FieldUpdateStepFactory{}
}

func (f *FieldUpdateStepFactory) Create(ctx context.Context, nodeID string, config map[string]any) (protocol.Step, error) {
	return NewFieldUpdateStep(nodeID, config)
}

func (f *FieldUpdateStepFactory) ID() string {
	return models.StepTypeFieldUpdate
}

func (f *FieldUpdateStepFactory) Name() string {
	return "Field Update"
}

func (f *FieldUpdateStepFactory) Description() string {
	return "Writes declared output fields back onto the workstream."
}

func (f *FieldUpdateStepFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"fields": map[string]any{
				"type":        "object",
				"minProperties": 1,
				"description": "Field name to value. String values are rendered as templates before writing.",
				"examples": []map[string]any{
					{"stage": "closed_won"},
					{"tier": "{{.node_outputs.scoring.tier}}"},
				},
			},
		},
		"required": []string{"fields"},
	}
}
