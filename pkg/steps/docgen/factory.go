package docgen

import (
	"context"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
)

type DocGenStepFactory struct{}

func NewDocGenStepFactory() protocol.StepFactory {
	return &DocGenStepFactory{}
}

func (f *DocGenStepFactory) Create(ctx context.Context, nodeID string, config map[string]any) (protocol.Step, error) {
	return NewDocGenStep(nodeID, config)
}

func (f *DocGenStepFactory) ID() string {
	return models.StepTypeDocGen
}

func (f *DocGenStepFactory) Name() string {
	return "Document Generation"
}

func (f *DocGenStepFactory) Description() string {
	return "Renders a document from a template over workstream fields and upstream step outputs."
}

func (f *DocGenStepFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"template": map[string]any{
				"type":        "string",
				"description": "Go template for the document body. Fields, node outputs and the acting user are in scope.",
				"examples": []string{
					"Engagement letter for {{.fields.counterparty_id}}, annual value {{.fields.annual_value}}.",
					"Approved by {{.node_outputs.legal_approval.decided_by}} on {{now}}.",
				},
			},
			"document_name": map[string]any{
				"type":        "string",
				"description": "Template for the document name. Defaults to 'document'.",
			},
		},
		"required": []string{"template"},
	}
}
