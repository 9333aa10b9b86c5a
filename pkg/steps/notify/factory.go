package notify

import (
	"context"

	"github.com/dealgrid/playrun/pkg/eventbus"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
)

type NotifyStepFactory struct {
	publisher eventbus.EventPublisher
}

func NewNotifyStepFactory(publisher eventbus.EventPublisher) protocol.StepFactory {
	return &NotifyStepFactory{publisher: publisher}
}

func (f *NotifyStepFactory) Create(ctx context.Context, nodeID string, config map[string]any) (protocol.Step, error) {
	return NewNotifyStep(nodeID, config, f.publisher)
}

func (f *NotifyStepFactory) ID() string {
	return models.StepTypeNotify
}

func (f *NotifyStepFactory) Name() string {
	return "Notify"
}

func (f *NotifyStepFactory) Description() string {
	return "Publishes a notification request to the event bus for downstream delivery channels."
}

func (f *NotifyStepFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"recipients": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"minItems":    1,
				"description": "Recipient addresses or channel identifiers.",
			},
			"subject": map[string]any{
				"type":        "string",
				"description": "Subject template. Fields, node outputs and the acting user are in scope.",
			},
			"body": map[string]any{
				"type":        "string",
				"description": "Body template.",
			},
		},
		"required": []string{"recipients", "subject"},
	}
}
