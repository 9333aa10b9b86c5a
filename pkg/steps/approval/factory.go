package approval

import (
	"context"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
)

type ApprovalStepFactory struct{}

func NewApprovalStepFactory() protocol.StepFactory {
	return &ApprovalStepFactory{}
}

func (f *ApprovalStepFactory) Create(ctx context.Context, nodeID string, config map[string]any) (protocol.Step, error) {
	return NewApprovalStep(nodeID, config)
}

func (f *ApprovalStepFactory) ID() string {
	return models.StepTypeApproval
}

func (f *ApprovalStepFactory) Name() string {
	return "Approval"
}

func (f *ApprovalStepFactory) Description() string {
	return "Blocks the workstream at a named gate until a user records an approved or rejected decision."
}

func (f *ApprovalStepFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"gate": map[string]any{
				"type":        "string",
				"description": "Name of the approval gate, recorded on the pending action.",
				"examples":    []string{"legal_review", "finance_signoff"},
			},
			"approver_role": map[string]any{
				"type":        "string",
				"description": "Role the deciding user must hold. Empty means any user may decide.",
			},
			"on_reject": map[string]any{
				"type":        "string",
				"enum":        []string{onRejectFail, onRejectComplete},
				"description": "Whether a rejection fails the node or completes it with decision output for edge routing.",
				"default":     onRejectFail,
			},
		},
		"required": []string{"gate"},
	}
}
