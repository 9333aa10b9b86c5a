// Package approval provides the approval gate step. Execution always blocks
// waiting for an approval decision; Resume applies the decision.
package approval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
)

const ActionType = "approval_decision"

const (
	DecisionApproved = "approved"
	DecisionRejected = "rejected"
)

const (
	onRejectFail     = "fail"
	onRejectComplete = "complete"
)

type ApprovalStep struct {
	id           string
	gate         string
	approverRole string
	onReject     string
}

func NewApprovalStep(id string, config map[string]any) (*ApprovalStep, error) {
	gate, ok := config["gate"].(string)
	if !ok || gate == "" {
		return nil, errors.New("missing required field 'gate'")
	}

	approverRole, _ := config["approver_role"].(string)

	onReject, _ := config["on_reject"].(string)
	if onReject == "" {
		onReject = onRejectFail
	}

	if onReject != onRejectFail && onReject != onRejectComplete {
		return nil, fmt.Errorf("invalid 'on_reject' value %q", onReject)
	}

	return &ApprovalStep{
		id:           id,
		gate:         gate,
		approverRole: approverRole,
		onReject:     onReject,
	}, nil
}

// Execute never completes directly: the gate blocks until a decision arrives.
func (s *ApprovalStep) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (models.StepOutcome, error) {
	params := map[string]any{"gate": s.gate}
	if s.approverRole != "" {
		params["approver_role"] = s.approverRole
	}

	logger.Info("Approval gate reached", "gate", s.gate, "node_id", s.id)

	return models.BlockedOutcome(&models.PendingAction{
		Type:   ActionType,
		NodeID: s.id,
		Params: params,
	}), nil
}

// Resume applies the recorded decision. The response must carry
// decision approved or rejected, and when the gate declares an approver
// role the acting user must hold it.
func (s *ApprovalStep) Resume(ctx context.Context, execCtx models.ExecutionContext, action *models.PendingAction, response map[string]any, logger *slog.Logger) (models.StepOutcome, error) {
	if action == nil || action.Type != ActionType {
		return models.StepOutcome{}, fmt.Errorf("%w: expected pending action %q", protocol.ErrInvalidResumption, ActionType)
	}

	decision, _ := response["decision"].(string)
	if decision != DecisionApproved && decision != DecisionRejected {
		return models.StepOutcome{}, fmt.Errorf("%w: decision must be %q or %q", protocol.ErrInvalidResumption, DecisionApproved, DecisionRejected)
	}

	if s.approverRole != "" {
		if execCtx.User == nil || !execCtx.User.HasRole(s.approverRole) {
			return models.StepOutcome{}, fmt.Errorf("%w: user lacks role %q", protocol.ErrInvalidResumption, s.approverRole)
		}
	}

	output := map[string]any{
		"gate":     s.gate,
		"decision": decision,
	}
	if execCtx.User != nil {
		output["decided_by"] = execCtx.User.ID
	}

	if comment, ok := response["comment"].(string); ok && comment != "" {
		output["comment"] = comment
	}

	logger.Info("Approval decision recorded", "gate", s.gate, "decision", decision)

	if decision == DecisionRejected && s.onReject == onRejectFail {
		return models.FailedOutcome(fmt.Errorf("approval gate %q rejected", s.gate)), nil
	}

	return models.CompletedOutcome(output), nil
}
