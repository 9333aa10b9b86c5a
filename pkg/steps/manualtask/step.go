// Package manualtask provides the human to-do step. It blocks until a user
// marks the task done.
package manualtask

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
)

const ActionType = "task_completion"

type ManualTaskStep struct {
	id           string
	title        string
	description  string
	assigneeRole string
}

func NewManualTaskStep(id string, config map[string]any) (*ManualTaskStep, error) {
	title, ok := config["title"].(string)
	if !ok || title == "" {
		return nil, errors.New("missing required field 'title'")
	}

	description, _ := config["description"].(string)
	assigneeRole, _ := config["assignee_role"].(string)

	return &ManualTaskStep{
		id:           id,
		title:        title,
		description:  description,
		assigneeRole: assigneeRole,
	}, nil
}

func (s *ManualTaskStep) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (models.StepOutcome, error) {
	params := map[string]any{"title": s.title}
	if s.description != "" {
		params["description"] = s.description
	}

	if s.assigneeRole != "" {
		params["assignee_role"] = s.assigneeRole
	}

	logger.Info("Manual task opened", "title", s.title, "node_id", s.id)

	return models.BlockedOutcome(&models.PendingAction{
		Type:   ActionType,
		NodeID: s.id,
		Params: params,
	}), nil
}

// Resume completes the task. The response must carry done=true; anything
// else leaves the task open.
func (s *ManualTaskStep) Resume(ctx context.Context, execCtx models.ExecutionContext, action *models.PendingAction, response map[string]any, logger *slog.Logger) (models.StepOutcome, error) {
	if action == nil || action.Type != ActionType {
		return models.StepOutcome{}, fmt.Errorf("%w: expected pending action %q", protocol.ErrInvalidResumption, ActionType)
	}

	done, _ := response["done"].(bool)
	if !done {
		return models.StepOutcome{}, fmt.Errorf("%w: response must carry done=true", protocol.ErrInvalidResumption)
	}

	output := map[string]any{
		"title": s.title,
		"done":  true,
	}
	if execCtx.User != nil {
		output["completed_by"] = execCtx.User.ID
	}

	if notes, ok := response["notes"].(string); ok && notes != "" {
		output["notes"] = notes
	}

	logger.Info("Manual task completed", "title", s.title, "node_id", s.id)

	return models.CompletedOutcome(output), nil
}
