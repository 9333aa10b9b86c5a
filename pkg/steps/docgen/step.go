// Package docgen provides the document generation step. It renders a body
// template over the workstream's fields and upstream outputs and completes
// with the rendered artifact.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
	"github.com/dealgrid/playrun/pkg/template"
)

type DocGenStep struct {
	id           string
	documentName string
	body         string
}

func NewDocGenStep(id string, config map[string]any) (*DocGenStep, error) {
	body, ok := config["template"].(string)
	if !ok || body == "" {
		return nil, errors.New("missing required field 'template'")
	}

	documentName, _ := config["document_name"].(string)
	if documentName == "" {
		documentName = "document"
	}

	return &DocGenStep{
		id:           id,
		documentName: documentName,
		body:         body,
	}, nil
}

func (s *DocGenStep) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (models.StepOutcome, error) {
	rendered, err := template.RenderWithContext(s.body, &execCtx)
	if err != nil {
		return models.FailedOutcome(fmt.Errorf("document rendering failed: %w", err)), nil
	}

	name, err := template.RenderWithContext(s.documentName, &execCtx)
	if err != nil {
		return models.FailedOutcome(fmt.Errorf("document name rendering failed: %w", err)), nil
	}

	documentID := uuid.NewString()

	logger.Info("Document generated", "document_id", documentID, "document_name", name)

	return models.CompletedOutcome(map[string]any{
		"document_id":   documentID,
		"document_name": fmt.Sprintf("%v", name),
		"body":          fmt.Sprintf("%v", rendered),
		"generated_at":  time.Now().UTC().Format(time.RFC3339),
	}), nil
}

// Resume is never valid: document generation does not block.
func (s *DocGenStep) Resume(ctx context.Context, execCtx models.ExecutionContext, action *models.PendingAction, response map[string]any, logger *slog.Logger) (models.StepOutcome, error) {
	return models.StepOutcome{}, fmt.Errorf("%w: document generation does not block", protocol.ErrInvalidResumption)
}
