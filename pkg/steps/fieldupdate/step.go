// Package fieldupdate provides the field update step. It writes declared
// output fields back onto the workstream, rendering string values against
// the execution context first.
package fieldupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
	"github.com/dealgrid/playrun/pkg/template"
)

type FieldUpdateStep struct {
	id     string
	fields map[string]any
}

func NewFieldUpdateStep(id string, config map[string]any) (*FieldUpdateStep, error) {
	fields, ok := config["fields"].(map[string]any)
	if !ok || len(fields) == 0 {
		return nil, errors.New("missing required field 'fields'")
	}

	return &FieldUpdateStep{
		id:     id,
		fields: fields,
	}, nil
}

func (s *FieldUpdateStep) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (models.StepOutcome, error) {
	if execCtx.Workstream == nil {
		return models.FailedOutcome(errors.New("no workstream in execution context")), nil
	}

	written := make(map[string]any, len(s.fields))

	for name, raw := range s.fields {
		value := raw

		if templated, ok := raw.(string); ok {
			rendered, err := template.RenderWithContext(templated, &execCtx)
			if err != nil {
				return models.FailedOutcome(fmt.Errorf("rendering field %q failed: %w", name, err)), nil
			}

			value = rendered
		}

		execCtx.Workstream.SetField(name, value)
		written[name] = value
	}

	logger.Info("Workstream fields updated", "node_id", s.id, "fields", len(written))

	return models.CompletedOutcome(written), nil
}

// Resume is never valid: field updates do not block.
func (s *FieldUpdateStep) Resume(ctx context.Context, execCtx models.ExecutionContext, action *models.PendingAction, response map[string]any, logger *slog.Logger) (models.StepOutcome, error) {
	return models.StepOutcome{}, fmt.Errorf("%w: field update does not block", protocol.ErrInvalidResumption)
}
