// Package notify provides the notification step. It renders a subject and
// body and publishes a notification request onto the event bus; delivery
// channels consume the event downstream.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealgrid/playrun/pkg/eventbus"
	"github.com/dealgrid/playrun/pkg/events"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
	"github.com/dealgrid/playrun/pkg/template"
)

type NotifyStep struct {
	id         string
	recipients []string
	subject    string
	body       string
	publisher  eventbus.EventPublisher
}

func NewNotifyStep(id string, config map[string]any, publisher eventbus.EventPublisher) (*NotifyStep, error) {
	subject, ok := config["subject"].(string)
	if !ok || subject == "" {
		return nil, errors.New("missing required field 'subject'")
	}

	recipients, err := parseRecipients(config["recipients"])
	if err != nil {
		return nil, err
	}

	body, _ := config["body"].(string)

	return &NotifyStep{
		id:         id,
		recipients: recipients,
		subject:    subject,
		body:       body,
		publisher:  publisher,
	}, nil
}

func parseRecipients(raw any) ([]string, error) {
	items, ok := raw.([]any)
	if !ok || len(items) == 0 {
		return nil, errors.New("missing required field 'recipients'")
	}

	recipients := make([]string, 0, len(items))

	for _, item := range items {
		recipient, ok := item.(string)
		if !ok || recipient == "" {
			return nil, errors.New("'recipients' entries must be non-empty strings")
		}

		recipients = append(recipients, recipient)
	}

	return recipients, nil
}

func (s *NotifyStep) Execute(ctx context.Context, execCtx models.ExecutionContext, logger *slog.Logger) (models.StepOutcome, error) {
	subject, err := template.RenderWithContext(s.subject, &execCtx)
	if err != nil {
		return models.FailedOutcome(fmt.Errorf("subject rendering failed: %w", err)), nil
	}

	body, err := template.RenderWithContext(s.body, &execCtx)
	if err != nil {
		return models.FailedOutcome(fmt.Errorf("body rendering failed: %w", err)), nil
	}

	event := events.NotificationRequested{
		BaseEvent: events.BaseEvent{
			ID:           uuid.NewString(),
			Type:         events.NotificationRequestedEvent,
			Timestamp:    time.Now().UTC(),
			WorkstreamID: workstreamID(execCtx.Workstream),
			PlayID:       workstreamPlayID(execCtx.Workstream),
		},
		NodeID:     s.id,
		Recipients: s.recipients,
		Subject:    fmt.Sprintf("%v", subject),
		Body:       fmt.Sprintf("%v", body),
	}

	if s.publisher == nil {
		return models.FailedOutcome(errors.New("no event bus configured for notifications")), nil
	}

	if err := s.publisher.Publish(ctx, event.WorkstreamID, event); err != nil {
		return models.FailedOutcome(fmt.Errorf("notification publish failed: %w", err)), nil
	}

	logger.Info("Notification requested", "node_id", s.id, "recipients", len(s.recipients))

	return models.CompletedOutcome(map[string]any{
		"notified":   true,
		"recipients": s.recipients,
		"subject":    event.Subject,
	}), nil
}

// Resume is never valid: notification does not block.
func (s *NotifyStep) Resume(ctx context.Context, execCtx models.ExecutionContext, action *models.PendingAction, response map[string]any, logger *slog.Logger) (models.StepOutcome, error) {
	return models.StepOutcome{}, fmt.Errorf("%w: notification does not block", protocol.ErrInvalidResumption)
}

func workstreamID(workstream *models.Workstream) string {
	if workstream == nil {
		return ""
	}

	return workstream.ID
}

func workstreamPlayID(workstream *models.Workstream) string {
	if workstream == nil {
		return ""
	}

	return workstream.PlayID
}
