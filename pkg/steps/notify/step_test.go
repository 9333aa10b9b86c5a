package notify

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealgrid/playrun/pkg/eventbus"
	"github.com/dealgrid/playrun/pkg/events"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/protocol"
)

type capturePublisher struct {
	published []eventbus.Event
	err       error
}

func (p *capturePublisher) Publish(_ context.Context, _ string, event eventbus.Event) error {
	if p.err != nil {
		return p.err
	}

	p.published = append(p.published, event)

	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestNotifyStepExecutePublishes(t *testing.T) {
	publisher := &capturePublisher{}

	step, err := NewNotifyStep("notify-1", map[string]any{
		"recipients": []any{"deals@example.com"},
		"subject":    "Play update for {{.fields.counterparty_id}}",
		"body":       "Stage: {{.workstream.stage}}",
	}, publisher)
	require.NoError(t, err)

	execCtx := models.ExecutionContext{
		Workstream: &models.Workstream{
			ID:     "ws-1",
			PlayID: "play-1",
			Stage:  "negotiation",
			Fields: map[string]any{models.FieldCounterpartyID: "acme-corp"},
		},
	}

	outcome, err := step.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeCompleted, outcome.Kind)
	assert.Equal(t, true, outcome.Output["notified"])

	require.Len(t, publisher.published, 1)

	event, ok := publisher.published[0].(events.NotificationRequested)
	require.True(t, ok)
	assert.Equal(t, "ws-1", event.WorkstreamID)
	assert.Equal(t, "Play update for acme-corp", event.Subject)
	assert.Equal(t, "Stage: negotiation", event.Body)
	assert.Equal(t, []string{"deals@example.com"}, event.Recipients)
}

func TestNotifyStepExecutePublishFails(t *testing.T) {
	publisher := &capturePublisher{err: errors.New("broker unavailable")}

	step, err := NewNotifyStep("notify-1", map[string]any{
		"recipients": []any{"deals@example.com"},
		"subject":    "hello",
	}, publisher)
	require.NoError(t, err)

	execCtx := models.ExecutionContext{Workstream: &models.Workstream{ID: "ws-1"}}

	outcome, err := step.Execute(context.Background(), execCtx, testLogger())
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeFailed, outcome.Kind)
	require.Error(t, outcome.Err)
}

func TestNotifyStepResumeInvalid(t *testing.T) {
	step, err := NewNotifyStep("notify-1", map[string]any{
		"recipients": []any{"a@example.com"},
		"subject":    "s",
	}, &capturePublisher{})
	require.NoError(t, err)

	_, err = step.Resume(context.Background(), models.ExecutionContext{}, nil, nil, testLogger())
	assert.ErrorIs(t, err, protocol.ErrInvalidResumption)
}

func TestNewNotifyStepValidation(t *testing.T) {
	_, err := NewNotifyStep("notify-1", map[string]any{"subject": "s"}, &capturePublisher{})
	assert.Error(t, err)

	_, err = NewNotifyStep("notify-1", map[string]any{"recipients": []any{"a"}}, &capturePublisher{})
	assert.Error(t, err)

	_, err = NewNotifyStep("notify-1", map[string]any{"recipients": []any{1}, "subject": "s"}, &capturePublisher{})
	assert.Error(t, err)
}
