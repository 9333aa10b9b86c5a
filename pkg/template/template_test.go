package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealgrid/playrun/pkg/models"
)

func testExecutionContext() *models.ExecutionContext {
	return &models.ExecutionContext{
		Workstream: &models.Workstream{
			ID:     "ws-1",
			PlayID: "play-1",
			Stage:  "negotiation",
			Fields: map[string]any{
				models.FieldAnnualValue: 250000.0,
				"counterparty_name":     "Acme Corp",
			},
		},
		User: &models.CurrentUser{ID: "user-1", Name: "Dana", Email: "dana@example.com"},
		NodeOutputs: map[string]any{
			"risk_review": map[string]any{"score": 42.0},
		},
	}
}

func TestRenderWithContext_Fields(t *testing.T) {
	result, err := RenderWithContext("Renewal for {{.fields.counterparty_name}}", testExecutionContext())

	require.NoError(t, err)
	assert.Equal(t, "Renewal for Acme Corp", result)
}

func TestRenderWithContext_NodeOutputs(t *testing.T) {
	result, err := RenderWithContext("{{.node_outputs.risk_review.score}}", testExecutionContext())

	require.NoError(t, err)
	assert.InDelta(t, 42.0, result, 0.001)
}

func TestRenderWithContext_UserAndWorkstream(t *testing.T) {
	result, err := RenderWithContext("{{.user.name}} advanced {{.workstream.id}}", testExecutionContext())

	require.NoError(t, err)
	assert.Equal(t, "Dana advanced ws-1", result)
}

func TestRender_NumericCoercion(t *testing.T) {
	result, err := Render("{{.value}}", map[string]any{"value": 12500})

	require.NoError(t, err)
	assert.InDelta(t, 12500.0, result, 0.001)
}

func TestRender_JSONCoercion(t *testing.T) {
	result, err := Render(`{"tier": "{{.tier}}"}`, map[string]any{"tier": "enterprise"})

	require.NoError(t, err)

	obj, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "enterprise", obj["tier"])
}

func TestRender_ParseError(t *testing.T) {
	_, err := Render("{{.unclosed", nil)
	require.Error(t, err)
}

func TestRenderWithContext_NilWorkstream(t *testing.T) {
	result, err := RenderWithContext("static text", &models.ExecutionContext{})

	require.NoError(t, err)
	assert.Equal(t, "static text", result)
}
