package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealgrid/playrun/pkg/config"
	"github.com/dealgrid/playrun/pkg/models"
)

const onboardingPlay = `
id: client-onboarding
name: Client Onboarding
metadata:
  owner: revenue-ops
nodes:
  - id: engagement_letter
    step_type: docgen
    name: Engagement letter
    config:
      template: "Letter for {{.fields.counterparty_id}}"
  - id: legal_review
    step_type: approval
    config:
      gate: legal
  - id: kickoff_note
    step_type: notify
    config:
      subject: Kickoff
      recipients: [account-team]
edges:
  - from: engagement_letter
    to: legal_review
    condition:
      metric: annual_value
      operator: greater_than
      value: 100000
  - from: engagement_letter
    to: kickoff_note
  - from: legal_review
    to: kickoff_note
`

func writePlayFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadPlay(t *testing.T) {
	path := writePlayFile(t, t.TempDir(), "onboarding.yaml", onboardingPlay)

	play, err := config.LoadPlay(path)
	require.NoError(t, err)

	assert.Equal(t, "client-onboarding", play.ID)
	assert.Equal(t, "Client Onboarding", play.Name)
	require.Len(t, play.Nodes, 3)
	require.Len(t, play.Edges, 3)

	letter := play.NodeByID("engagement_letter")
	require.NotNil(t, letter)
	assert.Equal(t, models.StepTypeDocGen, letter.StepType)
	assert.Equal(t, "client-onboarding", letter.PlayID)

	// Name defaults to the node ID when omitted.
	review := play.NodeByID("legal_review")
	require.NotNil(t, review)
	assert.Equal(t, "legal_review", review.Name)

	guarded := play.Edges[0]
	require.NotNil(t, guarded.Condition)
	assert.Equal(t, "annual_value", guarded.Condition.Metric)
	assert.Equal(t, models.OperatorGreaterThan, guarded.Condition.Operator)
	assert.Nil(t, play.Edges[1].Condition)
}

func TestLoadPlayRejectsMalformedGraph(t *testing.T) {
	cyclic := `
id: cyclic
name: Cyclic Play
nodes:
  - id: a
    step_type: docgen
  - id: b
    step_type: docgen
edges:
  - from: a
    to: b
  - from: b
    to: a
`
	path := writePlayFile(t, t.TempDir(), "cyclic.yaml", cyclic)

	_, err := config.LoadPlay(path)
	require.Error(t, err)
}

func TestLoadPlayRejectsMissingFields(t *testing.T) {
	missing := `
name: No ID
nodes:
  - id: a
    step_type: docgen
`
	path := writePlayFile(t, t.TempDir(), "missing.yaml", missing)

	_, err := config.LoadPlay(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "play id is required")
}

func TestLoadPlaysDir(t *testing.T) {
	dir := t.TempDir()
	writePlayFile(t, dir, "onboarding.yaml", onboardingPlay)
	writePlayFile(t, dir, "notes.txt", "not a play")

	plays, err := config.LoadPlaysDir(dir)
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Equal(t, "client-onboarding", plays[0].ID)
}
