package file

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
)

// ExecutionStateRepository stores one JSON document per
// (workstream_id, node_id) under executions/<workstream_id>/. The file per
// key makes the upsert naturally idempotent and last-writer-wins.
type ExecutionStateRepository struct {
	root string
}

func NewExecutionStateRepository(root string) *ExecutionStateRepository {
	return &ExecutionStateRepository{root: root}
}

func (er *ExecutionStateRepository) dir(workstreamID string) string {
	return filepath.Join(er.root, "executions", workstreamID)
}

func (er *ExecutionStateRepository) path(workstreamID, nodeID string) string {
	return filepath.Join(er.dir(workstreamID), nodeID+".json")
}

// NodeExecutionStates loads every state recorded for the workstream's play,
// sorted by node ID for deterministic iteration.
func (er *ExecutionStateRepository) NodeExecutionStates(_ context.Context, workstreamID, playID string) ([]*models.NodeExecutionState, error) {
	entries, err := fs.Glob(os.DirFS(er.dir(workstreamID)), "*.json")
	if err != nil || len(entries) == 0 {
		return []*models.NodeExecutionState{}, nil
	}

	states := make([]*models.NodeExecutionState, 0, len(entries))

	for _, entry := range entries {
		data, err := os.ReadFile(filepath.Join(er.dir(workstreamID), entry))
		if err != nil {
			return nil, persistence.NewExecutionStateError("NodeExecutionStates", workstreamID, entry, err)
		}

		var state models.NodeExecutionState
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, persistence.NewExecutionStateError("NodeExecutionStates", workstreamID, entry, err)
		}

		if state.PlayID != playID {
			continue
		}

		states = append(states, &state)
	}

	sort.Slice(states, func(i, j int) bool { return states[i].NodeID < states[j].NodeID })

	return states, nil
}

// UpsertNodeExecutionState writes the state document for its key.
func (er *ExecutionStateRepository) UpsertNodeExecutionState(_ context.Context, state *models.NodeExecutionState) error {
	if err := os.MkdirAll(er.dir(state.WorkstreamID), 0o755); err != nil {
		return persistence.NewExecutionStateError("Upsert", state.WorkstreamID, state.NodeID, err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return persistence.NewExecutionStateError("Upsert", state.WorkstreamID, state.NodeID, err)
	}

	if err := os.WriteFile(er.path(state.WorkstreamID, state.NodeID), data, 0o644); err != nil {
		return persistence.NewExecutionStateError("Upsert", state.WorkstreamID, state.NodeID, err)
	}

	return nil
}
