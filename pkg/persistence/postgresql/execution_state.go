package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
)

// ExecutionStateRepository handles node execution state database operations.
// The (workstream_id, node_id) primary key plus ON CONFLICT upsert gives the
// last-writer-wins, single-key atomicity the engine relies on.
type ExecutionStateRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionStateRepository creates a new execution state repository.
func NewExecutionStateRepository(db *sql.DB, logger *slog.Logger) *ExecutionStateRepository {
	return &ExecutionStateRepository{db: db, logger: logger}
}

// NodeExecutionStates loads every state for the workstream's play.
func (er *ExecutionStateRepository) NodeExecutionStates(ctx context.Context, workstreamID, playID string) ([]*models.NodeExecutionState, error) {
	rows, err := er.db.QueryContext(ctx, `
		SELECT workstream_id, node_id, play_id, status, output, pending_action,
		       error_message, started_at, completed_at
		FROM node_execution_states
		WHERE workstream_id = $1 AND play_id = $2
		ORDER BY node_id`, workstreamID, playID)
	if err != nil {
		return nil, persistence.NewExecutionStateError("NodeExecutionStates", workstreamID, "", err)
	}
	defer rows.Close()

	states := make([]*models.NodeExecutionState, 0)

	for rows.Next() {
		var (
			state             models.NodeExecutionState
			outputJSON        []byte
			pendingActionJSON []byte
			errorMessage      sql.NullString
			startedAt         sql.NullTime
			completedAt       sql.NullTime
		)

		err := rows.Scan(&state.WorkstreamID, &state.NodeID, &state.PlayID, &state.Status,
			&outputJSON, &pendingActionJSON, &errorMessage, &startedAt, &completedAt)
		if err != nil {
			return nil, persistence.NewExecutionStateError("NodeExecutionStates", workstreamID, "", err)
		}

		if len(outputJSON) > 0 {
			if err := json.Unmarshal(outputJSON, &state.Output); err != nil {
				return nil, fmt.Errorf("failed to decode execution output: %w", err)
			}
		}

		if len(pendingActionJSON) > 0 {
			if err := json.Unmarshal(pendingActionJSON, &state.PendingAction); err != nil {
				return nil, fmt.Errorf("failed to decode pending action: %w", err)
			}
		}

		if errorMessage.Valid {
			state.ErrorMessage = errorMessage.String
		}

		if startedAt.Valid {
			state.StartedAt = &startedAt.Time
		}

		if completedAt.Valid {
			state.CompletedAt = &completedAt.Time
		}

		states = append(states, &state)
	}

	return states, rows.Err()
}

// UpsertNodeExecutionState writes the state record for its key.
func (er *ExecutionStateRepository) UpsertNodeExecutionState(ctx context.Context, state *models.NodeExecutionState) error {
	outputJSON, err := json.Marshal(state.Output)
	if err != nil {
		return persistence.NewExecutionStateError("Upsert", state.WorkstreamID, state.NodeID, err)
	}

	pendingActionJSON, err := json.Marshal(state.PendingAction)
	if err != nil {
		return persistence.NewExecutionStateError("Upsert", state.WorkstreamID, state.NodeID, err)
	}

	_, err = er.db.ExecContext(ctx, `
		INSERT INTO node_execution_states (
			workstream_id, node_id, play_id, status, output, pending_action,
			error_message, started_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (workstream_id, node_id) DO UPDATE SET
			play_id = EXCLUDED.play_id,
			status = EXCLUDED.status,
			output = EXCLUDED.output,
			pending_action = EXCLUDED.pending_action,
			error_message = EXCLUDED.error_message,
			started_at = EXCLUDED.started_at,
			completed_at = EXCLUDED.completed_at`,
		state.WorkstreamID, state.NodeID, state.PlayID, state.Status,
		outputJSON, pendingActionJSON, nullString(state.ErrorMessage),
		state.StartedAt, state.CompletedAt)
	if err != nil {
		return persistence.NewExecutionStateError("Upsert", state.WorkstreamID, state.NodeID, err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
