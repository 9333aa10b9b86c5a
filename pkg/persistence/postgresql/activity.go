package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dealgrid/playrun/pkg/models"
)

// ActivityRepository handles the append-only audit trail.
type ActivityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *sql.DB, logger *slog.Logger) *ActivityRepository {
	return &ActivityRepository{db: db, logger: logger}
}

// AppendActivity inserts one entry, assigning ID and timestamp when unset.
func (ar *ActivityRepository) AppendActivity(ctx context.Context, entry *models.ActivityEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	detailJSON, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("failed to marshal activity detail: %w", err)
	}

	_, err = ar.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, workstream_id, kind, node_id, user_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.WorkstreamID, entry.Kind, entry.NodeID, entry.UserID,
		detailJSON, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}

	return nil
}

// ActivityByWorkstream returns the workstream's entries in append order.
func (ar *ActivityRepository) ActivityByWorkstream(ctx context.Context, workstreamID string) ([]*models.ActivityEntry, error) {
	rows, err := ar.db.QueryContext(ctx, `
		SELECT id, workstream_id, kind, node_id, user_id, detail, created_at
		FROM activity_log
		WHERE workstream_id = $1
		ORDER BY created_at`, workstreamID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity log: %w", err)
	}
	defer rows.Close()

	entries := make([]*models.ActivityEntry, 0)

	for rows.Next() {
		var (
			entry      models.ActivityEntry
			nodeID     sql.NullString
			userID     sql.NullString
			detailJSON []byte
		)

		err := rows.Scan(&entry.ID, &entry.WorkstreamID, &entry.Kind, &nodeID, &userID,
			&detailJSON, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity entry: %w", err)
		}

		if nodeID.Valid {
			entry.NodeID = nodeID.String
		}

		if userID.Valid {
			entry.UserID = userID.String
		}

		if len(detailJSON) > 0 {
			if err := json.Unmarshal(detailJSON, &entry.Detail); err != nil {
				return nil, fmt.Errorf("failed to decode activity detail: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
