package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
)

// WorkstreamRepository handles workstream-related database operations.
type WorkstreamRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkstreamRepository creates a new workstream repository.
func NewWorkstreamRepository(db *sql.DB, logger *slog.Logger) *WorkstreamRepository {
	return &WorkstreamRepository{db: db, logger: logger}
}

// Workstreams returns all stored workstreams.
func (wr *WorkstreamRepository) Workstreams(ctx context.Context) ([]*models.Workstream, error) {
	rows, err := wr.db.QueryContext(ctx, `
		SELECT id, play_id, name, stage, fields, created_at, updated_at
		FROM workstreams ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query workstreams: %w", err)
	}
	defer rows.Close()

	workstreams := make([]*models.Workstream, 0)

	for rows.Next() {
		workstream, err := scanWorkstream(rows.Scan)
		if err != nil {
			return nil, err
		}

		workstreams = append(workstreams, workstream)
	}

	return workstreams, rows.Err()
}

// WorkstreamByID returns one workstream.
func (wr *WorkstreamRepository) WorkstreamByID(ctx context.Context, id string) (*models.Workstream, error) {
	row := wr.db.QueryRowContext(ctx, `
		SELECT id, play_id, name, stage, fields, created_at, updated_at
		FROM workstreams WHERE id = $1`, id)

	workstream, err := scanWorkstream(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.ErrWorkstreamNotFound
		}

		return nil, fmt.Errorf("failed to load workstream %s: %w", id, err)
	}

	return workstream, nil
}

// SaveWorkstream inserts or replaces the workstream.
func (wr *WorkstreamRepository) SaveWorkstream(ctx context.Context, workstream *models.Workstream) error {
	fieldsJSON, err := json.Marshal(workstream.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal workstream fields: %w", err)
	}

	if workstream.CreatedAt.IsZero() {
		workstream.CreatedAt = time.Now().UTC()
	}

	workstream.UpdatedAt = time.Now().UTC()

	_, err = wr.db.ExecContext(ctx, `
		INSERT INTO workstreams (id, play_id, name, stage, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			play_id = EXCLUDED.play_id,
			name = EXCLUDED.name,
			stage = EXCLUDED.stage,
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at`,
		workstream.ID, workstream.PlayID, workstream.Name, workstream.Stage,
		fieldsJSON, workstream.CreatedAt, workstream.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save workstream %s: %w", workstream.ID, err)
	}

	return nil
}

func scanWorkstream(scan func(dest ...any) error) (*models.Workstream, error) {
	var (
		workstream models.Workstream
		fieldsJSON []byte
	)

	err := scan(&workstream.ID, &workstream.PlayID, &workstream.Name, &workstream.Stage,
		&fieldsJSON, &workstream.CreatedAt, &workstream.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if len(fieldsJSON) > 0 {
		if err := json.Unmarshal(fieldsJSON, &workstream.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode workstream fields: %w", err)
		}
	}

	return &workstream, nil
}
