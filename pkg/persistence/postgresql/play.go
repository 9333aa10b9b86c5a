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

// PlayRepository handles play-related database operations.
type PlayRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPlayRepository creates a new play repository.
func NewPlayRepository(db *sql.DB, logger *slog.Logger) *PlayRepository {
	return &PlayRepository{db: db, logger: logger}
}

// Plays returns all stored plays.
func (pr *PlayRepository) Plays(ctx context.Context) ([]*models.Play, error) {
	rows, err := pr.db.QueryContext(ctx, `
		SELECT id, name, nodes, edges, metadata, created_at, updated_at
		FROM plays ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	plays := make([]*models.Play, 0)

	for rows.Next() {
		play, err := scanPlay(rows.Scan)
		if err != nil {
			return nil, err
		}

		plays = append(plays, play)
	}

	return plays, rows.Err()
}

// PlayByID returns one play.
func (pr *PlayRepository) PlayByID(ctx context.Context, id string) (*models.Play, error) {
	row := pr.db.QueryRowContext(ctx, `
		SELECT id, name, nodes, edges, metadata, created_at, updated_at
		FROM plays WHERE id = $1`, id)

	play, err := scanPlay(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewPlayError("PlayByID", id, persistence.ErrPlayNotFound)
		}

		return nil, persistence.NewPlayError("PlayByID", id, err)
	}

	return play, nil
}

// SavePlay inserts or replaces the play definition.
func (pr *PlayRepository) SavePlay(ctx context.Context, play *models.Play) error {
	nodesJSON, err := json.Marshal(play.Nodes)
	if err != nil {
		return persistence.NewPlayError("SavePlay", play.ID, err)
	}

	edgesJSON, err := json.Marshal(play.Edges)
	if err != nil {
		return persistence.NewPlayError("SavePlay", play.ID, err)
	}

	metadataJSON, err := json.Marshal(play.Metadata)
	if err != nil {
		return persistence.NewPlayError("SavePlay", play.ID, err)
	}

	if play.CreatedAt.IsZero() {
		play.CreatedAt = time.Now().UTC()
	}

	play.UpdatedAt = time.Now().UTC()

	_, err = pr.db.ExecContext(ctx, `
		INSERT INTO plays (id, name, nodes, edges, metadata, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`,
		play.ID, play.Name, nodesJSON, edgesJSON, metadataJSON, play.CreatedAt, play.UpdatedAt)
	if err != nil {
		return persistence.NewPlayError("SavePlay", play.ID, err)
	}

	return nil
}

func scanPlay(scan func(dest ...any) error) (*models.Play, error) {
	var (
		play         models.Play
		nodesJSON    []byte
		edgesJSON    []byte
		metadataJSON []byte
	)

	err := scan(&play.ID, &play.Name, &nodesJSON, &edgesJSON, &metadataJSON, &play.CreatedAt, &play.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(nodesJSON, &play.Nodes); err != nil {
		return nil, fmt.Errorf("failed to decode play nodes: %w", err)
	}

	if err := json.Unmarshal(edgesJSON, &play.Edges); err != nil {
		return nil, fmt.Errorf("failed to decode play edges: %w", err)
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &play.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode play metadata: %w", err)
		}
	}

	return &play, nil
}
