package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
)

// WorkstreamRepository stores workstreams as workstreams/<id>.json.
type WorkstreamRepository struct {
	root string
}

func NewWorkstreamRepository(root string) *WorkstreamRepository {
	return &WorkstreamRepository{root: root}
}

func (wr *WorkstreamRepository) dir() string {
	return filepath.Join(wr.root, "workstreams")
}

func (wr *WorkstreamRepository) path(id string) string {
	return filepath.Join(wr.dir(), id+".json")
}

// Workstreams returns every stored workstream.
func (wr *WorkstreamRepository) Workstreams(ctx context.Context) ([]*models.Workstream, error) {
	entries, err := fs.Glob(os.DirFS(wr.dir()), "*.json")
	if err != nil || len(entries) == 0 {
		return []*models.Workstream{}, nil
	}

	workstreams := make([]*models.Workstream, 0, len(entries))

	for _, entry := range entries {
		id := entry[:len(entry)-len(".json")]

		workstream, err := wr.WorkstreamByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load workstream %s: %w", id, err)
		}

		workstreams = append(workstreams, workstream)
	}

	return workstreams, nil
}

// WorkstreamByID loads one workstream.
func (wr *WorkstreamRepository) WorkstreamByID(_ context.Context, id string) (*models.Workstream, error) {
	data, err := os.ReadFile(wr.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.ErrWorkstreamNotFound
		}

		return nil, fmt.Errorf("failed to read workstream %s: %w", id, err)
	}

	var workstream models.Workstream
	if err := json.Unmarshal(data, &workstream); err != nil {
		return nil, fmt.Errorf("failed to decode workstream %s: %w", id, err)
	}

	return &workstream, nil
}

// SaveWorkstream writes the workstream document, stamping UpdatedAt.
func (wr *WorkstreamRepository) SaveWorkstream(_ context.Context, workstream *models.Workstream) error {
	if err := os.MkdirAll(wr.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create workstreams directory: %w", err)
	}

	workstream.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(workstream, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workstream %s: %w", workstream.ID, err)
	}

	if err := os.WriteFile(wr.path(workstream.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write workstream %s: %w", workstream.ID, err)
	}

	return nil
}
