package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
)

// PlayRepository stores plays as plays/<id>.json under the root.
type PlayRepository struct {
	root string
}

func NewPlayRepository(root string) *PlayRepository {
	return &PlayRepository{root: root}
}

func (pr *PlayRepository) dir() string {
	return filepath.Join(pr.root, "plays")
}

func (pr *PlayRepository) path(id string) string {
	return filepath.Join(pr.dir(), id+".json")
}

// Plays returns every stored play.
func (pr *PlayRepository) Plays(ctx context.Context) ([]*models.Play, error) {
	entries, err := fs.Glob(os.DirFS(pr.dir()), "*.json")
	if err != nil || len(entries) == 0 {
		return []*models.Play{}, nil
	}

	plays := make([]*models.Play, 0, len(entries))

	for _, entry := range entries {
		id := entry[:len(entry)-len(".json")]

		play, err := pr.PlayByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load play %s: %w", id, err)
		}

		plays = append(plays, play)
	}

	return plays, nil
}

// PlayByID loads one play.
func (pr *PlayRepository) PlayByID(_ context.Context, id string) (*models.Play, error) {
	data, err := os.ReadFile(pr.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewPlayError("PlayByID", id, persistence.ErrPlayNotFound)
		}

		return nil, persistence.NewPlayError("PlayByID", id, err)
	}

	var play models.Play
	if err := json.Unmarshal(data, &play); err != nil {
		return nil, persistence.NewPlayError("PlayByID", id, err)
	}

	return &play, nil
}

// SavePlay writes the play document, creating the directory on first use.
func (pr *PlayRepository) SavePlay(_ context.Context, play *models.Play) error {
	if err := os.MkdirAll(pr.dir(), 0o755); err != nil {
		return persistence.NewPlayError("SavePlay", play.ID, err)
	}

	data, err := json.MarshalIndent(play, "", "  ")
	if err != nil {
		return persistence.NewPlayError("SavePlay", play.ID, err)
	}

	if err := os.WriteFile(pr.path(play.ID), data, 0o644); err != nil {
		return persistence.NewPlayError("SavePlay", play.ID, err)
	}

	return nil
}
