package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dealgrid/playrun/pkg/models"
)

// ActivityRepository appends audit entries to activity/<workstream_id>.jsonl,
// one JSON document per line. Append-only by construction.
type ActivityRepository struct {
	root string
}

func NewActivityRepository(root string) *ActivityRepository {
	return &ActivityRepository{root: root}
}

func (ar *ActivityRepository) dir() string {
	return filepath.Join(ar.root, "activity")
}

func (ar *ActivityRepository) path(workstreamID string) string {
	return filepath.Join(ar.dir(), workstreamID+".jsonl")
}

// AppendActivity appends one entry, assigning ID and timestamp when unset.
func (ar *ActivityRepository) AppendActivity(_ context.Context, entry *models.ActivityEntry) error {
	if err := os.MkdirAll(ar.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create activity directory: %w", err)
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode activity entry: %w", err)
	}

	f, err := os.OpenFile(ar.path(entry.WorkstreamID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open activity log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append activity entry: %w", err)
	}

	return nil
}

// ActivityByWorkstream returns the workstream's entries in append order.
func (ar *ActivityRepository) ActivityByWorkstream(_ context.Context, workstreamID string) ([]*models.ActivityEntry, error) {
	data, err := os.ReadFile(ar.path(workstreamID))
	if err != nil {
		if os.IsNotExist(err) {
			return []*models.ActivityEntry{}, nil
		}

		return nil, fmt.Errorf("failed to read activity log: %w", err)
	}

	entries := make([]*models.ActivityEntry, 0)
	decoder := json.NewDecoder(bytes.NewReader(data))

	for decoder.More() {
		var entry models.ActivityEntry
		if err := decoder.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode activity entry: %w", err)
		}

		entries = append(entries, &entry)
	}

	return entries, nil
}
