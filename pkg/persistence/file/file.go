// Package file provides file-based persistence for plays, workstreams and
// execution state. Intended for local development and tests.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/dealgrid/playrun/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory tree
// of JSON documents.
type Persistence struct {
	root           string
	playRepo       *PlayRepository
	workstreamRepo *WorkstreamRepository
	executionRepo  *ExecutionStateRepository
	activityRepo   *ActivityRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:           cleanRoot,
		playRepo:       NewPlayRepository(cleanRoot),
		workstreamRepo: NewWorkstreamRepository(cleanRoot),
		executionRepo:  NewExecutionStateRepository(cleanRoot),
		activityRepo:   NewActivityRepository(cleanRoot),
	}
}

func (fp *Persistence) PlayRepository() persistence.PlayRepository {
	return fp.playRepo
}

func (fp *Persistence) WorkstreamRepository() persistence.WorkstreamRepository {
	return fp.workstreamRepo
}

func (fp *Persistence) ExecutionStateRepository() persistence.ExecutionStateRepository {
	return fp.executionRepo
}

func (fp *Persistence) ActivityRepository() persistence.ActivityRepository {
	return fp.activityRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based persistence, there is
// nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
