package services

import (
	"context"
	"fmt"

	"github.com/dealgrid/playrun/pkg/graph"
	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/persistence"
	"github.com/dealgrid/playrun/pkg/registry"
)

// Play manages play definitions: load, save, structural validation.
type Play struct {
	persistence persistence.Persistence
	registry    *registry.Registry
}

func NewPlay(p persistence.Persistence, reg *registry.Registry) *Play {
	return &Play{
		persistence: p,
		registry:    reg,
	}
}

func (s *Play) Plays(ctx context.Context) ([]*models.Play, error) {
	return s.persistence.PlayRepository().Plays(ctx)
}

func (s *Play) PlayByID(ctx context.Context, id string) (*models.Play, error) {
	return s.persistence.PlayRepository().PlayByID(ctx, id)
}

// Save validates the play structurally and persists it.
func (s *Play) Save(ctx context.Context, play *models.Play) error {
	if err := s.Validate(play); err != nil {
		return err
	}

	return s.persistence.PlayRepository().SavePlay(ctx, play)
}

// Validate checks the graph invariants and, for step types that are
// registered, the node configs against their schemas. Unregistered step
// types are not rejected here: a play may be only partially configured and
// fails at dispatch instead.
func (s *Play) Validate(play *models.Play) error {
	if play == nil {
		return ErrPlayNil
	}

	if _, err := graph.New(play); err != nil {
		return err
	}

	for _, node := range play.Nodes {
		if !s.registry.IsRegistered(node.StepType) {
			continue
		}

		if err := s.registry.ValidateNodeConfig(node.StepType, node.Config); err != nil {
			return fmt.Errorf("node %q: %w", node.ID, err)
		}
	}

	return nil
}
