// Package registry maps step_type tags to step factories. Unknown tags fail
// at the dispatch boundary, never as an implicit fallthrough.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/xeipuuv/gojsonschema"

	"github.com/dealgrid/playrun/pkg/protocol"
)

// ErrUnknownStepType indicates a node whose step_type has no registered
// factory. Recorded as that node's failed state at dispatch time; a play may
// be only partially configured, so registration is not checked at load.
var ErrUnknownStepType = errors.New("unknown step type")

type Registry struct {
	logger        *slog.Logger
	stepFactories map[string]protocol.StepFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:        logger,
		stepFactories: make(map[string]protocol.StepFactory),
	}
}

// RegisterStep adds a factory, keyed by its step_type ID. Re-registering a
// key replaces the previous factory.
func (r *Registry) RegisterStep(factory protocol.StepFactory) {
	r.stepFactories[factory.ID()] = factory
	r.logger.Debug("Registered step factory", "step_type", factory.ID())
}

// IsRegistered reports whether a factory exists for the step type.
func (r *Registry) IsRegistered(stepType string) bool {
	_, ok := r.stepFactories[stepType]

	return ok
}

// StepTypes returns the registered step_type identifiers.
func (r *Registry) StepTypes() []string {
	types := make([]string, 0, len(r.stepFactories))
	for stepType := range r.stepFactories {
		types = append(types, stepType)
	}

	return types
}

// CreateStep instantiates the step brick for a node, validating the node
// config against the factory's schema first.
func (r *Registry) CreateStep(ctx context.Context, stepType, nodeID string, config map[string]any) (protocol.Step, error) {
	factory, ok := r.stepFactories[stepType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStepType, stepType)
	}

	if err := r.validateConfig(factory, config); err != nil {
		return nil, fmt.Errorf("invalid config for step type %q: %w", stepType, err)
	}

	return factory.Create(ctx, nodeID, config)
}

// ValidateNodeConfig checks a node config against its factory schema without
// instantiating the step. Used at play load to catch misconfiguration early.
func (r *Registry) ValidateNodeConfig(stepType string, config map[string]any) error {
	factory, ok := r.stepFactories[stepType]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownStepType, stepType)
	}

	return r.validateConfig(factory, config)
}

func (r *Registry) validateConfig(factory protocol.StepFactory, config map[string]any) error {
	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		errs := result.Errors()
		if len(errs) > 0 {
			return fmt.Errorf("config does not match schema: %s", errs[0].String())
		}

		return errors.New("config does not match schema")
	}

	return nil
}
