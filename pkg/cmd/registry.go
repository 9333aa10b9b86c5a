// Package cmd provides common initialization for the command-line entrypoints.
package cmd

import (
	"log/slog"

	"github.com/dealgrid/playrun/pkg/eventbus"
	"github.com/dealgrid/playrun/pkg/registry"
	"github.com/dealgrid/playrun/pkg/steps/approval"
	"github.com/dealgrid/playrun/pkg/steps/docgen"
	"github.com/dealgrid/playrun/pkg/steps/fieldupdate"
	"github.com/dealgrid/playrun/pkg/steps/manualtask"
	"github.com/dealgrid/playrun/pkg/steps/notify"
)

// NewRegistry builds a step registry with every native brick registered.
// The publisher feeds the notify brick and may be nil when no event bus is
// configured.
func NewRegistry(logger *slog.Logger, publisher eventbus.EventPublisher) *registry.Registry {
	reg := registry.NewRegistry(logger)

	reg.RegisterStep(approval.NewApprovalStepFactory())
	reg.RegisterStep(manualtask.NewManualTaskStepFactory())
	reg.RegisterStep(docgen.NewDocGenStepFactory())
	reg.RegisterStep(notify.NewNotifyStepFactory(publisher))
	reg.RegisterStep(fieldupdate.NewFieldUpdateStepFactory())

	return reg
}
