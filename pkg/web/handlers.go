package web

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/dealgrid/playrun/pkg/models"
	"github.com/dealgrid/playrun/pkg/services"
)

type APIHandlers struct {
	workstreamService *services.Workstream
	playService       *services.Play
	validator         *validator.Validate
}

func NewAPIHandlers(
	workstreamService *services.Workstream,
	playService *services.Play,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		workstreamService: workstreamService,
		playService:       playService,
		validator:         validator,
	}
}

// AdvanceWorkstream runs the engine to a fixed point for the workstream.
func (h *APIHandlers) AdvanceWorkstream(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workstream ID is required")
	}

	var req AdvanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	outcome, err := h.workstreamService.Advance(c.Context(), id, req.User.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(outcome)
}

// ResumeWorkstream delivers a user response to the blocked node awaiting it.
func (h *APIHandlers) ResumeWorkstream(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workstream ID is required")
	}

	var req ResumeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	action := &models.PendingAction{
		Type:   req.ActionType,
		NodeID: req.NodeID,
	}

	outcome, err := h.workstreamService.Resume(c.Context(), id, action, req.Response, req.User.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(outcome)
}

// GetPendingAction returns what the workstream is waiting on, null when
// nothing is blocked.
func (h *APIHandlers) GetPendingAction(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workstream ID is required")
	}

	action, err := h.workstreamService.PendingAction(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(PendingActionResponse{
		WorkstreamID:  id,
		PendingAction: action,
	})
}

// GetExecutions returns the node execution states. Callers may poll this to
// reflect externally-completed async steps.
func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workstream ID is required")
	}

	states, err := h.workstreamService.Executions(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ExecutionsResponse{
		WorkstreamID: id,
		States:       states,
	})
}

// GetActivity returns the workstream's audit trail.
func (h *APIHandlers) GetActivity(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workstream ID is required")
	}

	entries, err := h.workstreamService.Activity(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(ActivityResponse{
		WorkstreamID: id,
		Entries:      entries,
	})
}

// GetPlays lists every stored play definition.
func (h *APIHandlers) GetPlays(c fiber.Ctx) error {
	plays, err := h.playService.Plays(c.Context())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(plays)
}

func (h *APIHandlers) GetPlay(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Play ID is required")
	}

	play, err := h.playService.PlayByID(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(play)
}

// ValidatePlay checks a play definition's structural invariants without
// persisting it.
func (h *APIHandlers) ValidatePlay(c fiber.Ctx) error {
	var req ValidatePlayRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if err := h.playService.Validate(req.Play); err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"valid": true})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.workstreamService.HealthCheck(c.Context())

	status := "unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}
