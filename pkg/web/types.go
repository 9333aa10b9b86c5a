// Package web provides the HTTP API over workstream play execution.
package web

import "github.com/dealgrid/playrun/pkg/models"

// UserPayload identifies the acting user on mutating requests. Supplied by
// the caller; authentication happens upstream of this API.
type UserPayload struct {
	ID    string   `json:"id"    validate:"required"`
	Name  string   `json:"name"`
	Email string   `json:"email" validate:"omitempty,email"`
	Roles []string `json:"roles"`
}

func (u *UserPayload) toModel() *models.CurrentUser {
	if u == nil || u.ID == "" {
		return nil
	}

	return &models.CurrentUser{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
		Roles: u.Roles,
	}
}

// AdvanceRequest triggers one engine invocation for a workstream.
type AdvanceRequest struct {
	User UserPayload `json:"user" validate:"required"`
}

// ResumeRequest delivers external input to the blocked node awaiting the
// named action.
type ResumeRequest struct {
	ActionType string         `json:"action_type" validate:"required"`
	NodeID     string         `json:"node_id"`
	Response   map[string]any `json:"response"    validate:"required"`
	User       UserPayload    `json:"user"        validate:"required"`
}

// ValidatePlayRequest carries a play definition for structural validation.
type ValidatePlayRequest struct {
	Play *models.Play `json:"play" validate:"required"`
}

// PendingActionResponse wraps the nullable pending action.
type PendingActionResponse struct {
	WorkstreamID  string                `json:"workstream_id"`
	PendingAction *models.PendingAction `json:"pending_action"`
}

// ExecutionsResponse lists a workstream's node execution states.
type ExecutionsResponse struct {
	WorkstreamID string                       `json:"workstream_id"`
	States       []*models.NodeExecutionState `json:"states"`
}

// ActivityResponse lists a workstream's audit trail entries.
type ActivityResponse struct {
	WorkstreamID string                  `json:"workstream_id"`
	Entries      []*models.ActivityEntry `json:"entries"`
}
