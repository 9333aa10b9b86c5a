package models

import "time"

// Activity entry kinds recorded by the engine.
const (
	ActivityPlayStarted   = "play.started"
	ActivityPlayCompleted = "play.completed"
	ActivityPlayFailed    = "play.failed"
	ActivityPlaySuspended = "play.suspended"
	ActivityNodeCompleted = "node.completed"
	ActivityNodeBlocked   = "node.blocked"
	ActivityNodeFailed    = "node.failed"
	ActivityNodeSkipped   = "node.skipped"
	ActivityNodeResumed   = "node.resumed"
)

// ActivityEntry is one append-only audit trail record for a workstream.
// Appends are best-effort: a failed append is logged, never surfaced to the
// engine's caller.
type ActivityEntry struct {
	ID           string         `json:"id"`
	WorkstreamID string         `json:"workstream_id" validate:"required"`
	Kind         string         `json:"kind"          validate:"required"`
	NodeID       string         `json:"node_id,omitempty"`
	UserID       string         `json:"user_id,omitempty"`
	Detail       map[string]any `json:"detail,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}
