// Package events defines event types for play execution lifecycle
// notifications. Events mirror the activity log and are published
// best-effort: losing one never changes an execution outcome.
package events

import (
	"time"

	"github.com/dealgrid/playrun/pkg/models"
)

type EventType string

// Kafka topics.
const Topic = "playrun.events"                        // Play lifecycle events
const NodeExecutionTopic = "playrun.node.executions"  // Per-node execution events
const NotificationTopic = "playrun.notifications"     // Notification brick output

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Play lifecycle events.
	PlayExecutionStartedEvent   EventType = "play.execution.started"
	PlayExecutionCompletedEvent EventType = "play.execution.completed"
	PlayExecutionFailedEvent    EventType = "play.execution.failed"
	PlayExecutionSuspendedEvent EventType = "play.execution.suspended"
	PlayExecutionResumedEvent   EventType = "play.execution.resumed"

	// Node execution events.
	NodeCompletedEvent EventType = "node.completed"
	NodeBlockedEvent   EventType = "node.blocked"
	NodeFailedEvent    EventType = "node.failed"
	NodeSkippedEvent   EventType = "node.skipped"

	// Notification brick output.
	NotificationRequestedEvent EventType = "notification.requested"
)

// Event is implemented by every published event.
type Event interface {
	GetType() EventType
}

type BaseEvent struct {
	ID           string         `json:"id"`
	Type         EventType      `json:"type"`
	Timestamp    time.Time      `json:"timestamp"`
	WorkstreamID string         `json:"workstream_id"`
	PlayID       string         `json:"play_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

type PlayExecutionStarted struct {
	BaseEvent

	UserID string `json:"user_id,omitempty"`
}

func (e PlayExecutionStarted) GetType() EventType {
	return PlayExecutionStartedEvent
}

type PlayExecutionCompleted struct {
	BaseEvent

	Duration time.Duration `json:"duration"`
}

func (e PlayExecutionCompleted) GetType() EventType {
	return PlayExecutionCompletedEvent
}

type PlayExecutionFailed struct {
	BaseEvent

	NodeID string `json:"node_id"`
	Error  string `json:"error"`
}

func (e PlayExecutionFailed) GetType() EventType {
	return PlayExecutionFailedEvent
}

// PlayExecutionSuspended is published when the frontier empties with at
// least one blocked node: the play awaits external input.
type PlayExecutionSuspended struct {
	BaseEvent

	PendingActions []*models.PendingAction `json:"pending_actions"`
}

func (e PlayExecutionSuspended) GetType() EventType {
	return PlayExecutionSuspendedEvent
}

type PlayExecutionResumed struct {
	BaseEvent

	NodeID     string `json:"node_id"`
	ActionType string `json:"action_type"`
	UserID     string `json:"user_id,omitempty"`
}

func (e PlayExecutionResumed) GetType() EventType {
	return PlayExecutionResumedEvent
}

type NodeCompleted struct {
	BaseEvent

	NodeID     string         `json:"node_id"`
	StepType   string         `json:"step_type"`
	Output     map[string]any `json:"output,omitempty"`
	DurationMs int64          `json:"duration_ms"`
}

func (e NodeCompleted) GetType() EventType {
	return NodeCompletedEvent
}

type NodeBlocked struct {
	BaseEvent

	NodeID        string                `json:"node_id"`
	StepType      string                `json:"step_type"`
	PendingAction *models.PendingAction `json:"pending_action"`
}

func (e NodeBlocked) GetType() EventType {
	return NodeBlockedEvent
}

type NodeFailed struct {
	BaseEvent

	NodeID   string `json:"node_id"`
	StepType string `json:"step_type"`
	Error    string `json:"error"`
}

func (e NodeFailed) GetType() EventType {
	return NodeFailedEvent
}

type NodeSkipped struct {
	BaseEvent

	NodeID string `json:"node_id"`
}

func (e NodeSkipped) GetType() EventType {
	return NodeSkippedEvent
}

// NotificationRequested is emitted by the notify brick; delivery channels
// (email, chat) consume it downstream.
type NotificationRequested struct {
	BaseEvent

	NodeID     string         `json:"node_id"`
	Recipients []string       `json:"recipients"`
	Subject    string         `json:"subject"`
	Body       string         `json:"body"`
	Detail     map[string]any `json:"detail,omitempty"`
}

func (e NotificationRequested) GetType() EventType {
	return NotificationRequestedEvent
}
