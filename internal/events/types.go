// Package events records what a run did (or would do) so the report can
// show it and the caller can count outcomes. Events live in memory for the
// duration of one run only.
package events

import (
	"time"
)

// EventType represents the type of event that occurred during a run.
type EventType string

const (
	// EventTypeRunStarted indicates a run began
	EventTypeRunStarted EventType = "run_started"
	// EventTypeTicketsFetched indicates the windowed search completed
	EventTypeTicketsFetched EventType = "tickets_fetched"
	// EventTypeRunCompleted indicates a run finished
	EventTypeRunCompleted EventType = "run_completed"

	// EventTypeActionPlanned indicates a mutation that dry-run mode skipped
	EventTypeActionPlanned EventType = "action_planned"
	// EventTypeActionApplied indicates a mutation succeeded
	EventTypeActionApplied EventType = "action_applied"
	// EventTypeActionSkipped indicates a mutation was unnecessary (tag already present)
	EventTypeActionSkipped EventType = "action_skipped"
	// EventTypeActionFailed indicates a mutation failed
	EventTypeActionFailed EventType = "action_failed"

	// EventTypeConversationLookupFailed indicates a conversation could not be fetched
	EventTypeConversationLookupFailed EventType = "conversation_lookup_failed"
)

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	// SeverityInfo indicates informational events
	SeverityInfo EventSeverity = "info"
	// SeverityWarning indicates potentially problematic events
	SeverityWarning EventSeverity = "warning"
	// SeverityError indicates error events
	SeverityError EventSeverity = "error"
)

// Event is one entry of a run journal
type Event struct {
	// ID is the unique identifier for this event
	ID string `json:"id"`
	// RunID ties the event to one invocation
	RunID string `json:"run_id"`
	// Type is the type of event
	Type EventType `json:"type"`
	// Timestamp is when the event occurred
	Timestamp time.Time `json:"timestamp"`
	// Severity is the severity level of this event
	Severity EventSeverity `json:"severity"`
	// BookingID is the duplicate group the event belongs to, if any
	BookingID string `json:"booking_id,omitempty"`
	// TicketID is the affected ticket, if any
	TicketID int64 `json:"ticket_id,omitempty"`
	// ConversationID is the affected conversation, if any
	ConversationID string `json:"conversation_id,omitempty"`
	// Action is the mutation kind for action events
	Action string `json:"action,omitempty"`
	// StatusCode is the HTTP status of a failed call
	StatusCode int `json:"status_code,omitempty"`
	// Message is a human-readable description of the event
	Message string `json:"message"`
}

// IsFailure reports whether the event represents something that went wrong
func (e Event) IsFailure() bool {
	return e.Type == EventTypeActionFailed || e.Type == EventTypeConversationLookupFailed
}
