package models

import (
	"time"

	id "chronicle/pkg/domain"
)

// Action identifies what a moderation log entry records.
type Action string

const (
	ActionCreated           Action = "CREATED"
	ActionUpdated           Action = "UPDATED"
	ActionApproved          Action = "APPROVED"
	ActionRejected          Action = "REJECTED"
	ActionDeletionRequested Action = "DELETION_REQUESTED"
	ActionDeleted           Action = "DELETED"
	ActionDeletionDenied    Action = "DELETION_DENIED"
)

// LogEntry is one immutable row of an event's moderation history. Entries are
// created once, never mutated or deleted, and accumulate in insertion order.
// Exactly one entry exists per accepted transition - the store appends it in
// the same unit of work that writes the status.
type LogEntry struct {
	ID      id.LogID
	EventID id.EventID

	// PerformedBy is nil when the acting user was deleted later (weak reference).
	PerformedBy *id.UserID

	Action    Action
	Note      string
	CreatedAt time.Time
}

// NewLogEntry builds an audit entry for a transition.
func NewLogEntry(entryID id.LogID, eventID id.EventID, performedBy *id.UserID, action Action, note string, at time.Time) *LogEntry {
	return &LogEntry{
		ID:          entryID,
		EventID:     eventID,
		PerformedBy: performedBy,
		Action:      action,
		Note:        note,
		CreatedAt:   at,
	}
}
