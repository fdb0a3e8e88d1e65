package models

import (
	"time"

	id "chronicle/pkg/domain"
)

// Status is the authoritative lifecycle field of an event. It only changes
// through a named transition evaluated by the lifecycle package, never through
// a raw field write.
type Status string

const (
	StatusPending           Status = "PENDING"
	StatusApproved          Status = "APPROVED"
	StatusRejected          Status = "REJECTED"
	StatusDeletionRequested Status = "DELETION_REQUESTED"
	StatusDeleted           Status = "DELETED"
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusDeletionRequested, StatusDeleted:
		return true
	}
	return false
}

// IsTerminal reports whether the status admits no further write actions.
func (s Status) IsTerminal() bool {
	return s == StatusDeleted
}

// Event is a moderated historical-event record. Content fields are opaque
// payload to the moderation core - it never inspects them.
type Event struct {
	ID id.EventID

	// Content payload.
	Title           string
	Summary         string
	DescriptionMD   string
	LocationName    string
	Latitude        *float64
	Longitude       *float64
	StartYearAD     int
	EndYearAD       *int
	StartYearHijri  *int
	EndYearHijri    *int
	ImportanceLevel int
	VisibilityRank  int

	Status Status

	// Weak references: the owning user may be deleted later, the event survives.
	CreatedBy id.UserID
	UpdatedBy id.UserID

	CreatedAt time.Time
	UpdatedAt time.Time

	// ApprovedAt is set exactly once, on the first transition into APPROVED.
	// DenyDeletion restores APPROVED without touching it.
	ApprovedAt *time.Time
}

// ApplyPayload overwrites the content fields from a validated payload.
// Lifecycle fields (status, timestamps, ownership) are untouched.
func (e *Event) ApplyPayload(p EventPayload) {
	e.Title = p.Title
	e.Summary = p.Summary
	e.DescriptionMD = p.DescriptionMD
	e.LocationName = p.LocationName
	e.Latitude = p.Latitude
	e.Longitude = p.Longitude
	e.StartYearAD = p.StartYearAD
	e.EndYearAD = p.EndYearAD
	e.StartYearHijri = p.StartYearHijri
	e.EndYearHijri = p.EndYearHijri
	e.ImportanceLevel = p.ImportanceLevel
	e.VisibilityRank = p.VisibilityRank
}
