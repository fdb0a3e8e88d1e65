package models

import (
	"time"

	id "chronicle/pkg/domain"
)

// EventResponse is the JSON shape of an event.
type EventResponse struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Summary         string     `json:"summary,omitempty"`
	DescriptionMD   string     `json:"description_md"`
	LocationName    string     `json:"location_name,omitempty"`
	Latitude        *float64   `json:"latitude,omitempty"`
	Longitude       *float64   `json:"longitude,omitempty"`
	StartYearAD     int        `json:"start_year_ad"`
	EndYearAD       *int       `json:"end_year_ad,omitempty"`
	StartYearHijri  *int       `json:"start_year_hijri,omitempty"`
	EndYearHijri    *int       `json:"end_year_hijri,omitempty"`
	ImportanceLevel int        `json:"importance_level"`
	VisibilityRank  int        `json:"visibility_rank"`
	Status          Status     `json:"status"`
	CreatedBy       string     `json:"created_by,omitempty"`
	UpdatedBy       string     `json:"updated_by,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
}

// NewEventResponse converts a domain event to its response DTO.
func NewEventResponse(e *Event) *EventResponse {
	resp := &EventResponse{
		ID:              e.ID.String(),
		Title:           e.Title,
		Summary:         e.Summary,
		DescriptionMD:   e.DescriptionMD,
		LocationName:    e.LocationName,
		Latitude:        e.Latitude,
		Longitude:       e.Longitude,
		StartYearAD:     e.StartYearAD,
		EndYearAD:       e.EndYearAD,
		StartYearHijri:  e.StartYearHijri,
		EndYearHijri:    e.EndYearHijri,
		ImportanceLevel: e.ImportanceLevel,
		VisibilityRank:  e.VisibilityRank,
		Status:          e.Status,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
		ApprovedAt:      e.ApprovedAt,
	}
	if !e.CreatedBy.IsNil() {
		resp.CreatedBy = e.CreatedBy.String()
	}
	if !e.UpdatedBy.IsNil() {
		resp.UpdatedBy = e.UpdatedBy.String()
	}
	return resp
}

// ListResponse wraps a page of events.
type ListResponse struct {
	Events []*EventResponse `json:"events"`
	Count  int              `json:"count"`
}

// NewListResponse converts a page of domain events.
func NewListResponse(events []*Event) *ListResponse {
	resp := &ListResponse{Events: make([]*EventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, NewEventResponse(e))
	}
	resp.Count = len(resp.Events)
	return resp
}

// LogEntryResponse is the JSON shape of one moderation history row.
type LogEntryResponse struct {
	ID          string    `json:"id"`
	EventID     string    `json:"event_id"`
	PerformedBy string    `json:"performed_by,omitempty"`
	Action      Action    `json:"action"`
	Note        string    `json:"note,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoryResponse wraps an event's ordered moderation history.
type HistoryResponse struct {
	EventID string              `json:"event_id"`
	History []*LogEntryResponse `json:"history"`
}

// NewHistoryResponse converts moderation log entries.
func NewHistoryResponse(eventID id.EventID, entries []*LogEntry) *HistoryResponse {
	resp := &HistoryResponse{
		EventID: eventID.String(),
		History: make([]*LogEntryResponse, 0, len(entries)),
	}
	for _, entry := range entries {
		row := &LogEntryResponse{
			ID:        entry.ID.String(),
			EventID:   entry.EventID.String(),
			Action:    entry.Action,
			Note:      entry.Note,
			CreatedAt: entry.CreatedAt,
		}
		if entry.PerformedBy != nil {
			row.PerformedBy = entry.PerformedBy.String()
		}
		resp.History = append(resp.History, row)
	}
	return resp
}
