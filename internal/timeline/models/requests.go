package models

import (
	"fmt"

	dErrors "chronicle/pkg/domain-errors"
)

const (
	maxTitleLength    = 255
	maxLocationLength = 255
	minImportance     = 1
	maxImportance     = 5

	defaultListLimit = 50
	maxListLimit     = 200
)

// EventPayload carries the content fields of a create or update request.
// The moderation core treats these as opaque; validation here is plain input
// hygiene, not lifecycle logic.
type EventPayload struct {
	Title           string   `json:"title"`
	Summary         string   `json:"summary,omitempty"`
	DescriptionMD   string   `json:"description_md"`
	LocationName    string   `json:"location_name,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	StartYearAD     int      `json:"start_year_ad"`
	EndYearAD       *int     `json:"end_year_ad,omitempty"`
	StartYearHijri  *int     `json:"start_year_hijri,omitempty"`
	EndYearHijri    *int     `json:"end_year_hijri,omitempty"`
	ImportanceLevel int      `json:"importance_level"`
	VisibilityRank  int      `json:"visibility_rank"`
}

// Validate checks payload fields and applies defaults.
func (p *EventPayload) Validate() error {
	if p.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if len(p.Title) > maxTitleLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	if p.DescriptionMD == "" {
		return dErrors.New(dErrors.CodeValidation, "description_md is required")
	}
	if len(p.LocationName) > maxLocationLength {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("location_name must be at most %d characters", maxLocationLength))
	}
	if p.StartYearAD == 0 {
		return dErrors.New(dErrors.CodeValidation, "start_year_ad is required")
	}
	if p.EndYearAD != nil && *p.EndYearAD < p.StartYearAD {
		return dErrors.New(dErrors.CodeValidation, "end_year_ad must not precede start_year_ad")
	}
	if p.StartYearHijri != nil && p.EndYearHijri != nil && *p.EndYearHijri < *p.StartYearHijri {
		return dErrors.New(dErrors.CodeValidation, "end_year_hijri must not precede start_year_hijri")
	}
	if (p.Latitude == nil) != (p.Longitude == nil) {
		return dErrors.New(dErrors.CodeValidation, "latitude and longitude must be provided together")
	}
	if p.Latitude != nil && (*p.Latitude < -90 || *p.Latitude > 90) {
		return dErrors.New(dErrors.CodeValidation, "latitude out of range")
	}
	if p.Longitude != nil && (*p.Longitude < -180 || *p.Longitude > 180) {
		return dErrors.New(dErrors.CodeValidation, "longitude out of range")
	}
	if p.ImportanceLevel == 0 {
		p.ImportanceLevel = minImportance
	}
	if p.ImportanceLevel < minImportance || p.ImportanceLevel > maxImportance {
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("importance_level must be between %d and %d", minImportance, maxImportance))
	}
	if p.VisibilityRank == 0 {
		p.VisibilityRank = 1
	}
	if p.VisibilityRank < 0 {
		return dErrors.New(dErrors.CodeValidation, "visibility_rank must not be negative")
	}
	return nil
}

// ListFilter narrows event listings. All fields are optional; the visibility
// scope is applied separately and always wins.
type ListFilter struct {
	Year          *int
	StartYearFrom *int
	StartYearTo   *int
	Location      string
	Query         string
	Status        *Status
	Limit         int
	Offset        int
}

// Normalize clamps pagination to sane bounds.
func (f *ListFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}
