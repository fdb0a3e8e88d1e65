package testutil

import (
	"time"

	"github.com/google/uuid"

	identitymodels "chronicle/internal/identity/models"
	timelinemodels "chronicle/internal/timeline/models"
	id "chronicle/pkg/domain"
)

// TestIDs provides convenient pre-generated IDs for tests.
// Use these for deterministic test data.
var TestIDs = struct {
	AdminID       id.UserID
	ContributorID id.UserID
	OtherID       id.UserID
	EventID1      id.EventID
	EventID2      id.EventID
}{
	AdminID:       id.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	ContributorID: id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	OtherID:       id.UserID(uuid.MustParse("33333333-3333-3333-3333-333333333333")),
	EventID1:      id.EventID(uuid.MustParse("eeee0000-0000-0000-0000-000000000001")),
	EventID2:      id.EventID(uuid.MustParse("eeee0000-0000-0000-0000-000000000002")),
}

// Principals for the common caller shapes.

func AdminPrincipal() identitymodels.Principal {
	return identitymodels.Principal{
		ID:            TestIDs.AdminID,
		Role:          identitymodels.RoleAdmin,
		Active:        true,
		Authenticated: true,
	}
}

func ContributorPrincipal() identitymodels.Principal {
	return identitymodels.Principal{
		ID:            TestIDs.ContributorID,
		Role:          identitymodels.RoleContributor,
		Active:        true,
		Authenticated: true,
	}
}

func OtherContributorPrincipal() identitymodels.Principal {
	return identitymodels.Principal{
		ID:            TestIDs.OtherID,
		Role:          identitymodels.RoleContributor,
		Active:        true,
		Authenticated: true,
	}
}

func SuspendedContributorPrincipal() identitymodels.Principal {
	return identitymodels.Principal{
		ID:            TestIDs.ContributorID,
		Role:          identitymodels.RoleContributor,
		Active:        false,
		Authenticated: true,
	}
}

// UserBuilder provides a fluent interface for building test users.
type UserBuilder struct {
	user *identitymodels.User
}

// NewUserBuilder creates a new UserBuilder with sensible defaults.
func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		user: &identitymodels.User{
			ID:           id.UserID(uuid.New()),
			Username:     "test-user",
			Email:        "test@example.com",
			PasswordHash: "$2a$10$placeholderplaceholderplaceholderplace",
			Role:         identitymodels.RoleContributor,
			Active:       true,
			CreatedAt:    time.Now(),
		},
	}
}

func (b *UserBuilder) WithID(userID id.UserID) *UserBuilder {
	b.user.ID = userID
	return b
}

func (b *UserBuilder) WithUsername(username string) *UserBuilder {
	b.user.Username = username
	return b
}

func (b *UserBuilder) WithEmail(email string) *UserBuilder {
	b.user.Email = email
	return b
}

func (b *UserBuilder) WithPasswordHash(hash string) *UserBuilder {
	b.user.PasswordHash = hash
	return b
}

func (b *UserBuilder) AsAdmin() *UserBuilder {
	b.user.Role = identitymodels.RoleAdmin
	return b
}

func (b *UserBuilder) Suspended() *UserBuilder {
	b.user.Active = false
	return b
}

func (b *UserBuilder) Build() *identitymodels.User {
	return b.user
}

// EventBuilder provides a fluent interface for building test events.
type EventBuilder struct {
	event *timelinemodels.Event
}

// NewEventBuilder creates a new EventBuilder with sensible defaults: a
// pending event owned by the default contributor.
func NewEventBuilder() *EventBuilder {
	now := time.Now()
	return &EventBuilder{
		event: &timelinemodels.Event{
			ID:              id.EventID(uuid.New()),
			Title:           "Founding of Baghdad",
			Summary:         "The round city is founded",
			DescriptionMD:   "Al-Mansur founds the round city of Baghdad.",
			LocationName:    "Baghdad",
			StartYearAD:     762,
			ImportanceLevel: 3,
			VisibilityRank:  1,
			Status:          timelinemodels.StatusPending,
			CreatedBy:       TestIDs.ContributorID,
			UpdatedBy:       TestIDs.ContributorID,
			CreatedAt:       now,
			UpdatedAt:       now,
		},
	}
}

func (b *EventBuilder) WithID(eventID id.EventID) *EventBuilder {
	b.event.ID = eventID
	return b
}

func (b *EventBuilder) WithTitle(title string) *EventBuilder {
	b.event.Title = title
	return b
}

func (b *EventBuilder) WithStartYearAD(year int) *EventBuilder {
	b.event.StartYearAD = year
	return b
}

func (b *EventBuilder) WithVisibilityRank(rank int) *EventBuilder {
	b.event.VisibilityRank = rank
	return b
}

func (b *EventBuilder) WithStatus(status timelinemodels.Status) *EventBuilder {
	b.event.Status = status
	if status == timelinemodels.StatusApproved {
		approvedAt := b.event.UpdatedAt
		b.event.ApprovedAt = &approvedAt
	}
	return b
}

func (b *EventBuilder) WithCreatedBy(userID id.UserID) *EventBuilder {
	b.event.CreatedBy = userID
	b.event.UpdatedBy = userID
	return b
}

func (b *EventBuilder) Build() *timelinemodels.Event {
	return b.event
}

// ValidPayload returns an EventPayload that passes validation.
func ValidPayload() timelinemodels.EventPayload {
	return timelinemodels.EventPayload{
		Title:           "Opening of the House of Wisdom",
		Summary:         "Scholarly institution established",
		DescriptionMD:   "The House of Wisdom becomes a center of translation.",
		LocationName:    "Baghdad",
		StartYearAD:     830,
		ImportanceLevel: 4,
		VisibilityRank:  2,
	}
}
