// Package seeder populates in-memory stores with demo accounts and timeline
// events so a development instance has data to browse and moderate.
package seeder

import (
	"context"
	"fmt"
	"log/slog"

	identitymodels "chronicle/internal/identity/models"
	timelinemodels "chronicle/internal/timeline/models"
	id "chronicle/pkg/domain"
)

// AccountService registers demo contributor accounts.
type AccountService interface {
	Register(ctx context.Context, req identitymodels.RegisterRequest) (*identitymodels.User, error)
}

// TimelineService drives demo events through the moderation flow so their
// histories look like real moderation, not fabricated rows.
type TimelineService interface {
	Create(ctx context.Context, p identitymodels.Principal, payload timelinemodels.EventPayload) (*timelinemodels.Event, error)
	Approve(ctx context.Context, p identitymodels.Principal, eventID id.EventID) (*timelinemodels.Event, error)
	Reject(ctx context.Context, p identitymodels.Principal, eventID id.EventID, note string) (*timelinemodels.Event, error)
	RequestDeletion(ctx context.Context, p identitymodels.Principal, eventID id.EventID, note string) (*timelinemodels.Event, error)
}

// Seeder populates stores with demo data.
type Seeder struct {
	accounts AccountService
	timeline TimelineService
	logger   *slog.Logger
}

func New(accounts AccountService, timeline TimelineService, logger *slog.Logger) *Seeder {
	return &Seeder{
		accounts: accounts,
		timeline: timeline,
		logger:   logger,
	}
}

type demoEvent struct {
	payload  timelinemodels.EventPayload
	outcome  string // approved, rejected, deletion_requested, or pending
	authorIx int
}

func intPtr(v int) *int { return &v }

// Seed registers demo contributors and walks a set of events through the
// moderation flow. admin performs the moderation decisions.
func (s *Seeder) Seed(ctx context.Context, admin identitymodels.Principal) error {
	s.logger.Info("seeding demo data")

	contributors, err := s.seedContributors(ctx)
	if err != nil {
		return fmt.Errorf("seeding contributors: %w", err)
	}

	count, err := s.seedEvents(ctx, admin, contributors)
	if err != nil {
		return fmt.Errorf("seeding events: %w", err)
	}

	s.logger.Info("demo data seeded", "contributors", len(contributors), "events", count)
	return nil
}

func (s *Seeder) seedContributors(ctx context.Context) ([]identitymodels.Principal, error) {
	demo := []struct {
		username string
		email    string
	}{
		{"amina_h", "amina@example.com"},
		{"bashir_k", "bashir@example.com"},
	}

	var contributors []identitymodels.Principal
	for _, d := range demo {
		user, err := s.accounts.Register(ctx, identitymodels.RegisterRequest{
			Username: d.username,
			Email:    d.email,
			Password: "demo-password",
		})
		if err != nil {
			return nil, err
		}
		contributors = append(contributors, user.Principal())
	}
	return contributors, nil
}

func (s *Seeder) seedEvents(ctx context.Context, admin identitymodels.Principal, contributors []identitymodels.Principal) (int, error) {
	events := []demoEvent{
		{
			payload: timelinemodels.EventPayload{
				Title:           "The Hijra",
				Summary:         "Migration from Mecca to Medina",
				DescriptionMD:   "The Prophet and his followers migrate to Yathrib, later Medina, marking year one of the Islamic calendar.",
				LocationName:    "Medina",
				StartYearAD:     622,
				StartYearHijri:  intPtr(1),
				ImportanceLevel: 5,
				VisibilityRank:  5,
			},
			outcome: "approved",
		},
		{
			payload: timelinemodels.EventPayload{
				Title:           "Founding of Baghdad",
				Summary:         "Al-Mansur founds the round city",
				DescriptionMD:   "Caliph al-Mansur establishes Madinat al-Salam as the Abbasid capital.",
				LocationName:    "Baghdad",
				StartYearAD:     762,
				ImportanceLevel: 4,
				VisibilityRank:  3,
			},
			outcome:  "approved",
			authorIx: 1,
		},
		{
			payload: timelinemodels.EventPayload{
				Title:           "House of Wisdom flourishes",
				Summary:         "Translation movement at its height",
				DescriptionMD:   "Under al-Ma'mun the Bayt al-Hikma becomes the center of the translation movement.",
				LocationName:    "Baghdad",
				StartYearAD:     830,
				ImportanceLevel: 4,
				VisibilityRank:  2,
			},
			outcome: "deletion_requested",
		},
		{
			payload: timelinemodels.EventPayload{
				Title:         "Unverified battle account",
				Summary:       "Submission without sources",
				DescriptionMD: "An account of a battle that could not be corroborated.",
				StartYearAD:   900,
			},
			outcome:  "rejected",
			authorIx: 1,
		},
		{
			payload: timelinemodels.EventPayload{
				Title:         "Fall of Granada",
				Summary:       "End of Muslim rule in Iberia",
				DescriptionMD: "The Emirate of Granada surrenders to the Catholic Monarchs.",
				LocationName:  "Granada",
				StartYearAD:   1492,
			},
			outcome: "pending",
		},
	}

	for _, d := range events {
		author := contributors[d.authorIx%len(contributors)]
		event, err := s.timeline.Create(ctx, author, d.payload)
		if err != nil {
			return 0, err
		}

		switch d.outcome {
		case "approved":
			_, err = s.timeline.Approve(ctx, admin, event.ID)
		case "rejected":
			_, err = s.timeline.Reject(ctx, admin, event.ID, "no corroborating sources")
		case "deletion_requested":
			if _, err = s.timeline.Approve(ctx, admin, event.ID); err == nil {
				_, err = s.timeline.RequestDeletion(ctx, author, event.ID, "duplicate of an existing entry")
			}
		case "pending":
			// Left for the moderation queue.
		}
		if err != nil {
			return 0, err
		}
	}
	return len(events), nil
}
