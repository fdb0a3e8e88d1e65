//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"chronicle/internal/sentinel"
	"chronicle/internal/timeline/lifecycle"
	"chronicle/internal/timeline/models"
	"chronicle/internal/timeline/store"
	id "chronicle/pkg/domain"
	dErrors "chronicle/pkg/domain-errors"
	"chronicle/pkg/testutil"
	"chronicle/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "moderation_log", "events")
	s.Require().NoError(err)
}

// createEvent persists an event together with its CREATED log entry.
func (s *PostgresStoreSuite) createEvent(ctx context.Context, event *models.Event) {
	s.T().Helper()
	actor := event.CreatedBy
	entry := models.NewLogEntry(id.NewLogID(), event.ID, &actor, models.ActionCreated, "", event.CreatedAt)
	s.Require().NoError(s.store.Create(ctx, event, entry))
}

// moderate returns a transition closure shaped like the service layer's:
// validate against the freshly-locked row, then mutate and log.
func moderate(from, to models.Status, action models.Action, actor id.UserID, at time.Time) store.TransitionFunc {
	return func(fresh *models.Event) (*models.LogEntry, error) {
		if fresh.Status != from {
			return nil, dErrors.New(dErrors.CodeConflict, "event was moderated concurrently")
		}
		fresh.Status = to
		fresh.UpdatedBy = actor
		fresh.UpdatedAt = at
		return models.NewLogEntry(id.NewLogID(), fresh.ID, &actor, action, "", at), nil
	}
}

func (s *PostgresStoreSuite) TestCreateAndGetRoundTrip() {
	ctx := context.Background()

	event := testutil.NewEventBuilder().WithTitle("Battle of Talas").WithStartYearAD(751).Build()
	s.createEvent(ctx, event)

	found, err := s.store.Get(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(event.ID, found.ID)
	s.Equal("Battle of Talas", found.Title)
	s.Equal(751, found.StartYearAD)
	s.Equal(models.StatusPending, found.Status)
	s.Equal(event.CreatedBy, found.CreatedBy)
	s.WithinDuration(event.CreatedAt, found.CreatedAt, time.Second)

	history, err := s.store.History(ctx, event.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 1)
	s.Equal(models.ActionCreated, history[0].Action)
}

func (s *PostgresStoreSuite) TestGetNotFound() {
	_, err := s.store.Get(context.Background(), id.NewEventID())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestHistoryNotFound() {
	_, err := s.store.History(context.Background(), id.NewEventID())
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

// TestTransitionRollback verifies a failing closure leaves nothing behind:
// the status write and the log append share one transaction.
func (s *PostgresStoreSuite) TestTransitionRollback() {
	ctx := context.Background()

	event := testutil.NewEventBuilder().Build()
	s.createEvent(ctx, event)

	denied := dErrors.New(dErrors.CodeForbidden, "moderator role required")
	_, err := s.store.Transition(ctx, event.ID, func(fresh *models.Event) (*models.LogEntry, error) {
		fresh.Status = models.StatusApproved
		return nil, denied
	})
	s.Require().ErrorIs(err, denied)

	found, err := s.store.Get(ctx, event.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status, "failed transition must not change status")

	history, err := s.store.History(ctx, event.ID)
	s.Require().NoError(err)
	s.Len(history, 1, "failed transition must not append a log entry")
}

// TestConcurrentApproveReject races approvals and rejections of one pending
// event. The row lock serializes them, so exactly one wins and the rest see
// the committed status and report a conflict.
func (s *PostgresStoreSuite) TestConcurrentApproveReject() {
	ctx := context.Background()

	event := testutil.NewEventBuilder().Build()
	s.createEvent(ctx, event)

	const goroutines = 20
	result := testutil.RunConcurrent(goroutines, func(idx int) error {
		to, action := models.StatusApproved, models.ActionApproved
		if idx%2 == 1 {
			to, action = models.StatusRejected, models.ActionRejected
		}
		apply := moderate(models.StatusPending, to, action, testutil.TestIDs.AdminID, time.Now())
		_, err := s.store.Transition(ctx, event.ID, apply)
		return err
	})

	s.Equal(int32(1), result.Successes, "exactly one transition wins the row lock")
	s.Equal(int32(goroutines-1), result.Conflicts, "losers observe the committed status")
	s.Equal(int32(0), result.Errors)

	found, err := s.store.Get(ctx, event.ID)
	s.Require().NoError(err)
	s.Contains([]models.Status{models.StatusApproved, models.StatusRejected}, found.Status)

	history, err := s.store.History(ctx, event.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 2, "only the winning transition appends a log entry")
	s.Equal(models.ActionCreated, history[0].Action)
	winnerAction := models.ActionApproved
	if found.Status == models.StatusRejected {
		winnerAction = models.ActionRejected
	}
	s.Equal(winnerAction, history[1].Action)
}

// TestHistoryOrderWithIdenticalTimestamps drives a full deletion round trip
// where every log entry carries the same clock time. History must still come
// back in insertion order.
func (s *PostgresStoreSuite) TestHistoryOrderWithIdenticalTimestamps() {
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Microsecond)
	admin := testutil.TestIDs.AdminID

	event := testutil.NewEventBuilder().Build()
	event.CreatedAt = at
	event.UpdatedAt = at
	s.createEvent(ctx, event)

	steps := []struct {
		from, to models.Status
		action   models.Action
	}{
		{models.StatusPending, models.StatusApproved, models.ActionApproved},
		{models.StatusApproved, models.StatusDeletionRequested, models.ActionDeletionRequested},
		{models.StatusDeletionRequested, models.StatusApproved, models.ActionDeletionDenied},
		{models.StatusApproved, models.StatusDeletionRequested, models.ActionDeletionRequested},
		{models.StatusDeletionRequested, models.StatusDeleted, models.ActionDeleted},
	}
	for _, step := range steps {
		_, err := s.store.Transition(ctx, event.ID, moderate(step.from, step.to, step.action, admin, at))
		s.Require().NoError(err)
	}

	history, err := s.store.History(ctx, event.ID)
	s.Require().NoError(err)
	s.Require().Len(history, len(steps)+1)

	want := []models.Action{
		models.ActionCreated,
		models.ActionApproved,
		models.ActionDeletionRequested,
		models.ActionDeletionDenied,
		models.ActionDeletionRequested,
		models.ActionDeleted,
	}
	for i, entry := range history {
		s.Equal(want[i], entry.Action, "entry %d out of order", i)
		s.WithinDuration(at, entry.CreatedAt, time.Second)
	}
}

// TestListVisibilityScopes verifies the scope is enforced inside the query for
// each caller shape.
func (s *PostgresStoreSuite) TestListVisibilityScopes() {
	ctx := context.Background()

	approved := testutil.NewEventBuilder().
		WithStatus(models.StatusApproved).
		WithCreatedBy(testutil.TestIDs.ContributorID).
		WithTitle("Approved event").
		Build()
	ownPending := testutil.NewEventBuilder().
		WithCreatedBy(testutil.TestIDs.ContributorID).
		WithTitle("Own pending event").
		Build()
	foreignRejected := testutil.NewEventBuilder().
		WithStatus(models.StatusRejected).
		WithCreatedBy(testutil.TestIDs.OtherID).
		WithTitle("Foreign rejected event").
		Build()
	for _, event := range []*models.Event{approved, ownPending, foreignRejected} {
		s.createEvent(ctx, event)
	}

	titles := func(events []*models.Event) []string {
		var out []string
		for _, e := range events {
			out = append(out, e.Title)
		}
		return out
	}

	anon, err := s.store.List(ctx, lifecycle.Visibility{}, nil)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"Approved event"}, titles(anon))

	owner, err := s.store.List(ctx, lifecycle.Visibility{OwnerID: testutil.TestIDs.ContributorID}, nil)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"Approved event", "Own pending event"}, titles(owner))

	admin, err := s.store.List(ctx, lifecycle.Visibility{All: true}, nil)
	s.Require().NoError(err)
	s.ElementsMatch([]string{"Approved event", "Own pending event", "Foreign rejected event"}, titles(admin))
}

// TestListFilters exercises the status and year range filters combined with a
// visibility scope.
func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()

	early := testutil.NewEventBuilder().
		WithStatus(models.StatusApproved).
		WithStartYearAD(762).
		WithTitle("Founding of Baghdad").
		Build()
	late := testutil.NewEventBuilder().
		WithStatus(models.StatusApproved).
		WithStartYearAD(1258).
		WithTitle("Siege of Baghdad").
		Build()
	s.createEvent(ctx, early)
	s.createEvent(ctx, late)

	from, to := 700, 800
	events, err := s.store.List(ctx, lifecycle.Visibility{}, &models.ListFilter{
		StartYearFrom: &from,
		StartYearTo:   &to,
	})
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("Founding of Baghdad", events[0].Title)

	status := models.StatusApproved
	events, err = s.store.List(ctx, lifecycle.Visibility{All: true}, &models.ListFilter{Status: &status})
	s.Require().NoError(err)
	s.Len(events, 2)
}
