//go:build integration

package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"chronicle/internal/identity/store"
	"chronicle/internal/sentinel"
	id "chronicle/pkg/domain"
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
	err := s.postgres.TruncateTables(context.Background(), "users")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) TestCreateAndFindRoundTrip() {
	ctx := context.Background()

	user := testutil.NewUserBuilder().WithUsername("Fatima_Scribe").Build()
	s.Require().NoError(s.store.Create(ctx, user))

	byID, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Equal(user.Username, byID.Username)
	s.Equal(user.Role, byID.Role)
	s.True(byID.Active)
	s.Nil(byID.LastLoginAt)

	// Username lookup is case-insensitive.
	byName, err := s.store.FindByUsername(ctx, "fatima_scribe")
	s.Require().NoError(err)
	s.Equal(user.ID, byName.ID)
}

func (s *PostgresStoreSuite) TestCreateDuplicateUsername() {
	ctx := context.Background()

	first := testutil.NewUserBuilder().WithUsername("karim").WithEmail("karim@example.com").Build()
	s.Require().NoError(s.store.Create(ctx, first))

	// Same username in a different case still violates the unique index.
	dup := testutil.NewUserBuilder().WithUsername("KARIM").WithEmail("karim2@example.com").Build()
	err := s.store.Create(ctx, dup)
	s.True(errors.Is(err, sentinel.ErrConflict))
}

func (s *PostgresStoreSuite) TestFindNotFound() {
	ctx := context.Background()

	_, err := s.store.FindByID(ctx, id.NewUserID())
	s.True(errors.Is(err, sentinel.ErrNotFound))

	_, err = s.store.FindByUsername(ctx, "nobody")
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestSetActive() {
	ctx := context.Background()

	user := testutil.NewUserBuilder().Build()
	s.Require().NoError(s.store.Create(ctx, user))

	suspended, err := s.store.SetActive(ctx, user.ID, false)
	s.Require().NoError(err)
	s.False(suspended.Active)

	restored, err := s.store.SetActive(ctx, user.ID, true)
	s.Require().NoError(err)
	s.True(restored.Active)
}

func (s *PostgresStoreSuite) TestRecordLogin() {
	ctx := context.Background()

	user := testutil.NewUserBuilder().Build()
	s.Require().NoError(s.store.Create(ctx, user))

	at := time.Now().UTC().Truncate(time.Microsecond)
	s.Require().NoError(s.store.RecordLogin(ctx, user.ID, at))

	found, err := s.store.FindByID(ctx, user.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.LastLoginAt)
	s.WithinDuration(at, *found.LastLoginAt, time.Second)

	err = s.store.RecordLogin(ctx, id.NewUserID(), at)
	s.True(errors.Is(err, sentinel.ErrNotFound))
}

func (s *PostgresStoreSuite) TestListOrdersByUsername() {
	ctx := context.Background()

	for _, name := range []string{"zaynab", "amina", "mustafa"} {
		user := testutil.NewUserBuilder().
			WithUsername(name).
			WithEmail(name + "@example.com").
			Build()
		s.Require().NoError(s.store.Create(ctx, user))
	}

	users, err := s.store.List(ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 3)
	s.Equal("amina", users[0].Username)
	s.Equal("mustafa", users[1].Username)
	s.Equal("zaynab", users[2].Username)
}
