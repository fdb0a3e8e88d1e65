package store

import (
	"context"
	"time"

	"chronicle/internal/identity/models"
	id "chronicle/pkg/domain"
)

// Store persists user accounts.
//
// Error Contract:
// - Return sentinel.ErrNotFound when the requested user does not exist
// - Return sentinel.ErrConflict when a username or email is already taken
// - Return wrapped errors with context for infrastructure failures
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	SetActive(ctx context.Context, userID id.UserID, active bool) (*models.User, error)
	RecordLogin(ctx context.Context, userID id.UserID, at time.Time) error
}
