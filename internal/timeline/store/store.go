package store

import (
	"context"

	"chronicle/internal/timeline/lifecycle"
	"chronicle/internal/timeline/models"
	id "chronicle/pkg/domain"
)

// Error Contract:
// All store methods follow this error pattern:
// - Return sentinel.ErrNotFound (optionally wrapped) when the event does not exist
// - Domain errors returned by a TransitionFunc pass through untouched
// - Return wrapped errors with context for infrastructure failures

// TransitionFunc runs inside the store's unit of work against the freshly-read
// event. It either mutates the event and returns the single log entry to
// append, or returns an error to abort with nothing observably applied.
type TransitionFunc func(fresh *models.Event) (*models.LogEntry, error)

// Store persists events and their moderation history.
type Store interface {
	// Create inserts a new event and its CREATED log entry atomically.
	Create(ctx context.Context, event *models.Event, entry *models.LogEntry) error

	// Get returns the event by ID, regardless of visibility. Callers apply
	// the visibility scope themselves.
	Get(ctx context.Context, eventID id.EventID) (*models.Event, error)

	// List returns events inside the visibility scope matching the filter.
	// The scope is part of the query; non-approved events outside it are
	// never materialized.
	List(ctx context.Context, vis lifecycle.Visibility, filter *models.ListFilter) ([]*models.Event, error)

	// Transition executes apply as a single serializable unit of work on the
	// event: re-read current row, run apply against it, write the mutated row
	// and append the returned log entry. Either all of it commits or none.
	Transition(ctx context.Context, eventID id.EventID, apply TransitionFunc) (*models.Event, error)

	// History returns the full moderation log for an event in insertion order.
	History(ctx context.Context, eventID id.EventID) ([]*models.LogEntry, error)
}
