package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"chronicle/internal/sentinel"
	"chronicle/internal/timeline/lifecycle"
	"chronicle/internal/timeline/models"
	id "chronicle/pkg/domain"
)

// InMemoryStore keeps events and moderation logs in memory. A single mutex
// serializes transitions, which gives the same guarantee as row locking: the
// TransitionFunc always sees the current row and no two transitions on the
// same event interleave.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.EventID]*models.Event
	logs   map[id.EventID][]*models.LogEntry
}

// NewInMemory constructs an empty in-memory event store.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		events: make(map[id.EventID]*models.Event),
		logs:   make(map[id.EventID][]*models.LogEntry),
	}
}

func (s *InMemoryStore) Create(_ context.Context, event *models.Event, entry *models.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; ok {
		return sentinel.ErrConflict
	}
	copyEvent := *event
	s.events[event.ID] = &copyEvent
	copyEntry := *entry
	s.logs[event.ID] = append(s.logs[event.ID], &copyEntry)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copyEvent := *event
	return &copyEvent, nil
}

func (s *InMemoryStore) List(_ context.Context, vis lifecycle.Visibility, filter *models.ListFilter) ([]*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.Event
	for _, event := range s.events {
		if !vis.Allows(event) {
			continue
		}
		if !matchesFilter(event, filter) {
			continue
		}
		copyEvent := *event
		matched = append(matched, &copyEvent)
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StartYearAD != matched[j].StartYearAD {
			return matched[i].StartYearAD < matched[j].StartYearAD
		}
		if matched[i].VisibilityRank != matched[j].VisibilityRank {
			return matched[i].VisibilityRank > matched[j].VisibilityRank
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	return paginate(matched, filter), nil
}

func (s *InMemoryStore) Transition(_ context.Context, eventID id.EventID, apply TransitionFunc) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	// Work on a copy so a failed apply leaves the stored row untouched.
	fresh := *current
	entry, err := apply(&fresh)
	if err != nil {
		return nil, err
	}

	s.events[eventID] = &fresh
	copyEntry := *entry
	s.logs[eventID] = append(s.logs[eventID], &copyEntry)

	result := fresh
	return &result, nil
}

func (s *InMemoryStore) History(_ context.Context, eventID id.EventID) ([]*models.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.events[eventID]; !ok {
		return nil, sentinel.ErrNotFound
	}
	entries := s.logs[eventID]
	result := make([]*models.LogEntry, 0, len(entries))
	for _, entry := range entries {
		copyEntry := *entry
		result = append(result, &copyEntry)
	}
	return result, nil
}

func matchesFilter(event *models.Event, filter *models.ListFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Status != nil && event.Status != *filter.Status {
		return false
	}
	if filter.Year != nil && event.StartYearAD != *filter.Year {
		return false
	}
	if filter.StartYearFrom != nil && event.StartYearAD < *filter.StartYearFrom {
		return false
	}
	if filter.StartYearTo != nil && event.StartYearAD > *filter.StartYearTo {
		return false
	}
	if filter.Location != "" && !strings.Contains(strings.ToLower(event.LocationName), strings.ToLower(filter.Location)) {
		return false
	}
	if filter.Query != "" {
		q := strings.ToLower(filter.Query)
		if !strings.Contains(strings.ToLower(event.Title), q) &&
			!strings.Contains(strings.ToLower(event.Summary), q) &&
			!strings.Contains(strings.ToLower(event.DescriptionMD), q) {
			return false
		}
	}
	return true
}

func paginate(events []*models.Event, filter *models.ListFilter) []*models.Event {
	if filter == nil {
		return events
	}
	offset := filter.Offset
	if offset >= len(events) {
		return nil
	}
	events = events[offset:]
	if filter.Limit > 0 && filter.Limit < len(events) {
		events = events[:filter.Limit]
	}
	return events
}
