package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	identity "chronicle/internal/identity/models"
	"chronicle/internal/sentinel"
	"chronicle/internal/timeline/lifecycle"
	"chronicle/internal/timeline/metrics"
	"chronicle/internal/timeline/models"
	"chronicle/internal/timeline/store"
	"chronicle/internal/timeline/tracer"
	id "chronicle/pkg/domain"
	dErrors "chronicle/pkg/domain-errors"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

// Store defines the persistence interface for events and moderation logs.
// Error Contract:
// - Get/Transition/History return sentinel.ErrNotFound when no event exists
// - Domain errors returned by a TransitionFunc pass through untouched
// - Other failures are wrapped infrastructure errors
type Store interface {
	Create(ctx context.Context, event *models.Event, entry *models.LogEntry) error
	Get(ctx context.Context, eventID id.EventID) (*models.Event, error)
	List(ctx context.Context, vis lifecycle.Visibility, filter *models.ListFilter) ([]*models.Event, error)
	Transition(ctx context.Context, eventID id.EventID, apply store.TransitionFunc) (*models.Event, error)
	History(ctx context.Context, eventID id.EventID) ([]*models.LogEntry, error)
}

type Option func(*Service)

// Service runs the moderation lifecycle over the event store. All legality
// decisions are delegated to the lifecycle package; the service wires them to
// persistence, metrics, and tracing.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	now     func() time.Time
}

func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:  store,
		logger: logger,
		tracer: tracer.NewNoop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// WithMetrics sets the metrics instance for the service.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for moderation spans.
func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Create inserts a new event in PENDING with its CREATED log entry.
func (s *Service) Create(ctx context.Context, p identity.Principal, payload models.EventPayload) (*models.Event, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanCreate)
	var err error
	defer func() { span.End(err) }()

	if err = lifecycle.EvaluateCreate(p); err != nil {
		s.incrementDenial(err)
		return nil, err
	}
	if err = payload.Validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	event := &models.Event{
		ID:        id.NewEventID(),
		Status:    models.StatusPending,
		CreatedBy: p.ID,
		UpdatedBy: p.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	event.ApplyPayload(payload)

	actor := p.ID
	entry := models.NewLogEntry(id.NewLogID(), event.ID, &actor, models.ActionCreated, "", now)

	if err = s.store.Create(ctx, event, entry); err != nil {
		err = s.translateStoreErr(err)
		return nil, err
	}

	span.SetAttributes(tracer.String(tracer.AttrEventID, event.ID.String()))
	s.incrementTransition(models.ActionCreated)
	s.logTransition(ctx, event, models.ActionCreated, p)
	return event, nil
}

// Update applies new content without moving the status.
func (s *Service) Update(ctx context.Context, p identity.Principal, eventID id.EventID, payload models.EventPayload) (*models.Event, error) {
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return s.transition(ctx, p, eventID, lifecycle.OpUpdateContent, "", func(event *models.Event) {
		event.ApplyPayload(payload)
	})
}

// Approve publishes a PENDING event. ApprovedAt is set on first approval only.
func (s *Service) Approve(ctx context.Context, p identity.Principal, eventID id.EventID) (*models.Event, error) {
	return s.transition(ctx, p, eventID, lifecycle.OpApprove, "", nil)
}

// Reject declines a PENDING event; the note lands on the log entry.
func (s *Service) Reject(ctx context.Context, p identity.Principal, eventID id.EventID, note string) (*models.Event, error) {
	return s.transition(ctx, p, eventID, lifecycle.OpReject, note, nil)
}

// RequestDeletion flags an APPROVED event for removal by its owner.
func (s *Service) RequestDeletion(ctx context.Context, p identity.Principal, eventID id.EventID, note string) (*models.Event, error) {
	return s.transition(ctx, p, eventID, lifecycle.OpRequestDeletion, note, nil)
}

// ConfirmDeletion soft-deletes an event whose removal was requested.
func (s *Service) ConfirmDeletion(ctx context.Context, p identity.Principal, eventID id.EventID) (*models.Event, error) {
	return s.transition(ctx, p, eventID, lifecycle.OpConfirmDeletion, "", nil)
}

// DenyDeletion restores a DELETION_REQUESTED event back to APPROVED.
func (s *Service) DenyDeletion(ctx context.Context, p identity.Principal, eventID id.EventID, note string) (*models.Event, error) {
	return s.transition(ctx, p, eventID, lifecycle.OpDenyDeletion, note, nil)
}

// AdminDelete soft-deletes an event from any non-terminal state.
func (s *Service) AdminDelete(ctx context.Context, p identity.Principal, eventID id.EventID) (*models.Event, error) {
	return s.transition(ctx, p, eventID, lifecycle.OpAdminDelete, "", nil)
}

// transition runs one guarded lifecycle step. The guard is evaluated twice:
// once against the fetched row for a cheap denial without taking the lock,
// then again inside the store's unit of work against the freshly-read status.
// A guard that passed first and fails against a changed status is a lost race
// and surfaces as conflict, not forbidden.
func (s *Service) transition(ctx context.Context, p identity.Principal, eventID id.EventID, op lifecycle.Op, note string, mutate func(*models.Event)) (*models.Event, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanTransition,
		tracer.String(tracer.AttrEventID, eventID.String()),
		tracer.String(tracer.AttrOp, string(op)),
	)
	start := s.now()
	var err error
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveTransitionLatency(time.Since(start).Seconds())
		}
		span.End(err)
	}()

	current, err := s.store.Get(ctx, eventID)
	if err != nil {
		err = s.translateStoreErr(err)
		return nil, err
	}

	// Denials must not disclose records the caller cannot see.
	if !lifecycle.VisibilityFor(p).Allows(current) {
		err = dErrors.New(dErrors.CodeNotFound, "event not found")
		return nil, err
	}

	observed := current.Status
	span.SetAttributes(tracer.String(tracer.AttrStatusFrom, string(observed)))
	if _, err = lifecycle.Evaluate(p, op, observed, current.CreatedBy); err != nil {
		s.incrementDenial(err)
		return nil, err
	}

	now := s.now().UTC()
	var logAction models.Action
	event, err := s.store.Transition(ctx, eventID, func(fresh *models.Event) (*models.LogEntry, error) {
		decision, evalErr := lifecycle.Evaluate(p, op, fresh.Status, fresh.CreatedBy)
		if evalErr != nil {
			if fresh.Status != observed {
				return nil, dErrors.New(dErrors.CodeConflict, "event was modified concurrently; re-fetch and retry")
			}
			return nil, evalErr
		}

		if decision.StatusChanges {
			fresh.Status = decision.Next
		}
		if decision.SetApprovedAt && fresh.ApprovedAt == nil {
			approvedAt := now
			fresh.ApprovedAt = &approvedAt
		}
		if mutate != nil {
			mutate(fresh)
		}
		fresh.UpdatedBy = p.ID
		fresh.UpdatedAt = now

		logAction = decision.LogAction
		actor := p.ID
		return models.NewLogEntry(id.NewLogID(), fresh.ID, &actor, decision.LogAction, note, now), nil
	})
	if err != nil {
		err = s.translateStoreErr(err)
		s.incrementDenial(err)
		return nil, err
	}

	span.SetAttributes(
		tracer.String(tracer.AttrStatusTo, string(event.Status)),
		tracer.String(tracer.AttrLogAction, string(logAction)),
	)
	s.incrementTransition(logAction)
	s.logTransition(ctx, event, logAction, p)
	return event, nil
}

// List returns events inside the caller's visibility scope. The scope is part
// of the store query, never a post-hoc filter.
func (s *Service) List(ctx context.Context, p identity.Principal, filter *models.ListFilter) ([]*models.Event, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanList)
	start := s.now()
	var err error
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveListLatency(time.Since(start).Seconds())
		}
		span.End(err)
	}()

	if filter == nil {
		filter = &models.ListFilter{}
	}
	filter.Normalize()

	events, err := s.store.List(ctx, lifecycle.VisibilityFor(p), filter)
	if err != nil {
		err = s.translateStoreErr(err)
		return nil, err
	}
	return events, nil
}

// Get returns one event if the caller may see it, not found otherwise.
func (s *Service) Get(ctx context.Context, p identity.Principal, eventID id.EventID) (*models.Event, error) {
	event, err := s.store.Get(ctx, eventID)
	if err != nil {
		return nil, s.translateStoreErr(err)
	}
	if !lifecycle.VisibilityFor(p).Allows(event) {
		return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return event, nil
}

// History returns the ordered moderation log of an event. Restricted to
// admins and the event owner; invisible events stay not found.
func (s *Service) History(ctx context.Context, p identity.Principal, eventID id.EventID) ([]*models.LogEntry, error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanHistory,
		tracer.String(tracer.AttrEventID, eventID.String()),
	)
	var err error
	defer func() { span.End(err) }()

	event, err := s.Get(ctx, p, eventID)
	if err != nil {
		return nil, err
	}
	if !p.IsAdmin() && !p.Owns(event.CreatedBy) {
		err = dErrors.New(dErrors.CodeForbidden, "moderation history restricted to admins and the event owner")
		return nil, err
	}

	entries, err := s.store.History(ctx, eventID)
	if err != nil {
		err = s.translateStoreErr(err)
		return nil, err
	}
	return entries, nil
}

// translateStoreErr maps store failures to domain errors exactly once.
// Domain errors (guard denials, conflicts) pass through untouched.
func (s *Service) translateStoreErr(err error) error {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "event storage unavailable")
}

func (s *Service) incrementTransition(action models.Action) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(string(action))
	}
}

func (s *Service) incrementDenial(err error) {
	if s.metrics == nil {
		return
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		s.metrics.IncrementDenial(string(domainErr.Code))
		return
	}
	s.metrics.IncrementDenial(string(dErrors.CodeInternal))
}

func (s *Service) logTransition(ctx context.Context, event *models.Event, action models.Action, p identity.Principal) {
	if s.logger == nil {
		return
	}
	s.logger.InfoContext(ctx, "moderation transition",
		"event_id", event.ID.String(),
		"action", action,
		"status", event.Status,
		"actor_id", p.ID.String(),
		"actor_role", p.Role,
	)
}
