package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	identity "chronicle/internal/identity/models"
	"chronicle/internal/platform/middleware"
	"chronicle/internal/timeline/models"
	id "chronicle/pkg/domain"
	dErrors "chronicle/pkg/domain-errors"
	"chronicle/pkg/platform/httputil"
)

// Service defines the interface for event moderation operations.
type Service interface {
	Create(ctx context.Context, p identity.Principal, payload models.EventPayload) (*models.Event, error)
	Update(ctx context.Context, p identity.Principal, eventID id.EventID, payload models.EventPayload) (*models.Event, error)
	Approve(ctx context.Context, p identity.Principal, eventID id.EventID) (*models.Event, error)
	Reject(ctx context.Context, p identity.Principal, eventID id.EventID, note string) (*models.Event, error)
	RequestDeletion(ctx context.Context, p identity.Principal, eventID id.EventID, note string) (*models.Event, error)
	ConfirmDeletion(ctx context.Context, p identity.Principal, eventID id.EventID) (*models.Event, error)
	DenyDeletion(ctx context.Context, p identity.Principal, eventID id.EventID, note string) (*models.Event, error)
	AdminDelete(ctx context.Context, p identity.Principal, eventID id.EventID) (*models.Event, error)
	List(ctx context.Context, p identity.Principal, filter *models.ListFilter) ([]*models.Event, error)
	Get(ctx context.Context, p identity.Principal, eventID id.EventID) (*models.Event, error)
	History(ctx context.Context, p identity.Principal, eventID id.EventID) ([]*models.LogEntry, error)
}

// Handler serves the public timeline and contributor endpoints.
type Handler struct {
	logger   *slog.Logger
	timeline Service
}

func New(timeline Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		timeline: timeline,
	}
}

// Register registers public and contributor routes with the chi router.
// The principal middleware must already be mounted.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events", h.handleList)
	r.Get("/events/{eventID}", h.handleGet)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuthenticated)
		r.Get("/events/{eventID}/history", h.handleHistory)
		r.Post("/events", h.handleCreate)
		r.Put("/events/{eventID}", h.handleUpdate)
		r.Post("/events/{eventID}/request-deletion", h.handleRequestDeletion)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := middleware.GetPrincipal(ctx)

	filter, err := parseListFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.timeline.List(ctx, p, filter)
	if err != nil {
		h.logError(ctx, "failed to list events", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.NewListResponse(events))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := middleware.GetPrincipal(ctx)

	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := h.timeline.Get(ctx, p, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.NewEventResponse(event))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := middleware.GetPrincipal(ctx)

	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.timeline.History(ctx, p, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.NewHistoryResponse(eventID, entries))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := middleware.GetPrincipal(ctx)

	var payload models.EventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	event, err := h.timeline.Create(ctx, p, payload)
	if err != nil {
		h.logError(ctx, "failed to create event", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, models.NewEventResponse(event))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := middleware.GetPrincipal(ctx)

	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var payload models.EventPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	event, err := h.timeline.Update(ctx, p, eventID, payload)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.NewEventResponse(event))
}

func (h *Handler) handleRequestDeletion(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	p := middleware.GetPrincipal(ctx)

	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	note, err := decodeNote(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := h.timeline.RequestDeletion(ctx, p, eventID, note)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.NewEventResponse(event))
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	h.logger.ErrorContext(ctx, msg,
		"request_id", middleware.GetRequestID(ctx),
		"error", err,
	)
}

func eventIDParam(r *http.Request) (id.EventID, error) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		return id.EventID{}, dErrors.New(dErrors.CodeBadRequest, "invalid event id")
	}
	return eventID, nil
}

// decodeNote reads an optional {"note": "..."} body. An absent body is fine;
// moderation notes are never required. A body that is present but not valid
// JSON is rejected like any other malformed request.
func decodeNote(r *http.Request) (string, error) {
	var body struct {
		Note string `json:"note"`
	}
	err := json.NewDecoder(r.Body).Decode(&body)
	if errors.Is(err, io.EOF) {
		return "", nil
	}
	if err != nil {
		return "", dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return body.Note, nil
}
