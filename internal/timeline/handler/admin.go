package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	identity "chronicle/internal/identity/models"
	"chronicle/internal/platform/middleware"
	"chronicle/internal/timeline/models"
	id "chronicle/pkg/domain"
	"chronicle/pkg/platform/httputil"
)

// RegisterAdmin registers the moderation queue and decision routes.
// All routes require active admin authority.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/admin/events/pending", h.handleQueue(models.StatusPending))
		r.Get("/admin/events/deletion-requests", h.handleQueue(models.StatusDeletionRequested))
		r.Post("/admin/events/{eventID}/approve", h.handleApprove)
		r.Post("/admin/events/{eventID}/reject", h.handleReject)
		r.Post("/admin/events/{eventID}/confirm-deletion", h.handleConfirmDeletion)
		r.Post("/admin/events/{eventID}/deny-deletion", h.handleDenyDeletion)
		r.Delete("/admin/events/{eventID}", h.handleAdminDelete)
	})
}

// handleQueue serves a moderation queue: all events in one status, oldest
// first by the usual ordering, with standard pagination.
func (h *Handler) handleQueue(status models.Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		p := middleware.GetPrincipal(ctx)

		filter, err := parseListFilter(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		queueStatus := status
		filter.Status = &queueStatus

		events, err := h.timeline.List(ctx, p, filter)
		if err != nil {
			h.logError(ctx, "failed to list moderation queue", err)
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusOK, models.NewListResponse(events))
	}
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(p identity.Principal, eventID id.EventID) (*models.Event, error) {
		return h.timeline.Approve(r.Context(), p, eventID)
	})
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	note, err := decodeNote(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.decide(w, r, func(p identity.Principal, eventID id.EventID) (*models.Event, error) {
		return h.timeline.Reject(r.Context(), p, eventID, note)
	})
}

func (h *Handler) handleConfirmDeletion(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(p identity.Principal, eventID id.EventID) (*models.Event, error) {
		return h.timeline.ConfirmDeletion(r.Context(), p, eventID)
	})
}

func (h *Handler) handleDenyDeletion(w http.ResponseWriter, r *http.Request) {
	note, err := decodeNote(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.decide(w, r, func(p identity.Principal, eventID id.EventID) (*models.Event, error) {
		return h.timeline.DenyDeletion(r.Context(), p, eventID, note)
	})
}

func (h *Handler) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, func(p identity.Principal, eventID id.EventID) (*models.Event, error) {
		return h.timeline.AdminDelete(r.Context(), p, eventID)
	})
}

// decide runs one moderation decision and writes the updated event.
func (h *Handler) decide(w http.ResponseWriter, r *http.Request, run func(identity.Principal, id.EventID) (*models.Event, error)) {
	ctx := r.Context()
	p := middleware.GetPrincipal(ctx)

	eventID, err := eventIDParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := run(p, eventID)
	if err != nil {
		h.logError(ctx, "moderation decision failed", err)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.NewEventResponse(event))
}
