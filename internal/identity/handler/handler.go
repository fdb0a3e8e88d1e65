package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"chronicle/internal/identity/models"
	"chronicle/internal/platform/middleware"
	id "chronicle/pkg/domain"
	dErrors "chronicle/pkg/domain-errors"
	"chronicle/pkg/platform/httputil"
)

// Service defines the interface for account operations.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req models.LoginRequest) (string, *models.User, error)
	CurrentUser(ctx context.Context, p models.Principal) (*models.User, error)
	ListUsers(ctx context.Context, p models.Principal) ([]*models.User, error)
	Suspend(ctx context.Context, p models.Principal, userID id.UserID) (*models.User, error)
	Activate(ctx context.Context, p models.Principal, userID id.UserID) (*models.User, error)
}

// Handler serves registration, login, and account administration.
type Handler struct {
	logger   *slog.Logger
	identity Service
	tokenTTL time.Duration
}

func New(identity Service, tokenTTL time.Duration, logger *slog.Logger) *Handler {
	return &Handler{
		logger:   logger,
		identity: identity,
		tokenTTL: tokenTTL,
	}
}

// Register registers the identity routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.handleRegister)
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuthenticated)
		r.Get("/auth/user", h.handleCurrentUser)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/admin/users", h.handleListUsers)
		r.Post("/admin/users/{userID}/suspend", h.handleSuspend)
		r.Post("/admin/users/{userID}/activate", h.handleActivate)
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	user, err := h.identity.Register(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, models.NewUserResponse(user))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	accessToken, user, err := h.identity.Login(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.TokenResponse{
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokenTTL.Seconds()),
		User:        models.NewUserResponse(user),
	})
}

func (h *Handler) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.identity.CurrentUser(ctx, middleware.GetPrincipal(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.NewUserResponse(user))
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	users, err := h.identity.ListUsers(ctx, middleware.GetPrincipal(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	responses := make([]models.UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, models.NewUserResponse(user))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"users": responses,
		"count": len(responses),
	})
}

func (h *Handler) handleSuspend(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.identity.Suspend)
}

func (h *Handler) handleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, h.identity.Activate)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, run func(context.Context, models.Principal, id.UserID) (*models.User, error)) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid user id"))
		return
	}

	user, err := run(ctx, middleware.GetPrincipal(ctx), userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "account state change failed",
			"request_id", middleware.GetRequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, models.NewUserResponse(user))
}
