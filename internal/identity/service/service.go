package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"chronicle/internal/audit"
	"chronicle/internal/identity/models"
	"chronicle/internal/identity/store"
	"chronicle/internal/identity/token"
	"chronicle/internal/ratelimit"
	"chronicle/internal/sentinel"
	id "chronicle/pkg/domain"
	dErrors "chronicle/pkg/domain-errors"

	"golang.org/x/crypto/bcrypt"
)

// Service manages accounts and credential authentication. Tokens establish
// identity only; authority is always re-read from the user row so that
// suspensions take effect on the next request.
type Service struct {
	store   store.Store
	tokens  *token.JWTService
	audit   *audit.Publisher
	limiter *ratelimit.LoginLimiter
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Service)

// WithAudit attaches an audit publisher for identity events.
func WithAudit(publisher *audit.Publisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// WithLoginLimiter throttles repeated failed logins per username.
func WithLoginLimiter(limiter *ratelimit.LoginLimiter) Option {
	return func(s *Service) {
		s.limiter = limiter
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

func NewService(userStore store.Store, tokens *token.JWTService, logger *slog.Logger, opts ...Option) *Service {
	svc := &Service{
		store:  userStore,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Register creates a contributor account. The role is fixed; there is no
// self-service path to admin.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}

	user, err := models.NewUser(id.NewUserID(), req.Username, req.Email, string(hash), models.RoleContributor, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username or email already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user storage unavailable")
	}

	s.emit(ctx, user, audit.ActionUserRegistered, "")
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String(), "username", user.Username)
	return user, nil
}

// Login verifies credentials and issues an access token. Failures are
// indistinguishable between unknown username and wrong password.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (string, *models.User, error) {
	if err := req.Validate(); err != nil {
		return "", nil, err
	}

	limitKey := strings.ToLower(req.Username)
	if s.limiter != nil {
		if err := s.limiter.Check(limitKey); err != nil {
			s.emitLoginFailure(ctx, req.Username, "rate limited")
			return "", nil, err
		}
	}

	user, err := s.store.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.recordLoginFailure(limitKey)
			s.emitLoginFailure(ctx, req.Username, "unknown username")
			return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
		}
		return "", nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user storage unavailable")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.recordLoginFailure(limitKey)
		s.emit(ctx, user, audit.ActionLoginFailed, "password mismatch")
		return "", nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}

	if !user.Active {
		s.emit(ctx, user, audit.ActionLoginFailed, "account suspended")
		return "", nil, dErrors.New(dErrors.CodeForbidden, "account suspended")
	}

	accessToken, err := s.tokens.Generate(user)
	if err != nil {
		return "", nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	if s.limiter != nil {
		s.limiter.Clear(limitKey)
	}

	loginAt := s.now().UTC()
	if err := s.store.RecordLogin(ctx, user.ID, loginAt); err != nil {
		// Login timestamps are advisory; never fail an otherwise valid login.
		s.logger.WarnContext(ctx, "failed to record login time", "user_id", user.ID.String(), "error", err)
	}
	user.LastLoginAt = &loginAt

	s.emit(ctx, user, audit.ActionLoginSucceeded, "")
	s.logger.InfoContext(ctx, "user logged in", "user_id", user.ID.String(), "username", user.Username)
	return accessToken, user, nil
}

// ResolveToken turns a bearer token into a principal backed by a fresh user
// row. Stale role or active claims inside the token are ignored.
func (s *Service) ResolveToken(ctx context.Context, tokenString string) (models.Principal, *models.User, error) {
	claims, err := s.tokens.Validate(tokenString)
	if err != nil {
		return models.Anonymous(), nil, err
	}

	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return models.Anonymous(), nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token subject")
	}

	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Anonymous(), nil, dErrors.New(dErrors.CodeUnauthorized, "unknown token subject")
		}
		return models.Anonymous(), nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user storage unavailable")
	}

	return user.Principal(), user, nil
}

// CurrentUser returns the account behind a principal.
func (s *Service) CurrentUser(ctx context.Context, p models.Principal) (*models.User, error) {
	if !p.Authenticated {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.store.FindByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user storage unavailable")
	}
	return user, nil
}

// ListUsers returns all accounts. Admin only.
func (s *Service) ListUsers(ctx context.Context, p models.Principal) ([]*models.User, error) {
	if !p.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin privileges required")
	}
	users, err := s.store.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user storage unavailable")
	}
	return users, nil
}

// Suspend deactivates an account. Admin only; admins cannot suspend
// themselves, which would leave the system without a working admin.
func (s *Service) Suspend(ctx context.Context, p models.Principal, userID id.UserID) (*models.User, error) {
	if !p.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin privileges required")
	}
	if p.ID == userID {
		return nil, dErrors.New(dErrors.CodeConflict, "cannot suspend your own account")
	}
	user, err := s.setActive(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, user, audit.ActionUserSuspended, "suspended by "+p.ID.String())
	s.logger.InfoContext(ctx, "user suspended", "user_id", userID.String(), "admin_id", p.ID.String())
	return user, nil
}

// Activate reinstates a suspended account. Admin only.
func (s *Service) Activate(ctx context.Context, p models.Principal, userID id.UserID) (*models.User, error) {
	if !p.IsAdmin() {
		return nil, dErrors.New(dErrors.CodeForbidden, "admin privileges required")
	}
	user, err := s.setActive(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, user, audit.ActionUserActivated, "activated by "+p.ID.String())
	s.logger.InfoContext(ctx, "user activated", "user_id", userID.String(), "admin_id", p.ID.String())
	return user, nil
}

func (s *Service) setActive(ctx context.Context, userID id.UserID, active bool) (*models.User, error) {
	user, err := s.store.SetActive(ctx, userID, active)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "user storage unavailable")
	}
	return user, nil
}

// EnsureAdmin provisions the bootstrap admin account if it does not exist.
// Called at startup with credentials from configuration.
func (s *Service) EnsureAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "user storage unavailable")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash admin password")
	}

	admin, err := models.NewUser(id.NewUserID(), username, "", string(hash), models.RoleAdmin, s.now().UTC())
	if err != nil {
		return err
	}

	if err := s.store.Create(ctx, admin); err != nil {
		// Lost a race with a concurrent bootstrap; the account exists.
		if errors.Is(err, sentinel.ErrConflict) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "user storage unavailable")
	}

	s.logger.InfoContext(ctx, "bootstrap admin provisioned", "username", username)
	return nil
}

func (s *Service) emit(ctx context.Context, user *models.User, action audit.Action, detail string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Emit(ctx, audit.Event{ //nolint:errcheck // audit is advisory
		UserID:   user.ID.String(),
		Username: user.Username,
		Action:   action,
		Detail:   detail,
	})
}

func (s *Service) recordLoginFailure(key string) {
	if s.limiter != nil {
		s.limiter.RecordFailure(key)
	}
}

func (s *Service) emitLoginFailure(ctx context.Context, username, detail string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Emit(ctx, audit.Event{ //nolint:errcheck // audit is advisory
		Username: username,
		Action:   audit.ActionLoginFailed,
		Detail:   detail,
	})
}
