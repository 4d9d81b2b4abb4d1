package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/tiback/tiback-client/internal/auth"
	"github.com/tiback/tiback-client/internal/core/domain"
	apperrors "github.com/tiback/tiback-client/internal/core/errors"
	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/core/store"
)

const (
	defaultLoginError    = "login failed"
	defaultRegisterError = "registration failed"
)

// Result is the outcome of a login or registration. Error holds a message
// suitable for showing next to the form.
type Result struct {
	Success bool
	Error   string
}

// AuthService drives the session lifecycle: loading, then anonymous or
// authenticated. Every operation that mutates auth state holds mu, so
// overlapping calls queue instead of interleaving.
type AuthService struct {
	api      ports.AuthAPI
	sessions ports.SessionStore
	store    *store.Store
	logger   *slog.Logger
	now      func() time.Time

	mu sync.Mutex
}

// NewAuthService creates a new authentication service
func NewAuthService(api ports.AuthAPI, sessions ports.SessionStore, st *store.Store, logger *slog.Logger) *AuthService {
	return &AuthService{
		api:      api,
		sessions: sessions,
		store:    st,
		logger:   logger.With("component", "auth_service"),
		now:      time.Now,
	}
}

// Restore loads the persisted session. Both tokens are required to come back
// authenticated. Loading is always cleared.
func (s *AuthService) Restore(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.sessions.Load(ctx)
	if !session.HasTokens() {
		s.store.Dispatch(store.AuthLoading(false))
		return false
	}

	s.store.Dispatch(store.AuthRestoreSession(session))
	s.logger.Info("session restored", "role", session.Role)
	return true
}

// Login authenticates with email and password. Failures never escape as
// errors; they come back as Result.Error.
func (s *AuthService) Login(ctx context.Context, email, password string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.Dispatch(store.AuthLoading(true))

	resp, err := s.api.Login(ctx, domain.Credentials{Email: email, Password: password})
	if err != nil {
		s.store.Dispatch(store.AuthLoading(false))
		s.logger.Warn("login failed", "error", err)
		return Result{Error: failureMessage(err, defaultLoginError)}
	}

	s.establish(ctx, resp.Session())
	s.logger.Info("login succeeded", "role", resp.Role)
	return Result{Success: true}
}

// Register creates an account and, on success, signs the new user in.
func (s *AuthService) Register(ctx context.Context, reg domain.Registration) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := reg.Validate(); err != nil {
		return Result{Error: err.Error()}
	}

	s.store.Dispatch(store.AuthLoading(true))

	resp, err := s.api.Register(ctx, reg)
	if err != nil {
		s.store.Dispatch(store.AuthLoading(false))
		s.logger.Warn("registration failed", "error", err)
		return Result{Error: failureMessage(err, defaultRegisterError)}
	}

	session := resp.Session()
	if session.Role == "" {
		session.Role = reg.Role
	}
	s.establish(ctx, session)
	s.logger.Info("registration succeeded", "role", session.Role)
	return Result{Success: true}
}

func (s *AuthService) establish(ctx context.Context, session domain.Session) {
	// The in-memory session stays authoritative when persistence fails.
	if err := s.sessions.Save(ctx, session); err != nil {
		s.logger.Error("failed to persist session", "error", err)
	}
	s.store.Dispatch(store.AuthLoginSuccess(session))
}

// Refresh rotates the token pair. It is fail-closed: any failure logs the
// user out. Without a stored refresh token it returns false and makes no
// request.
func (s *AuthService) Refresh(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *AuthService) refreshLocked(ctx context.Context) bool {
	refreshToken := s.sessions.Load(ctx).RefreshToken
	if refreshToken == "" {
		if rt := s.store.State().Auth.RefreshToken; rt != nil {
			refreshToken = *rt
		}
	}
	if refreshToken == "" {
		return false
	}

	pair, err := s.api.Refresh(ctx, refreshToken)
	if err != nil {
		s.logger.Warn("token refresh failed, logging out", "error", err)
		s.logoutLocked(ctx)
		return false
	}

	if err := s.sessions.SaveTokens(ctx, *pair); err != nil {
		s.logger.Error("failed to persist rotated tokens", "error", err)
	}
	s.store.Dispatch(store.AuthRefreshToken(*pair))
	s.logger.Debug("tokens rotated")
	return true
}

// RefreshIfExpiring refreshes when the session is authenticated and the
// access token expires within window. It reports whether a usable session
// remains.
func (s *AuthService) RefreshIfExpiring(ctx context.Context, window time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.store.State().Auth
	if !a.IsAuthenticated {
		return false
	}
	if !auth.ExpiresWithin(a.Token(), window, s.now()) {
		return true
	}
	return s.refreshLocked(ctx)
}

// Logout clears persistence and resets auth to the anonymous shape. Calling
// it again is harmless.
func (s *AuthService) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutLocked(ctx)
}

func (s *AuthService) logoutLocked(ctx context.Context) {
	if err := s.sessions.Clear(ctx); err != nil {
		s.logger.Error("failed to clear persisted session", "error", err)
	}
	s.store.Dispatch(store.AuthLogout())
}

// HasRole reports whether the current role is one of allowed.
func (s *AuthService) HasRole(allowed ...domain.Role) bool {
	role := s.store.State().Auth.CurrentRole()
	if role == "" {
		return false
	}
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// Claims decodes the current access token for display purposes.
func (s *AuthService) Claims() (*auth.Claims, bool) {
	return auth.Decode(s.store.State().Auth.Token())
}

// failureMessage prefers the message the backend sent. Transport errors are
// reported as-is.
func failureMessage(err error, fallback string) string {
	var public interface{ PublicMessage() string }
	if errors.As(err, &public) {
		if msg := public.PublicMessage(); msg != "" {
			return msg
		}
		return fallback
	}
	if err == nil || errors.Is(err, apperrors.ErrMalformedResponse) {
		return fallback
	}
	return err.Error()
}
