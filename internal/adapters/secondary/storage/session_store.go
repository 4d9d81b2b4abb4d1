package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tiback/tiback-client/internal/core/domain"
	"github.com/tiback/tiback-client/internal/core/ports"
)

// Persistence keys. Together they are the whole on-disk session contract.
const (
	KeyAccessToken  = "accessToken"
	KeyRefreshToken = "refreshToken"
	KeyUser         = "user"
	KeyRole         = "role"
)

var sessionKeys = []string{KeyAccessToken, KeyRefreshToken, KeyUser, KeyRole}

// SessionStore maps a domain.Session onto four string keys of a KeyValueStore.
type SessionStore struct {
	kv     ports.KeyValueStore
	logger *slog.Logger
}

// Ensure SessionStore implements the ports.SessionStore interface.
var _ ports.SessionStore = (*SessionStore)(nil)

// NewSessionStore creates a session store on top of kv.
func NewSessionStore(kv ports.KeyValueStore, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		kv:     kv,
		logger: logger.With("component", "session_store"),
	}
}

// Save writes all four keys.
func (s *SessionStore) Save(ctx context.Context, session domain.Session) error {
	user, err := json.Marshal(session.User)
	if err != nil {
		return fmt.Errorf("storage: failed to encode user: %w", err)
	}

	values := [][2]string{
		{KeyAccessToken, session.AccessToken},
		{KeyRefreshToken, session.RefreshToken},
		{KeyUser, string(user)},
		{KeyRole, string(session.Role)},
	}
	for _, kv := range values {
		if err := s.kv.Set(ctx, kv[0], kv[1]); err != nil {
			return fmt.Errorf("storage: failed to save %s: %w", kv[0], err)
		}
	}
	return nil
}

// SaveTokens overwrites only the token keys.
func (s *SessionStore) SaveTokens(ctx context.Context, tokens domain.TokenPair) error {
	if err := s.kv.Set(ctx, KeyAccessToken, tokens.AccessToken); err != nil {
		return fmt.Errorf("storage: failed to save %s: %w", KeyAccessToken, err)
	}
	if err := s.kv.Set(ctx, KeyRefreshToken, tokens.RefreshToken); err != nil {
		return fmt.Errorf("storage: failed to save %s: %w", KeyRefreshToken, err)
	}
	return nil
}

// Load reads whatever is stored. Missing keys, read failures and malformed
// values all come back as absent fields.
func (s *SessionStore) Load(ctx context.Context) domain.Session {
	session := domain.Session{
		AccessToken:  s.get(ctx, KeyAccessToken),
		RefreshToken: s.get(ctx, KeyRefreshToken),
	}

	if raw := s.get(ctx, KeyUser); raw != "" {
		var user *domain.User
		if err := json.Unmarshal([]byte(raw), &user); err != nil {
			s.logger.WarnContext(ctx, "discarding malformed persisted user", "error", err)
		} else {
			session.User = user
		}
	}

	if raw := s.get(ctx, KeyRole); raw != "" {
		role, err := domain.ParseRole(raw)
		if err != nil {
			s.logger.WarnContext(ctx, "discarding malformed persisted role", "error", err)
		} else {
			session.Role = role
		}
	}

	return session
}

// Clear removes every session key. Clearing an empty store is not an error.
func (s *SessionStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, sessionKeys...); err != nil {
		return fmt.Errorf("storage: failed to clear session: %w", err)
	}
	return nil
}

func (s *SessionStore) get(ctx context.Context, key string) string {
	value, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read persisted session key", "key", key, "error", err)
		return ""
	}
	if !ok {
		return ""
	}
	return value
}
