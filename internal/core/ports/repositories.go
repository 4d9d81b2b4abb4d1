package ports

import (
	"context"

	"github.com/tiback/tiback-client/internal/core/domain"
)

// KeyValueStore is the string key-value persistence the session is written to.
// Get returns ok=false for a missing key. Delete of a missing key is not an error.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}

// SessionStore saves, loads and clears the persisted session.
type SessionStore interface {
	Save(ctx context.Context, session domain.Session) error
	SaveTokens(ctx context.Context, tokens domain.TokenPair) error
	// Load never fails; unreadable or malformed entries come back empty.
	Load(ctx context.Context) domain.Session
	Clear(ctx context.Context) error
}
