package store

import (
	"sort"

	"github.com/tiback/tiback-client/internal/core/domain"
)

// DefaultNotificationRetention bounds the notification log when no explicit
// retention is configured.
const DefaultNotificationRetention = 200

// AuthState mirrors the session. IsAuthenticated is always AccessToken != nil
// after any auth action.
type AuthState struct {
	AccessToken     *string
	RefreshToken    *string
	User            *domain.User
	Role            *domain.Role
	IsAuthenticated bool
	IsLoading       bool
}

// Token returns the access token or "".
func (a AuthState) Token() string {
	if a.AccessToken == nil {
		return ""
	}
	return *a.AccessToken
}

// CurrentRole returns the role or "".
func (a AuthState) CurrentRole() domain.Role {
	if a.Role == nil {
		return ""
	}
	return *a.Role
}

// UserID returns the logged-in user's id, or 0.
func (a AuthState) UserID() int64 {
	if a.User == nil {
		return 0
	}
	return a.User.ID
}

// WebSocketState tracks the real-time connection. Connected is true only
// while the transport is open.
type WebSocketState struct {
	Connected     bool
	Notifications []domain.Notification
	// Retention is the maximum number of notifications kept; oldest go first.
	Retention int
}

// APIState carries the loading and error flags of the last REST call.
type APIState struct {
	Loading bool
	Error   string
}

// Entity is anything cached by id.
type Entity interface {
	Key() int64
}

// Collection is a read-through cache of server entities plus the one
// currently shown in detail.
type Collection[T Entity] struct {
	Items  map[int64]T
	Detail *T
}

// Get returns the cached entity with the given id.
func (c Collection[T]) Get(id int64) (T, bool) {
	v, ok := c.Items[id]
	return v, ok
}

// Len returns the number of cached entities.
func (c Collection[T]) Len() int {
	return len(c.Items)
}

// List returns the cached entities ordered by id.
func (c Collection[T]) List() []T {
	out := make([]T, 0, len(c.Items))
	for _, v := range c.Items {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

func (c Collection[T]) cloneItems() map[int64]T {
	items := make(map[int64]T, len(c.Items)+1)
	for k, v := range c.Items {
		items[k] = v
	}
	return items
}

func (c Collection[T]) withUpsert(item T) Collection[T] {
	items := c.cloneItems()
	items[item.Key()] = item
	return Collection[T]{Items: items, Detail: c.Detail}
}

func (c Collection[T]) withRemove(id int64) Collection[T] {
	items := c.cloneItems()
	delete(items, id)
	return Collection[T]{Items: items, Detail: c.Detail}
}

func (c Collection[T]) withList(list []T) Collection[T] {
	items := make(map[int64]T, len(list))
	for _, v := range list {
		items[v.Key()] = v
	}
	return Collection[T]{Items: items, Detail: c.Detail}
}

func (c Collection[T]) withDetail(item *T) Collection[T] {
	return Collection[T]{Items: c.Items, Detail: item}
}

// State is the whole application state. Values reachable from a State are
// never mutated; reducers build a new State instead.
type State struct {
	Auth      AuthState
	WebSocket WebSocketState
	API       APIState

	Tickets        Collection[domain.Ticket]
	Comments       Collection[domain.Comment]
	Assignments    Collection[domain.Assignment]
	ChatMessages   Collection[domain.ChatMessage]
	Clients        Collection[domain.User]
	Analysts       Collection[domain.User]
	Supervisors    Collection[domain.User]
	Administrators Collection[domain.User]
}

// InitialState returns the startup state: no session and auth still loading.
func InitialState(retention int) *State {
	if retention <= 0 {
		retention = DefaultNotificationRetention
	}
	return &State{
		Auth:      AuthState{IsLoading: true},
		WebSocket: WebSocketState{Retention: retention},
	}
}

// Users returns the user collection for a role.
func (s *State) Users(role domain.Role) Collection[domain.User] {
	switch role {
	case domain.RoleCliente:
		return s.Clients
	case domain.RoleAnalista:
		return s.Analysts
	case domain.RoleSupervisor:
		return s.Supervisors
	case domain.RoleAdministrador:
		return s.Administrators
	}
	return Collection[domain.User]{}
}
