package store

import "github.com/tiback/tiback-client/internal/core/domain"

// Reduce returns the state that results from applying action to s. It never
// mutates s. Unknown actions, and actions whose payload does not match their
// type, return s itself.
func Reduce(s *State, action Action) *State {
	switch action.Type {
	case ActionAuthLoading, ActionAuthLoginSuccess, ActionAuthLogout,
		ActionAuthRefreshToken, ActionAuthRestoreSession:
		return reduceAuth(s, action)

	case ActionAPILoading:
		loading, ok := action.Payload.(bool)
		if !ok {
			return s
		}
		next := *s
		next.API.Loading = loading
		return &next

	case ActionAPIError:
		msg, ok := action.Payload.(string)
		if !ok {
			return s
		}
		next := *s
		next.API = APIState{Loading: false, Error: msg}
		return &next

	case ActionEntityAdd, ActionEntityUpsert, ActionEntityRemove,
		ActionEntitySetList, ActionEntitySetDetail, ActionEntityClearDetail:
		return reduceEntity(s, action)

	case ActionWSConnected, ActionWSDisconnected, ActionWSNotification, ActionWSClearNotifications:
		return reduceWebSocket(s, action)
	}
	return s
}

func reduceAuth(s *State, action Action) *State {
	next := *s

	switch action.Type {
	case ActionAuthLoading:
		loading, ok := action.Payload.(bool)
		if !ok {
			return s
		}
		next.Auth.IsLoading = loading

	case ActionAuthLoginSuccess, ActionAuthRestoreSession:
		session, ok := action.Payload.(domain.Session)
		if !ok {
			return s
		}
		next.Auth = authFromSession(session)

	case ActionAuthRefreshToken:
		tokens, ok := action.Payload.(domain.TokenPair)
		if !ok {
			return s
		}
		next.Auth.AccessToken = optional(tokens.AccessToken)
		next.Auth.RefreshToken = optional(tokens.RefreshToken)
		next.Auth.IsAuthenticated = next.Auth.AccessToken != nil

	case ActionAuthLogout:
		next.Auth = AuthState{}
	}

	return &next
}

func authFromSession(session domain.Session) AuthState {
	auth := AuthState{
		AccessToken:  optional(session.AccessToken),
		RefreshToken: optional(session.RefreshToken),
	}
	if session.User != nil {
		user := *session.User
		auth.User = &user
	}
	if session.Role != "" {
		role := session.Role
		auth.Role = &role
	}
	auth.IsAuthenticated = auth.AccessToken != nil
	return auth
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func reduceEntity(s *State, action Action) *State {
	p, ok := action.Payload.(EntityPayload)
	if !ok {
		return s
	}

	next := *s
	switch p.Collection {
	case CollectionTickets:
		next.Tickets, ok = applyEntity(s.Tickets, action.Type, p)
	case CollectionComments:
		next.Comments, ok = applyEntity(s.Comments, action.Type, p)
	case CollectionAssignments:
		next.Assignments, ok = applyEntity(s.Assignments, action.Type, p)
	case CollectionChatMessages:
		next.ChatMessages, ok = applyEntity(s.ChatMessages, action.Type, p)
	case CollectionClients:
		next.Clients, ok = applyEntity(s.Clients, action.Type, p)
	case CollectionAnalysts:
		next.Analysts, ok = applyEntity(s.Analysts, action.Type, p)
	case CollectionSupervisors:
		next.Supervisors, ok = applyEntity(s.Supervisors, action.Type, p)
	case CollectionAdministrators:
		next.Administrators, ok = applyEntity(s.Administrators, action.Type, p)
	default:
		ok = false
	}
	if !ok {
		return s
	}

	// Every completed entity write ends the pending request.
	next.API = APIState{}
	return &next
}

func applyEntity[T Entity](c Collection[T], t ActionType, p EntityPayload) (Collection[T], bool) {
	switch t {
	case ActionEntityAdd, ActionEntityUpsert:
		item, ok := p.Item.(T)
		if !ok {
			return c, false
		}
		return c.withUpsert(item), true

	case ActionEntityRemove:
		return c.withRemove(p.ID), true

	case ActionEntitySetList:
		items, ok := p.Items.([]T)
		if !ok {
			return c, false
		}
		return c.withList(items), true

	case ActionEntitySetDetail:
		item, ok := p.Item.(T)
		if !ok {
			return c, false
		}
		return c.withDetail(&item), true

	case ActionEntityClearDetail:
		return c.withDetail(nil), true
	}
	return c, false
}

func reduceWebSocket(s *State, action Action) *State {
	next := *s

	switch action.Type {
	case ActionWSConnected:
		next.WebSocket.Connected = true

	case ActionWSDisconnected:
		next.WebSocket.Connected = false

	case ActionWSNotification:
		n, ok := action.Payload.(domain.Notification)
		if !ok {
			return s
		}
		next.WebSocket.Notifications = appendBounded(s.WebSocket.Notifications, n, s.WebSocket.Retention)

	case ActionWSClearNotifications:
		next.WebSocket.Notifications = nil
	}

	return &next
}

// appendBounded returns a new slice holding the last limit entries of log+n.
func appendBounded(log []domain.Notification, n domain.Notification, limit int) []domain.Notification {
	if limit <= 0 {
		limit = DefaultNotificationRetention
	}
	start := 0
	if len(log)+1 > limit {
		start = len(log) + 1 - limit
	}
	out := make([]domain.Notification, 0, len(log)-start+1)
	out = append(out, log[start:]...)
	return append(out, n)
}
