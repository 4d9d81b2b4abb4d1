package store

import "github.com/tiback/tiback-client/internal/core/domain"

// ActionType names a state transition.
type ActionType string

const (
	ActionAuthLoading        ActionType = "auth_loading"
	ActionAuthLoginSuccess   ActionType = "auth_login_success"
	ActionAuthLogout         ActionType = "auth_logout"
	ActionAuthRefreshToken   ActionType = "auth_refresh_token"
	ActionAuthRestoreSession ActionType = "auth_restore_session"

	ActionAPILoading ActionType = "api_loading"
	ActionAPIError   ActionType = "api_error"

	ActionEntityAdd         ActionType = "entity_add"
	ActionEntityUpsert      ActionType = "entity_upsert"
	ActionEntityRemove      ActionType = "entity_remove"
	ActionEntitySetList     ActionType = "entity_set_list"
	ActionEntitySetDetail   ActionType = "entity_set_detail"
	ActionEntityClearDetail ActionType = "entity_clear_detail"

	ActionWSConnected          ActionType = "ws_connected"
	ActionWSDisconnected       ActionType = "ws_disconnected"
	ActionWSNotification       ActionType = "ws_notification"
	ActionWSClearNotifications ActionType = "ws_clear_notifications"
)

// Action is the only input to Reduce.
type Action struct {
	Type    ActionType
	Payload any
}

// CollectionKind selects a cached collection.
type CollectionKind string

const (
	CollectionTickets        CollectionKind = "tickets"
	CollectionComments       CollectionKind = "comentarios"
	CollectionAssignments    CollectionKind = "asignaciones"
	CollectionChatMessages   CollectionKind = "chats"
	CollectionClients        CollectionKind = "clientes"
	CollectionAnalysts       CollectionKind = "analistas"
	CollectionSupervisors    CollectionKind = "supervisores"
	CollectionAdministrators CollectionKind = "administradores"
)

// UserCollection returns the collection that caches users of role.
func UserCollection(role domain.Role) CollectionKind {
	return CollectionKind(role.Plural())
}

// EntityPayload is carried by every entity action. Item is a single entity,
// Items a slice of them, ID the key for removals.
type EntityPayload struct {
	Collection CollectionKind
	Item       any
	Items      any
	ID         int64
}

func AuthLoading(loading bool) Action {
	return Action{Type: ActionAuthLoading, Payload: loading}
}

func AuthLoginSuccess(session domain.Session) Action {
	return Action{Type: ActionAuthLoginSuccess, Payload: session}
}

func AuthLogout() Action {
	return Action{Type: ActionAuthLogout}
}

func AuthRefreshToken(tokens domain.TokenPair) Action {
	return Action{Type: ActionAuthRefreshToken, Payload: tokens}
}

func AuthRestoreSession(session domain.Session) Action {
	return Action{Type: ActionAuthRestoreSession, Payload: session}
}

func APILoading(loading bool) Action {
	return Action{Type: ActionAPILoading, Payload: loading}
}

func APIError(message string) Action {
	return Action{Type: ActionAPIError, Payload: message}
}

func Add[T Entity](c CollectionKind, item T) Action {
	return Action{Type: ActionEntityAdd, Payload: EntityPayload{Collection: c, Item: item}}
}

func Upsert[T Entity](c CollectionKind, item T) Action {
	return Action{Type: ActionEntityUpsert, Payload: EntityPayload{Collection: c, Item: item}}
}

func Remove(c CollectionKind, id int64) Action {
	return Action{Type: ActionEntityRemove, Payload: EntityPayload{Collection: c, ID: id}}
}

func SetList[T Entity](c CollectionKind, items []T) Action {
	return Action{Type: ActionEntitySetList, Payload: EntityPayload{Collection: c, Items: items}}
}

func SetDetail[T Entity](c CollectionKind, item T) Action {
	return Action{Type: ActionEntitySetDetail, Payload: EntityPayload{Collection: c, Item: item}}
}

func ClearDetail(c CollectionKind) Action {
	return Action{Type: ActionEntityClearDetail, Payload: EntityPayload{Collection: c}}
}

func WSConnected() Action {
	return Action{Type: ActionWSConnected}
}

func WSDisconnected() Action {
	return Action{Type: ActionWSDisconnected}
}

func WSNotification(n domain.Notification) Action {
	return Action{Type: ActionWSNotification, Payload: n}
}

func WSClearNotifications() Action {
	return Action{Type: ActionWSClearNotifications}
}
