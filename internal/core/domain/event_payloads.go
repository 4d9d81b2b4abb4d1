package domain

import "time"

// Client-emitted event names.
const (
	EmitJoinRoom                   = "join_room"
	EmitJoinTicket                 = "join_ticket"
	EmitLeaveTicket                = "leave_ticket"
	EmitJoinCriticalRooms          = "join_critical_rooms"
	EmitRequestSync                = "request_sync"
	EmitJoinChatSupervisorAnalyst  = "join_chat_supervisor_analista"
	EmitLeaveChatSupervisorAnalyst = "leave_chat_supervisor_analista"
	EmitJoinChatAnalystClient      = "join_chat_analista_cliente"
	EmitLeaveChatAnalystClient     = "leave_chat_analista_cliente"
)

// ChatKind selects one of the two ticket-scoped chat channels.
type ChatKind string

const (
	ChatSupervisorAnalyst ChatKind = "chat_supervisor_analista"
	ChatAnalystClient     ChatKind = "chat_analista_cliente"
)

func (k ChatKind) Valid() bool {
	return k == ChatSupervisorAnalyst || k == ChatAnalystClient
}

// JoinEvent returns the emit names used to join and leave this chat.
func (k ChatKind) JoinEvent() (join, leave string) {
	if k == ChatAnalystClient {
		return EmitJoinChatAnalystClient, EmitLeaveChatAnalystClient
	}
	return EmitJoinChatSupervisorAnalyst, EmitLeaveChatSupervisorAnalyst
}

// RoleRoom is the broadcast room for every user of a role.
func RoleRoom(role Role) string {
	return string(role) + "_tickets"
}

// CriticalRooms lists the rooms a role subscribes to after connecting.
func CriticalRooms(role Role) []string {
	switch role {
	case RoleAdministrador:
		return []string{"global_tickets", "global_chats", "critical_updates", "admin_tickets", "admin_users", "admin_system"}
	case RoleSupervisor:
		return []string{"supervisor_tickets", "supervisor_analistas", "supervisor_chats"}
	case RoleAnalista:
		return []string{"analista_tickets", "analista_chats"}
	case RoleCliente:
		return []string{"cliente_tickets", "cliente_chats"}
	}
	return nil
}

// TicketRoomPayload is sent with join_ticket, leave_ticket and the chat joins.
type TicketRoomPayload struct {
	TicketID int64 `json:"ticket_id"`
}

// CriticalRoomsPayload is sent with join_critical_rooms.
type CriticalRoomsPayload struct {
	Role          Role     `json:"role"`
	UserID        int64    `json:"user_id"`
	CriticalRooms []string `json:"critical_rooms"`
}

// SyncRequestPayload is sent with request_sync.
type SyncRequestPayload struct {
	Role       Role   `json:"role"`
	UserID     int64  `json:"user_id"`
	SyncType   string `json:"sync_type"`
	IncludeAll bool   `json:"include_all"`
	Timestamp  string `json:"timestamp"`
}

// NewSyncRequest builds a total-sync request as issued after connecting.
func NewSyncRequest(role Role, userID int64, now time.Time) SyncRequestPayload {
	return SyncRequestPayload{
		Role:       role,
		UserID:     userID,
		SyncType:   "total",
		IncludeAll: true,
		Timestamp:  now.UTC().Format(time.RFC3339),
	}
}
