package domain

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType is the name of a server-pushed real-time event.
type EventType string

const (
	EventConnected           EventType = "connected"
	EventError               EventType = "error"
	EventJoinedRoom          EventType = "joined_room"
	EventJoinedTicket        EventType = "joined_ticket"
	EventLeftTicket          EventType = "left_ticket"
	EventJoinedCriticalRooms EventType = "joined_critical_rooms"
	EventSyncCompleted       EventType = "sync_completed"

	EventNewTicket            EventType = "nuevo_ticket"
	EventNewTicketAvailable   EventType = "nuevo_ticket_disponible"
	EventTicketUpdated        EventType = "ticket_actualizado"
	EventTicketAssigned       EventType = "ticket_asignado"
	EventTicketDeleted        EventType = "ticket_eliminado"
	EventNewComment           EventType = "nuevo_comentario"
	EventNewAssignment        EventType = "nueva_asignacion"
	EventSupervisorAnalystMsg EventType = "nuevo_mensaje_chat_supervisor_analista"
	EventAnalystClientMsg     EventType = "nuevo_mensaje_chat_analista_cliente"
)

// ServerEvent is one frame received from the real-time transport.
type ServerEvent struct {
	Name EventType       `json:"event"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Notification is the record appended to the store for every inbound event.
type Notification struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	EntityID  *int64          `json:"entity_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewNotification builds a notification record from a server event.
func NewNotification(ev ServerEvent, now time.Time) Notification {
	return Notification{
		ID:        ulid.Make().String(),
		Type:      ev.Name,
		EntityID:  EntityIDFromPayload(ev.Data),
		Timestamp: now.UTC(),
		Data:      ev.Data,
	}
}

// EntityIDFromPayload extracts the ticket the event refers to. The backend is
// inconsistent about where it puts the id, so the known locations are tried
// in order. Returns nil when none yields an integer.
func EntityIDFromPayload(data json.RawMessage) *int64 {
	if len(data) == 0 {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}

	for _, key := range []string{"ticket_id", "id_ticket"} {
		if id, ok := parseID(fields[key]); ok {
			return &id
		}
	}

	for _, key := range []string{"comentario", "mensaje", "asignacion"} {
		var nested struct {
			TicketID json.RawMessage `json:"id_ticket"`
		}
		if raw, ok := fields[key]; ok && json.Unmarshal(raw, &nested) == nil {
			if id, ok := parseID(nested.TicketID); ok {
				return &id
			}
		}
	}

	if raw, ok := fields["ticket"]; ok {
		var nested struct {
			ID json.RawMessage `json:"id"`
		}
		if json.Unmarshal(raw, &nested) == nil {
			if id, ok := parseID(nested.ID); ok {
				return &id
			}
		}
	}

	return nil
}

// parseID accepts both numeric and quoted-numeric ids.
func parseID(raw json.RawMessage) (int64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}
