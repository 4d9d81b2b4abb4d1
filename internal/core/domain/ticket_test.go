package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiback/tiback-client/internal/core/domain"
)

func TestNewTicketParams_Validate(t *testing.T) {
	t.Run("trims and defaults priority", func(t *testing.T) {
		p := domain.NewTicketParams{Title: "  Printer down ", Description: " paper jam "}
		require.NoError(t, p.Validate())
		assert.Equal(t, "Printer down", p.Title)
		assert.Equal(t, "paper jam", p.Description)
		assert.Equal(t, domain.PriorityMedia, p.Priority)
	})

	t.Run("missing title", func(t *testing.T) {
		p := domain.NewTicketParams{Title: "   ", Description: "x"}
		assert.ErrorIs(t, p.Validate(), domain.ErrTitleRequired)
	})

	t.Run("missing description", func(t *testing.T) {
		p := domain.NewTicketParams{Title: "x"}
		assert.ErrorIs(t, p.Validate(), domain.ErrDescriptionRequired)
	})

	t.Run("invalid priority", func(t *testing.T) {
		p := domain.NewTicketParams{Title: "x", Description: "y", Priority: "urgent"}
		assert.ErrorIs(t, p.Validate(), domain.ErrInvalidPriority)
	})
}

func TestTicketStatus(t *testing.T) {
	for _, s := range []domain.TicketStatus{
		domain.StatusCreado, domain.StatusEnEspera, domain.StatusEnProceso,
		domain.StatusSolucionado, domain.StatusCerrado, domain.StatusReabierto,
	} {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, domain.TicketStatus("open").Valid())

	assert.True(t, domain.Ticket{Status: domain.StatusCerrado}.IsClosed())
	assert.False(t, domain.Ticket{Status: domain.StatusReabierto}.IsClosed())
}

func TestTicket_DecodesBackendShape(t *testing.T) {
	body := `{
		"id": 12, "titulo": "VPN", "descripcion": "cannot connect", "estado": "en_proceso",
		"prioridad": "alta", "img_urls": ["https://img/1.png"],
		"asignacion_actual": {"id": 3, "id_ticket": 12, "id_supervisor": 2, "id_analista": 7,
			"analista": {"id": 7, "email": "a@x.io", "nombre": "Luis", "apellido": "Paz"}}
	}`

	var ticket domain.Ticket
	require.NoError(t, json.Unmarshal([]byte(body), &ticket))
	assert.Equal(t, int64(12), ticket.Key())
	assert.Equal(t, domain.StatusEnProceso, ticket.Status)
	require.NotNil(t, ticket.CurrentAssignment)
	assert.Equal(t, "Luis Paz", ticket.CurrentAssignment.Analyst.FullName())
}

func TestEntityIDFromPayload(t *testing.T) {
	tests := []struct {
		name string
		data string
		want *int64
	}{
		{"ticket_id", `{"ticket_id": 5}`, ptr(5)},
		{"quoted ticket_id", `{"ticket_id": "6"}`, ptr(6)},
		{"id_ticket", `{"id_ticket": 7}`, ptr(7)},
		{"nested comment", `{"comentario": {"id": 1, "id_ticket": 8}}`, ptr(8)},
		{"nested ticket", `{"ticket": {"id": 9, "titulo": "x"}}`, ptr(9)},
		{"no id", `{"message": "hi"}`, nil},
		{"not an object", `[1,2]`, nil},
		{"empty", ``, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, domain.EntityIDFromPayload(json.RawMessage(tt.data)))
		})
	}
}

func TestNewNotification(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
	ev := domain.ServerEvent{Name: domain.EventTicketAssigned, Data: json.RawMessage(`{"ticket_id": 4}`)}

	n := domain.NewNotification(ev, now)
	assert.Len(t, n.ID, 26)
	assert.Equal(t, domain.EventTicketAssigned, n.Type)
	assert.Equal(t, ptr(4), n.EntityID)
	assert.Equal(t, time.UTC, n.Timestamp.Location())
	assert.JSONEq(t, `{"ticket_id": 4}`, string(n.Data))
}

func TestRooms(t *testing.T) {
	assert.Equal(t, "analista_tickets", domain.RoleRoom(domain.RoleAnalista))

	assert.Len(t, domain.CriticalRooms(domain.RoleAdministrador), 6)
	assert.Equal(t, []string{"cliente_tickets", "cliente_chats"}, domain.CriticalRooms(domain.RoleCliente))
	assert.Nil(t, domain.CriticalRooms("unknown"))

	join, leave := domain.ChatAnalystClient.JoinEvent()
	assert.Equal(t, domain.EmitJoinChatAnalystClient, join)
	assert.Equal(t, domain.EmitLeaveChatAnalystClient, leave)
}

func TestNewSyncRequest(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	req := domain.NewSyncRequest(domain.RoleSupervisor, 3, now)

	raw, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"supervisor","user_id":3,"sync_type":"total","include_all":true,"timestamp":"2026-03-01T10:00:00Z"}`, string(raw))
}

func ptr(v int64) *int64 {
	return &v
}
