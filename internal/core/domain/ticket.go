package domain

import (
	"errors"
	"strings"
)

var (
	ErrTitleRequired       = errors.New("title is required")
	ErrDescriptionRequired = errors.New("description is required")
	ErrInvalidStatus       = errors.New("invalid ticket status")
	ErrInvalidPriority     = errors.New("invalid ticket priority")
	ErrCommentRequired     = errors.New("comment text is required")
)

// TicketStatus is the lifecycle state the backend assigns to a ticket.
type TicketStatus string

const (
	StatusCreado      TicketStatus = "creado"
	StatusEnEspera    TicketStatus = "en_espera"
	StatusEnProceso   TicketStatus = "en_proceso"
	StatusSolucionado TicketStatus = "solucionado"
	StatusCerrado     TicketStatus = "cerrado"
	StatusReabierto   TicketStatus = "reabierto"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case StatusCreado, StatusEnEspera, StatusEnProceso, StatusSolucionado, StatusCerrado, StatusReabierto:
		return true
	}
	return false
}

// TicketPriority represents the urgency of a ticket.
type TicketPriority string

const (
	PriorityBaja  TicketPriority = "baja"
	PriorityMedia TicketPriority = "media"
	PriorityAlta  TicketPriority = "alta"
)

func (p TicketPriority) Valid() bool {
	switch p {
	case PriorityBaja, PriorityMedia, PriorityAlta:
		return true
	}
	return false
}

// Ticket is the last-known server representation of a support ticket.
type Ticket struct {
	ID                int64          `json:"id"`
	ClientID          int64          `json:"id_cliente,omitempty"`
	Title             string         `json:"titulo"`
	Description       string         `json:"descripcion"`
	Status            TicketStatus   `json:"estado"`
	Priority          TicketPriority `json:"prioridad"`
	CreatedAt         string         `json:"fecha_creacion,omitempty"`
	ClosedAt          string         `json:"fecha_cierre,omitempty"`
	Rating            *int           `json:"calificacion,omitempty"`
	ClosingComment    string         `json:"comentario,omitempty"`
	ImageURLs         []string       `json:"img_urls,omitempty"`
	Client            *User          `json:"cliente,omitempty"`
	Analyst           *User          `json:"analista,omitempty"`
	CurrentAssignment *Assignment    `json:"asignacion_actual,omitempty"`
}

func (t Ticket) Key() int64 {
	return t.ID
}

// IsClosed reports whether no further work is expected on the ticket.
func (t Ticket) IsClosed() bool {
	return t.Status == StatusCerrado || t.Status == StatusSolucionado
}

// NewTicketParams is the body posted to create a ticket.
type NewTicketParams struct {
	Title       string         `json:"titulo"`
	Description string         `json:"descripcion"`
	Priority    TicketPriority `json:"prioridad"`
	ImageURLs   []string       `json:"img_urls,omitempty"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
}

// Validate trims the params and checks the fields the ticket form requires.
func (p *NewTicketParams) Validate() error {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)

	if p.Title == "" {
		return ErrTitleRequired
	}
	if p.Description == "" {
		return ErrDescriptionRequired
	}
	if p.Priority == "" {
		p.Priority = PriorityMedia
	}
	if !p.Priority.Valid() {
		return ErrInvalidPriority
	}
	return nil
}

// Author identifies who wrote a comment or chat message.
type Author struct {
	ID     int64  `json:"id,omitempty"`
	Nombre string `json:"nombre,omitempty"`
	Rol    Role   `json:"rol,omitempty"`
}

// Comment is a note attached to a ticket.
type Comment struct {
	ID        int64   `json:"id"`
	TicketID  int64   `json:"id_ticket"`
	Text      string  `json:"texto"`
	CreatedAt string  `json:"fecha_comentario,omitempty"`
	Author    *Author `json:"autor,omitempty"`
}

func (c Comment) Key() int64 {
	return c.ID
}

// Assignment links a ticket to the analyst a supervisor routed it to.
type Assignment struct {
	ID           int64  `json:"id"`
	TicketID     int64  `json:"id_ticket"`
	SupervisorID int64  `json:"id_supervisor"`
	AnalystID    int64  `json:"id_analista"`
	AssignedAt   string `json:"fecha_asignacion,omitempty"`
	Analyst      *User  `json:"analista,omitempty"`
}

func (a Assignment) Key() int64 {
	return a.ID
}

// ChatMessage is one message in a ticket-scoped chat channel.
type ChatMessage struct {
	ID        int64   `json:"id"`
	TicketID  int64   `json:"id_ticket"`
	Text      string  `json:"mensaje"`
	CreatedAt string  `json:"fecha_mensaje,omitempty"`
	Author    *Author `json:"autor,omitempty"`
}

func (m ChatMessage) Key() int64 {
	return m.ID
}
