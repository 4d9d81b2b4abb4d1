package ports

import (
	"context"
	"io"

	"github.com/tiback/tiback-client/internal/core/domain"
)

// AuthAPI is the unauthenticated part of the backend.
type AuthAPI interface {
	Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error)
	Register(ctx context.Context, reg domain.Registration) (*domain.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
}

// TicketAPI covers ticket reads and writes.
type TicketAPI interface {
	ListTickets(ctx context.Context, token string, role domain.Role) ([]domain.Ticket, error)
	GetTicket(ctx context.Context, token string, id int64) (*domain.Ticket, error)
	CreateTicket(ctx context.Context, token string, params domain.NewTicketParams) (*domain.Ticket, error)
	UpdateTicketStatus(ctx context.Context, token string, id int64, status domain.TicketStatus) (*domain.Ticket, error)
	AssignTicket(ctx context.Context, token string, params AssignTicketParams) (*domain.Ticket, error)
}

// AssignTicketParams defines the input for routing a ticket to an analyst.
type AssignTicketParams struct {
	TicketID  int64
	AnalystID int64
	Comment   string
}

// CommentAPI covers ticket comments.
type CommentAPI interface {
	ListComments(ctx context.Context, token string, ticketID int64) ([]domain.Comment, error)
	CreateComment(ctx context.Context, token string, ticketID int64, text string) (*domain.Comment, error)
}

// UserAPI lists users by role.
type UserAPI interface {
	ListUsers(ctx context.Context, token string, role domain.Role) ([]domain.User, error)
}

// ChatAPI covers the ticket-scoped chat channels.
type ChatAPI interface {
	ListChatMessages(ctx context.Context, token string, kind domain.ChatKind, ticketID int64) ([]domain.ChatMessage, error)
	SendChatMessage(ctx context.Context, token string, kind domain.ChatKind, ticketID int64, text string) (*domain.ChatMessage, error)
}

// MediaAPI covers images, AI assistance and the heatmap.
type MediaAPI interface {
	AnalyzeImage(ctx context.Context, token string, filename string, image io.Reader, req domain.ImageAnalysisRequest) (*domain.ImageAnalysis, error)
	Recommend(ctx context.Context, token string, ticketID int64) (*domain.RecommendationResponse, error)
	SimilarTickets(ctx context.Context, token string, ticketID int64) (*domain.SimilarTickets, error)
	Heatmap(ctx context.Context, token string) (*domain.HeatmapData, error)
}

// BackendAPI is the full REST surface of the TiBACK backend.
type BackendAPI interface {
	AuthAPI
	TicketAPI
	CommentAPI
	UserAPI
	ChatAPI
	MediaAPI
	ImageUploader
}

// ImageUploader stores an image and returns where it can be fetched from.
type ImageUploader interface {
	UploadImage(ctx context.Context, token string, filename string, image io.Reader) (*domain.UploadedImage, error)
}

// RealtimeTransport opens authenticated real-time connections.
type RealtimeTransport interface {
	// Connect returns errors.ErrNoToken when token is empty.
	Connect(ctx context.Context, token string) (Connection, error)
}

// Connection is one live real-time session. Emit is fire-and-forget at the
// protocol level: a nil error only means the frame was written.
type Connection interface {
	Emit(event string, payload any) error
	// OnEvent sets the handler invoked for every inbound event. It must be
	// called before events are expected; handlers run on the read goroutine.
	OnEvent(handler func(domain.ServerEvent))
	// Done is closed once the transport has ended for any reason.
	Done() <-chan struct{}
	// Close is safe to call more than once.
	Close() error
}

// NotificationSink receives every notification ingested from the real-time feed.
type NotificationSink interface {
	Publish(ctx context.Context, n domain.Notification) error
}
