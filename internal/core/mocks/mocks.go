package mocks

import (
	"context"
	"io"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/tiback/tiback-client/internal/core/domain"
	apperrors "github.com/tiback/tiback-client/internal/core/errors"
	"github.com/tiback/tiback-client/internal/core/ports"
)

// MockBackendAPI is a mock implementation of ports.BackendAPI
type MockBackendAPI struct {
	mock.Mock
}

var _ ports.BackendAPI = (*MockBackendAPI)(nil)

func NewMockBackendAPI() *MockBackendAPI {
	return &MockBackendAPI{}
}

func (m *MockBackendAPI) Login(ctx context.Context, creds domain.Credentials) (*domain.AuthResponse, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthResponse), args.Error(1)
}

func (m *MockBackendAPI) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResponse, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AuthResponse), args.Error(1)
}

func (m *MockBackendAPI) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenPair), args.Error(1)
}

func (m *MockBackendAPI) ListTickets(ctx context.Context, token string, role domain.Role) ([]domain.Ticket, error) {
	args := m.Called(ctx, token, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Ticket), args.Error(1)
}

func (m *MockBackendAPI) GetTicket(ctx context.Context, token string, id int64) (*domain.Ticket, error) {
	args := m.Called(ctx, token, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockBackendAPI) CreateTicket(ctx context.Context, token string, params domain.NewTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, token, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockBackendAPI) UpdateTicketStatus(ctx context.Context, token string, id int64, status domain.TicketStatus) (*domain.Ticket, error) {
	args := m.Called(ctx, token, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockBackendAPI) AssignTicket(ctx context.Context, token string, params ports.AssignTicketParams) (*domain.Ticket, error) {
	args := m.Called(ctx, token, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockBackendAPI) ListComments(ctx context.Context, token string, ticketID int64) ([]domain.Comment, error) {
	args := m.Called(ctx, token, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Comment), args.Error(1)
}

func (m *MockBackendAPI) CreateComment(ctx context.Context, token string, ticketID int64, text string) (*domain.Comment, error) {
	args := m.Called(ctx, token, ticketID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Comment), args.Error(1)
}

func (m *MockBackendAPI) ListUsers(ctx context.Context, token string, role domain.Role) ([]domain.User, error) {
	args := m.Called(ctx, token, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *MockBackendAPI) ListChatMessages(ctx context.Context, token string, kind domain.ChatKind, ticketID int64) ([]domain.ChatMessage, error) {
	args := m.Called(ctx, token, kind, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ChatMessage), args.Error(1)
}

func (m *MockBackendAPI) SendChatMessage(ctx context.Context, token string, kind domain.ChatKind, ticketID int64, text string) (*domain.ChatMessage, error) {
	args := m.Called(ctx, token, kind, ticketID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ChatMessage), args.Error(1)
}

func (m *MockBackendAPI) AnalyzeImage(ctx context.Context, token, filename string, image io.Reader, req domain.ImageAnalysisRequest) (*domain.ImageAnalysis, error) {
	args := m.Called(ctx, token, filename, image, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ImageAnalysis), args.Error(1)
}

func (m *MockBackendAPI) Recommend(ctx context.Context, token string, ticketID int64) (*domain.RecommendationResponse, error) {
	args := m.Called(ctx, token, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecommendationResponse), args.Error(1)
}

func (m *MockBackendAPI) SimilarTickets(ctx context.Context, token string, ticketID int64) (*domain.SimilarTickets, error) {
	args := m.Called(ctx, token, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SimilarTickets), args.Error(1)
}

func (m *MockBackendAPI) Heatmap(ctx context.Context, token string) (*domain.HeatmapData, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HeatmapData), args.Error(1)
}

func (m *MockBackendAPI) UploadImage(ctx context.Context, token, filename string, image io.Reader) (*domain.UploadedImage, error) {
	args := m.Called(ctx, token, filename, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UploadedImage), args.Error(1)
}

// MockSessionStore is a mock implementation of ports.SessionStore
type MockSessionStore struct {
	mock.Mock
}

var _ ports.SessionStore = (*MockSessionStore)(nil)

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

func (m *MockSessionStore) Save(ctx context.Context, session domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionStore) SaveTokens(ctx context.Context, tokens domain.TokenPair) error {
	args := m.Called(ctx, tokens)
	return args.Error(0)
}

func (m *MockSessionStore) Load(ctx context.Context) domain.Session {
	args := m.Called(ctx)
	return args.Get(0).(domain.Session)
}

func (m *MockSessionStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockNotificationSink is a mock implementation of ports.NotificationSink
type MockNotificationSink struct {
	mock.Mock
}

func NewMockNotificationSink() *MockNotificationSink {
	return &MockNotificationSink{}
}

func (m *MockNotificationSink) Publish(ctx context.Context, n domain.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockTransport is a mock implementation of ports.RealtimeTransport
type MockTransport struct {
	mock.Mock
}

func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

func (m *MockTransport) Connect(ctx context.Context, token string) (ports.Connection, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(ports.Connection), args.Error(1)
}

// Emitted is one frame recorded by FakeConnection.
type Emitted struct {
	Event   string
	Payload any
}

// FakeConnection is an in-memory ports.Connection. Tests push inbound events
// with Push and inspect outbound frames with Emitted.
type FakeConnection struct {
	mu      sync.Mutex
	handler func(domain.ServerEvent)
	emitted []Emitted
	done    chan struct{}
	once    sync.Once
	EmitErr error
	// CloseGate, when set, holds Close until it is closed.
	CloseGate chan struct{}
}

var _ ports.Connection = (*FakeConnection)(nil)

func NewFakeConnection() *FakeConnection {
	return &FakeConnection{done: make(chan struct{})}
}

func (c *FakeConnection) Emit(event string, payload any) error {
	select {
	case <-c.done:
		return apperrors.ErrNotConnected
	default:
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.EmitErr != nil {
		return c.EmitErr
	}
	c.emitted = append(c.emitted, Emitted{Event: event, Payload: payload})
	return nil
}

func (c *FakeConnection) OnEvent(handler func(domain.ServerEvent)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

func (c *FakeConnection) Done() <-chan struct{} {
	return c.done
}

func (c *FakeConnection) Close() error {
	if c.CloseGate != nil {
		<-c.CloseGate
	}
	c.once.Do(func() { close(c.done) })
	return nil
}

// Push delivers ev to the registered handler synchronously.
func (c *FakeConnection) Push(ev domain.ServerEvent) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

// Emitted returns a copy of every frame emitted so far.
func (c *FakeConnection) Emitted() []Emitted {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Emitted(nil), c.emitted...)
}

// EmittedEvents returns only the event names, in order.
func (c *FakeConnection) EmittedEvents() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, len(c.emitted))
	for i, e := range c.emitted {
		names[i] = e.Event
	}
	return names
}
