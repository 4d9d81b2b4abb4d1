package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tiback/tiback-client/internal/core/domain"
	apperrors "github.com/tiback/tiback-client/internal/core/errors"
	"github.com/tiback/tiback-client/internal/core/mocks"
	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/core/services"
	"github.com/tiback/tiback-client/internal/core/store"
)

type syncFixture struct {
	transport *mocks.MockTransport
	conn      *mocks.FakeConnection
	store     *store.Store
	svc       *services.SyncService
}

func newSyncFixture(t *testing.T, sinks ...ports.NotificationSink) *syncFixture {
	t.Helper()
	f := &syncFixture{
		transport: mocks.NewMockTransport(),
		conn:      mocks.NewFakeConnection(),
		store:     store.New(3, discardLogger()),
	}
	cfg := services.DefaultSyncConfig()
	cfg.PollInterval = 10 * time.Millisecond
	cfg.RefetchRate = 1000
	f.svc = services.NewSyncService(f.transport, f.store, sinks, cfg, discardLogger())
	t.Cleanup(f.svc.Close)
	return f
}

func (f *syncFixture) login(role domain.Role, userID int64) {
	f.store.Dispatch(store.AuthLoginSuccess(domain.Session{
		AccessToken:  "A",
		RefreshToken: "R",
		Role:         role,
		User:         &domain.User{ID: userID},
	}))
}

func (f *syncFixture) connect(t *testing.T) {
	t.Helper()
	f.transport.On("Connect", mock.Anything, "A").Return(f.conn, nil).Once()
	require.NoError(t, f.svc.Connect(context.Background()))
}

func event(name domain.EventType, data string) domain.ServerEvent {
	return domain.ServerEvent{Name: name, Data: json.RawMessage(data)}
}

func TestSyncService_Connect(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a session", func(t *testing.T) {
		f := newSyncFixture(t)
		assert.ErrorIs(t, f.svc.Connect(ctx), apperrors.ErrNoSession)
		f.transport.AssertNotCalled(t, "Connect", mock.Anything, mock.Anything)
	})

	t.Run("connects once", func(t *testing.T) {
		f := newSyncFixture(t)
		f.login(domain.RoleCliente, 1)
		f.connect(t)

		assert.True(t, f.svc.Connected())
		require.NoError(t, f.svc.Connect(ctx))
		f.transport.AssertNumberOfCalls(t, "Connect", 1)
	})

	t.Run("transport failure leaves it disconnected", func(t *testing.T) {
		f := newSyncFixture(t)
		f.login(domain.RoleCliente, 1)
		f.transport.On("Connect", mock.Anything, "A").Return(nil, apperrors.ErrUnauthorized)

		err := f.svc.Connect(ctx)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
		assert.False(t, f.svc.Connected())
	})

	t.Run("server close is observed", func(t *testing.T) {
		f := newSyncFixture(t)
		f.login(domain.RoleCliente, 1)
		f.connect(t)

		require.NoError(t, f.conn.Close())
		assert.Eventually(t, func() bool { return !f.svc.Connected() }, time.Second, 5*time.Millisecond)

		// Reconnecting is up to the caller.
		other := mocks.NewFakeConnection()
		f.transport.On("Connect", mock.Anything, "A").Return(other, nil).Once()
		require.NoError(t, f.svc.Connect(ctx))
		assert.True(t, f.svc.Connected())
	})
}

func TestSyncService_Disconnect(t *testing.T) {
	f := newSyncFixture(t)
	f.login(domain.RoleCliente, 1)
	f.connect(t)

	f.svc.Disconnect()
	assert.False(t, f.svc.Connected())
	select {
	case <-f.conn.Done():
	default:
		t.Fatal("connection not closed")
	}

	f.svc.Disconnect()
	assert.False(t, f.svc.Connected())
}

func TestSyncService_ReconnectWhileOldSocketCloses(t *testing.T) {
	f := newSyncFixture(t)
	f.login(domain.RoleCliente, 1)
	f.conn.CloseGate = make(chan struct{})
	f.connect(t)

	disconnected := make(chan struct{})
	go func() {
		defer close(disconnected)
		f.svc.Disconnect()
	}()

	// The flag drops before the old socket has finished closing.
	require.Eventually(t, func() bool { return !f.svc.Connected() }, time.Second, time.Millisecond)

	next := mocks.NewFakeConnection()
	f.transport.On("Connect", mock.Anything, "A").Return(next, nil).Once()
	require.NoError(t, f.svc.Connect(context.Background()))
	assert.True(t, f.svc.Connected())

	close(f.conn.CloseGate)
	select {
	case <-disconnected:
	case <-time.After(time.Second):
		t.Fatal("disconnect did not return")
	}

	assert.True(t, f.svc.Connected())
	// The old socket's watcher must not clear the new connection either.
	<-f.conn.Done()
	assert.Never(t, func() bool { return !f.svc.Connected() }, 50*time.Millisecond, 5*time.Millisecond)

	f.svc.JoinTicketRoom(3)
	assert.Equal(t, []string{domain.EmitJoinTicket}, next.EmittedEvents())
}

func TestSyncService_LogoutDisconnects(t *testing.T) {
	f := newSyncFixture(t)
	f.login(domain.RoleAnalista, 2)
	f.connect(t)

	f.store.Dispatch(store.AuthLogout())

	assert.False(t, f.svc.Connected())
}

func TestSyncService_Rooms(t *testing.T) {
	f := newSyncFixture(t)
	f.login(domain.RoleSupervisor, 5)
	f.connect(t)

	f.svc.JoinRoleRooms(domain.RoleSupervisor, 5)
	f.svc.JoinTicketRoom(42)
	f.svc.JoinTicketRoom(42)
	f.svc.LeaveTicketRoom(42)
	f.svc.JoinChatRoom(domain.ChatSupervisorAnalyst, 42)
	f.svc.LeaveChatRoom(domain.ChatSupervisorAnalyst, 42)
	f.svc.RequestSync(domain.RoleSupervisor, 5)

	assert.Equal(t, []string{
		domain.EmitJoinRoom,
		domain.EmitJoinCriticalRooms,
		domain.EmitJoinTicket,
		domain.EmitJoinTicket,
		domain.EmitLeaveTicket,
		domain.EmitJoinChatSupervisorAnalyst,
		domain.EmitLeaveChatSupervisorAnalyst,
		domain.EmitRequestSync,
	}, f.conn.EmittedEvents())

	emitted := f.conn.Emitted()
	assert.Equal(t, "supervisor_tickets", emitted[0].Payload)
	critical, ok := emitted[1].Payload.(domain.CriticalRoomsPayload)
	require.True(t, ok)
	assert.Equal(t, domain.CriticalRooms(domain.RoleSupervisor), critical.CriticalRooms)
	assert.Equal(t, int64(5), critical.UserID)

	syncReq, ok := emitted[7].Payload.(domain.SyncRequestPayload)
	require.True(t, ok)
	assert.Equal(t, "total", syncReq.SyncType)
	assert.True(t, syncReq.IncludeAll)
}

func TestSyncService_UnknownChatKindIsIgnored(t *testing.T) {
	f := newSyncFixture(t)
	f.login(domain.RoleAnalista, 2)
	f.connect(t)

	f.svc.JoinChatRoom(domain.ChatKind("chat_otro"), 42)
	f.svc.LeaveChatRoom(domain.ChatKind("chat_otro"), 42)
	f.svc.JoinChatRoom(domain.ChatAnalystClient, 42)

	assert.Equal(t, []string{domain.EmitJoinChatAnalystClient}, f.conn.EmittedEvents())
}

func TestSyncService_EmitFailuresAreSwallowed(t *testing.T) {
	f := newSyncFixture(t)

	// Not connected: nothing is emitted and nothing panics.
	f.svc.JoinTicketRoom(1)

	f.login(domain.RoleCliente, 1)
	f.connect(t)
	f.conn.EmitErr = errors.New("broken pipe")
	f.svc.JoinTicketRoom(1)
	f.svc.LeaveTicketRoom(1)

	assert.Empty(t, f.conn.EmittedEvents())
}

func TestSyncService_Ingest(t *testing.T) {
	f := newSyncFixture(t)
	f.login(domain.RoleCliente, 1)
	f.connect(t)

	f.conn.Push(event(domain.EventConnected, `{}`))
	f.conn.Push(event(domain.EventNewComment, `{"comentario":{"id_ticket":12}}`))

	notifications := f.store.State().WebSocket.Notifications
	require.Len(t, notifications, 2)
	assert.Equal(t, domain.EventConnected, notifications[0].Type)
	assert.Nil(t, notifications[0].EntityID)
	assert.Equal(t, domain.EventNewComment, notifications[1].Type)
	require.NotNil(t, notifications[1].EntityID)
	assert.Equal(t, int64(12), *notifications[1].EntityID)
	assert.NotEqual(t, notifications[0].ID, notifications[1].ID)

	// Retention is 3 in this fixture.
	for i := 0; i < 5; i++ {
		f.conn.Push(event(domain.EventTicketUpdated, `{}`))
	}
	assert.Len(t, f.store.State().WebSocket.Notifications, 3)
}

func TestSyncService_RefetchOnEvents(t *testing.T) {
	f := newSyncFixture(t)
	f.login(domain.RoleCliente, 1)

	var tickets, comments atomic.Int32
	var lastComment atomic.Int64
	f.svc.RegisterRefetcher(func(ctx context.Context, n domain.Notification) error {
		tickets.Add(1)
		return nil
	}, store.CollectionTickets)
	f.svc.RegisterRefetcher(func(ctx context.Context, n domain.Notification) error {
		comments.Add(1)
		if n.EntityID != nil {
			lastComment.Store(*n.EntityID)
		}
		return nil
	}, store.CollectionComments)

	f.connect(t)
	f.conn.Push(event(domain.EventTicketAssigned, `{"ticket_id":3}`))
	f.conn.Push(event(domain.EventNewComment, `{"id_ticket":"8"}`))
	f.conn.Push(event(domain.EventJoinedRoom, `{"room":"cliente_tickets"}`))

	assert.Eventually(t, func() bool { return tickets.Load() >= 1 && comments.Load() >= 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(8), lastComment.Load())
}

func TestSyncService_RefetchBurstsCoalesce(t *testing.T) {
	f := newSyncFixture(t)
	f.login(domain.RoleCliente, 1)

	release := make(chan struct{})
	var calls atomic.Int32
	f.svc.RegisterRefetcher(func(ctx context.Context, n domain.Notification) error {
		calls.Add(1)
		<-release
		return nil
	}, store.CollectionTickets)

	f.connect(t)
	f.conn.Push(event(domain.EventNewTicket, `{}`))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// While the first refetch runs, a burst queues at most one more.
	for i := 0; i < 10; i++ {
		f.conn.Push(event(domain.EventTicketUpdated, `{}`))
	}
	close(release)

	assert.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSyncService_Subscribe(t *testing.T) {
	f := newSyncFixture(t)
	f.login(domain.RoleCliente, 1)
	f.connect(t)

	var ticketEvents, all int
	cancel := f.svc.Subscribe(domain.EventNewTicket, func(domain.ServerEvent) { ticketEvents++ })
	cancelAll := f.svc.Subscribe("", func(domain.ServerEvent) { all++ })
	defer cancelAll()

	f.conn.Push(event(domain.EventNewTicket, `{}`))
	f.conn.Push(event(domain.EventNewComment, `{}`))
	cancel()
	cancel()
	f.conn.Push(event(domain.EventNewTicket, `{}`))

	assert.Equal(t, 1, ticketEvents)
	assert.Equal(t, 3, all)
}

func TestSyncService_Sinks(t *testing.T) {
	sink := mocks.NewMockNotificationSink()
	published := make(chan domain.Notification, 1)
	sink.On("Publish", mock.Anything, mock.AnythingOfType("domain.Notification")).
		Run(func(args mock.Arguments) { published <- args.Get(1).(domain.Notification) }).
		Return(nil)

	f := newSyncFixture(t, sink)
	f.login(domain.RoleCliente, 1)
	f.connect(t)

	f.conn.Push(event(domain.EventTicketUpdated, `{"ticket_id":4}`))

	select {
	case n := <-published:
		assert.Equal(t, domain.EventTicketUpdated, n.Type)
		require.NotNil(t, n.EntityID)
		assert.Equal(t, int64(4), *n.EntityID)
	case <-time.After(time.Second):
		t.Fatal("notification not published")
	}
}

func TestSyncService_Polling(t *testing.T) {
	f := newSyncFixture(t)
	f.login(domain.RoleCliente, 1)

	var polls atomic.Int32
	f.svc.RegisterRefetcher(func(ctx context.Context, n domain.Notification) error {
		assert.Equal(t, domain.EventType(""), n.Type)
		polls.Add(1)
		return nil
	}, store.CollectionTickets, store.CollectionAssignments)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunPolling(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return polls.Load() >= 2 }, time.Second, 5*time.Millisecond)

	// Polling pauses while connected.
	f.connect(t)
	time.Sleep(20 * time.Millisecond)
	paused := polls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, paused, polls.Load())

	cancel()
	<-done
}

func TestSyncService_ManualSync(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a session", func(t *testing.T) {
		f := newSyncFixture(t)
		assert.ErrorIs(t, f.svc.ManualSync(ctx), apperrors.ErrNoSession)
	})

	t.Run("connects, joins and requests sync", func(t *testing.T) {
		f := newSyncFixture(t)
		f.login(domain.RoleAnalista, 9)
		f.transport.On("Connect", mock.Anything, "A").Return(f.conn, nil).Once()

		require.NoError(t, f.svc.ManualSync(ctx))

		assert.True(t, f.svc.Connected())
		assert.Equal(t, []string{
			domain.EmitJoinRoom,
			domain.EmitJoinCriticalRooms,
			domain.EmitRequestSync,
		}, f.conn.EmittedEvents())
	})

	t.Run("falls back to one poll", func(t *testing.T) {
		f := newSyncFixture(t)
		f.login(domain.RoleAnalista, 9)
		f.transport.On("Connect", mock.Anything, "A").Return(nil, errors.New("refused"))

		var polls atomic.Int32
		f.svc.RegisterRefetcher(func(ctx context.Context, n domain.Notification) error {
			polls.Add(1)
			return nil
		}, store.CollectionTickets)

		assert.Error(t, f.svc.ManualSync(ctx))
		assert.Equal(t, int32(1), polls.Load())
		assert.False(t, f.svc.Connected())
	})
}
