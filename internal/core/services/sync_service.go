package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/tiback/tiback-client/internal/core/domain"
	apperrors "github.com/tiback/tiback-client/internal/core/errors"
	"github.com/tiback/tiback-client/internal/core/ports"
	"github.com/tiback/tiback-client/internal/core/store"
)

// DefaultPollInterval is how often the polling fallback runs while the
// socket is down.
const DefaultPollInterval = 5 * time.Second

// Refetcher reloads a collection after an event. Polling passes a zero
// Notification.
type Refetcher func(ctx context.Context, n domain.Notification) error

// refetchTargets maps server events to the collections they invalidate.
var refetchTargets = map[domain.EventType][]store.CollectionKind{
	domain.EventNewTicket:            {store.CollectionTickets},
	domain.EventNewTicketAvailable:   {store.CollectionTickets},
	domain.EventTicketUpdated:        {store.CollectionTickets},
	domain.EventTicketAssigned:       {store.CollectionTickets},
	domain.EventTicketDeleted:        {store.CollectionTickets},
	domain.EventNewComment:           {store.CollectionComments},
	domain.EventSupervisorAnalystMsg: {store.CollectionChatMessages},
	domain.EventAnalystClientMsg:     {store.CollectionChatMessages},
	domain.EventNewAssignment:        {store.CollectionAssignments},
}

// SyncConfig tunes the sync service.
type SyncConfig struct {
	PollInterval time.Duration
	// RefetchRate and RefetchBurst throttle re-fetches per collection.
	RefetchRate    float64
	RefetchBurst   int
	RefetchTimeout time.Duration
	// OutboxSize bounds notifications waiting for the sinks.
	OutboxSize int
}

// DefaultSyncConfig returns the default sync tuning.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		PollInterval:   DefaultPollInterval,
		RefetchRate:    1,
		RefetchBurst:   2,
		RefetchTimeout: 30 * time.Second,
		OutboxSize:     256,
	}
}

type registration struct {
	kinds []store.CollectionKind
	fn    Refetcher
}

// refetchGate coalesces bursts: runs of one collection never overlap, and at
// most one more is queued behind the running one.
type refetchGate struct {
	limiter *rate.Limiter
	pending atomic.Bool
	running sync.Mutex
	// latest is the newest notification seen; a queued run uses it.
	latest atomic.Pointer[domain.Notification]
}

// SyncService owns the single live connection of a session, translates
// inbound events into store dispatches and re-fetches, and falls back to
// polling while disconnected. Reconnection is always caller-initiated.
type SyncService struct {
	transport ports.RealtimeTransport
	store     *store.Store
	sinks     []ports.NotificationSink
	cfg       SyncConfig
	logger    *slog.Logger
	now       func() time.Time

	// mu guards conn. The watcher holds it while publishing a disconnect so
	// a new Connect cannot interleave.
	mu   sync.Mutex
	conn ports.Connection

	refetchMu     sync.RWMutex
	registrations map[uint64]registration
	gates         map[store.CollectionKind]*refetchGate
	nextRefetchID uint64

	listenersMu sync.RWMutex
	listeners   map[uint64]eventListener
	nextListen  uint64

	outbox chan domain.Notification

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()
}

type eventListener struct {
	eventType domain.EventType
	handler   func(domain.ServerEvent)
}

// NewSyncService creates the sync service and starts its sink publisher.
// Call Close to stop it.
func NewSyncService(
	transport ports.RealtimeTransport,
	st *store.Store,
	sinks []ports.NotificationSink,
	cfg SyncConfig,
	logger *slog.Logger,
) *SyncService {
	defaults := DefaultSyncConfig()
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.RefetchRate <= 0 {
		cfg.RefetchRate = defaults.RefetchRate
	}
	if cfg.RefetchBurst <= 0 {
		cfg.RefetchBurst = defaults.RefetchBurst
	}
	if cfg.RefetchTimeout <= 0 {
		cfg.RefetchTimeout = defaults.RefetchTimeout
	}
	if cfg.OutboxSize <= 0 {
		cfg.OutboxSize = defaults.OutboxSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &SyncService{
		transport:     transport,
		store:         st,
		sinks:         sinks,
		cfg:           cfg,
		logger:        logger.With("component", "sync_service"),
		now:           time.Now,
		registrations: make(map[uint64]registration),
		gates:         make(map[store.CollectionKind]*refetchGate),
		listeners:     make(map[uint64]eventListener),
		outbox:        make(chan domain.Notification, cfg.OutboxSize),
		ctx:           ctx,
		cancel:        cancel,
	}

	// A logout ends the session's connection.
	s.unsubscribe = st.Subscribe(func(_, _ *store.State, action store.Action) {
		if action.Type == store.ActionAuthLogout {
			s.Disconnect()
		}
	})

	s.wg.Add(1)
	go s.publishLoop()
	return s
}

// Connect opens the connection for the current session. It is a no-op when
// a connection is already live.
func (s *SyncService) Connect(ctx context.Context) error {
	token := s.store.State().Auth.Token()
	if token == "" {
		return apperrors.ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	conn, err := s.transport.Connect(ctx, token)
	if err != nil {
		return fmt.Errorf("sync: connect: %w", err)
	}
	conn.OnEvent(s.ingest)
	s.conn = conn
	s.store.Dispatch(store.WSConnected())
	s.logger.Info("connected")

	s.wg.Add(1)
	go s.watch(conn)
	return nil
}

// watch publishes the disconnect once conn ends, whatever the cause.
func (s *SyncService) watch(conn ports.Connection) {
	defer s.wg.Done()

	select {
	case <-conn.Done():
	case <-s.ctx.Done():
		_ = conn.Close()
		<-conn.Done()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		s.conn = nil
		s.store.Dispatch(store.WSDisconnected())
		s.logger.Info("disconnected")
	}
}

// Disconnect closes the live connection, if any. Safe to call repeatedly.
func (s *SyncService) Disconnect() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	if conn != nil {
		// Published before the close so a Connect racing the close frame
		// cannot have its WSConnected overwritten.
		s.store.Dispatch(store.WSDisconnected())
	}
	s.mu.Unlock()

	if conn == nil {
		return
	}
	s.logger.Info("disconnected")
	if err := conn.Close(); err != nil {
		s.logger.Debug("close failed", "error", err)
	}
}

// Connected reports the connection flag held in the store.
func (s *SyncService) Connected() bool {
	return s.store.State().WebSocket.Connected
}

// emit is fire-and-forget: failures are logged, never returned.
func (s *SyncService) emit(event string, payload any) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		s.logger.Debug("emit skipped, not connected", "event", event)
		return
	}
	if err := conn.Emit(event, payload); err != nil {
		s.logger.Warn("emit failed", "event", event, "error", err)
	}
}

// JoinRoleRooms joins the role's ticket room and its critical rooms.
func (s *SyncService) JoinRoleRooms(role domain.Role, userID int64) {
	if !role.Valid() {
		s.logger.Warn("not joining rooms for unknown role", "role", role)
		return
	}
	s.emit(domain.EmitJoinRoom, domain.RoleRoom(role))
	s.emit(domain.EmitJoinCriticalRooms, domain.CriticalRoomsPayload{
		Role:          role,
		UserID:        userID,
		CriticalRooms: domain.CriticalRooms(role),
	})
}

// JoinTicketRoom subscribes to events of one ticket. Joining twice is fine.
func (s *SyncService) JoinTicketRoom(ticketID int64) {
	s.emit(domain.EmitJoinTicket, domain.TicketRoomPayload{TicketID: ticketID})
}

func (s *SyncService) LeaveTicketRoom(ticketID int64) {
	s.emit(domain.EmitLeaveTicket, domain.TicketRoomPayload{TicketID: ticketID})
}

func (s *SyncService) JoinChatRoom(kind domain.ChatKind, ticketID int64) {
	if !kind.Valid() {
		s.logger.Warn("not joining unknown chat room", "kind", kind)
		return
	}
	join, _ := kind.JoinEvent()
	s.emit(join, domain.TicketRoomPayload{TicketID: ticketID})
}

func (s *SyncService) LeaveChatRoom(kind domain.ChatKind, ticketID int64) {
	if !kind.Valid() {
		s.logger.Warn("not leaving unknown chat room", "kind", kind)
		return
	}
	_, leave := kind.JoinEvent()
	s.emit(leave, domain.TicketRoomPayload{TicketID: ticketID})
}

// RequestSync asks the server for a total resync of the role's data.
func (s *SyncService) RequestSync(role domain.Role, userID int64) {
	s.emit(domain.EmitRequestSync, domain.NewSyncRequest(role, userID, s.now()))
}

// Subscribe registers handler for eventType; an empty eventType receives
// every event. Handlers run on the transport's read goroutine. The returned
// cancel detaches the handler.
func (s *SyncService) Subscribe(eventType domain.EventType, handler func(domain.ServerEvent)) (cancel func()) {
	s.listenersMu.Lock()
	id := s.nextListen
	s.nextListen++
	s.listeners[id] = eventListener{eventType: eventType, handler: handler}
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

// RegisterRefetcher makes fn responsible for the given collections, both for
// event-driven re-fetches and for polling.
func (s *SyncService) RegisterRefetcher(fn Refetcher, kinds ...store.CollectionKind) (unregister func()) {
	s.refetchMu.Lock()
	id := s.nextRefetchID
	s.nextRefetchID++
	s.registrations[id] = registration{kinds: kinds, fn: fn}
	for _, kind := range kinds {
		if _, ok := s.gates[kind]; !ok {
			s.gates[kind] = &refetchGate{limiter: rate.NewLimiter(rate.Limit(s.cfg.RefetchRate), s.cfg.RefetchBurst)}
		}
	}
	s.refetchMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.refetchMu.Lock()
			delete(s.registrations, id)
			s.refetchMu.Unlock()
		})
	}
}

// ingest handles one inbound event.
func (s *SyncService) ingest(ev domain.ServerEvent) {
	n := domain.NewNotification(ev, s.now())
	s.store.Dispatch(store.WSNotification(n))

	if ev.Name == domain.EventError {
		s.logger.Warn("server reported an error", "data", string(ev.Data))
	}

	select {
	case s.outbox <- n:
	default:
		s.logger.Warn("notification outbox full, dropping", "id", n.ID, "type", n.Type)
	}

	s.listenersMu.RLock()
	var handlers []func(domain.ServerEvent)
	for _, l := range s.listeners {
		if l.eventType == "" || l.eventType == ev.Name {
			handlers = append(handlers, l.handler)
		}
	}
	s.listenersMu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}

	for _, kind := range refetchTargets[ev.Name] {
		s.scheduleRefetch(kind, n)
	}
}

// scheduleRefetch runs the refetchers of kind in the background, throttled by
// the collection's limiter. A refetch already queued absorbs new requests.
func (s *SyncService) scheduleRefetch(kind store.CollectionKind, n domain.Notification) {
	s.refetchMu.RLock()
	gate := s.gates[kind]
	s.refetchMu.RUnlock()
	if gate == nil {
		return
	}
	gate.latest.Store(&n)
	if !gate.pending.CompareAndSwap(false, true) {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := gate.limiter.Wait(s.ctx); err != nil {
			gate.pending.Store(false)
			return
		}
		gate.running.Lock()
		defer gate.running.Unlock()
		gate.pending.Store(false)
		s.runRefetchers(kind, *gate.latest.Load())
	}()
}

func (s *SyncService) runRefetchers(kind store.CollectionKind, n domain.Notification) {
	s.refetchMu.RLock()
	var fns []Refetcher
	for _, r := range s.registrations {
		for _, k := range r.kinds {
			if k == kind {
				fns = append(fns, r.fn)
				break
			}
		}
	}
	s.refetchMu.RUnlock()

	for _, fn := range fns {
		ctx, cancel := context.WithTimeout(s.ctx, s.cfg.RefetchTimeout)
		if err := fn(ctx, n); err != nil {
			s.logger.Warn("refetch failed", "collection", kind, "event", n.Type, "error", err)
		}
		cancel()
	}
}

// PollOnce runs every registered refetcher once.
func (s *SyncService) PollOnce(ctx context.Context) {
	s.refetchMu.RLock()
	fns := make([]Refetcher, 0, len(s.registrations))
	for _, r := range s.registrations {
		fns = append(fns, r.fn)
	}
	s.refetchMu.RUnlock()

	for _, fn := range fns {
		if err := fn(ctx, domain.Notification{}); err != nil {
			s.logger.Warn("poll refetch failed", "error", err)
		}
	}
}

// RunPolling polls on every tick while the socket is down, until ctx ends.
func (s *SyncService) RunPolling(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.Connected() || !s.store.State().Auth.IsAuthenticated {
				continue
			}
			s.PollOnce(ctx)
		}
	}
}

// ManualSync is the user-triggered resync: connect if needed, rejoin role
// rooms and request a total sync. If the socket cannot be opened one polling
// pass runs instead and the connect error is returned.
func (s *SyncService) ManualSync(ctx context.Context) error {
	a := s.store.State().Auth
	if !a.IsAuthenticated {
		return apperrors.ErrNoSession
	}

	if err := s.Connect(ctx); err != nil {
		s.logger.Warn("manual sync could not connect, polling instead", "error", err)
		s.PollOnce(ctx)
		return err
	}

	role, userID := a.CurrentRole(), a.UserID()
	s.JoinRoleRooms(role, userID)
	s.RequestSync(role, userID)
	return nil
}

func (s *SyncService) publishLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.ctx.Done():
			return
		case n := <-s.outbox:
			for _, sink := range s.sinks {
				if err := sink.Publish(s.ctx, n); err != nil {
					s.logger.Warn("notification sink failed", "id", n.ID, "error", err)
				}
			}
		}
	}
}

// Close disconnects and stops background work, waiting for it to finish.
func (s *SyncService) Close() {
	s.unsubscribe()
	s.Disconnect()
	s.cancel()
	s.wg.Wait()
}

// RegisterResources wires the resource services as refetchers.
func (s *SyncService) RegisterResources(tickets *TicketService, comments *CommentService, chat *ChatService) {
	s.RegisterRefetcher(tickets.Refetch, store.CollectionTickets, store.CollectionAssignments)
	s.RegisterRefetcher(comments.Refetch, store.CollectionComments)
	s.RegisterRefetcher(chat.Refetch, store.CollectionChatMessages)
}
