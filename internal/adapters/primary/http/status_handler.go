package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	mw "github.com/tiback/tiback-client/internal/adapters/primary/http/middleware"
	"github.com/tiback/tiback-client/internal/auth"
	"github.com/tiback/tiback-client/internal/core/domain"
	apperrors "github.com/tiback/tiback-client/internal/core/errors"
	"github.com/tiback/tiback-client/internal/core/store"
)

const (
	defaultNotificationLimit = 50
	syncTimeout              = 30 * time.Second
)

// Syncer triggers a caller-initiated reconnect and refetch.
type Syncer interface {
	ManualSync(ctx context.Context) error
}

// StatusHandler exposes the daemon's session, connection and cache state.
type StatusHandler struct {
	state        StateReader
	syncer       Syncer
	syncLimiter  *mw.RateLimiter
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewStatusHandler creates a new status handler. syncLimiter may be nil.
func NewStatusHandler(
	state StateReader,
	syncer Syncer,
	syncLimiter *mw.RateLimiter,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *StatusHandler {
	return &StatusHandler{
		state:        state,
		syncer:       syncer,
		syncLimiter:  syncLimiter,
		errorHandler: errorHandler,
		logger:       logger.With("component", "status_handler"),
	}
}

// RegisterRoutes registers the status routes
func (h *StatusHandler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.HandleStatus)
	r.Get("/notifications", h.HandleNotifications)
	r.Group(func(r chi.Router) {
		if h.syncLimiter != nil {
			r.Use(h.syncLimiter.Middleware)
		}
		r.Post("/sync", h.HandleSync)
	})
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	Authenticated  bool           `json:"authenticated"`
	Role           domain.Role    `json:"role,omitempty"`
	UserID         int64          `json:"user_id,omitempty"`
	UserName       string         `json:"user_name,omitempty"`
	TokenExpiresAt *time.Time     `json:"token_expires_at,omitempty"`
	Connected      bool           `json:"connected"`
	Notifications  int            `json:"notifications"`
	Loading        bool           `json:"loading"`
	LastError      string         `json:"last_error,omitempty"`
	Collections    map[string]int `json:"collections"`
}

// HandleStatus handles GET /status
func (h *StatusHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	s := h.state.State()

	resp := StatusResponse{
		Authenticated: s.Auth.IsAuthenticated,
		Role:          s.Auth.CurrentRole(),
		UserID:        s.Auth.UserID(),
		Connected:     s.WebSocket.Connected,
		Notifications: len(s.WebSocket.Notifications),
		Loading:       s.API.Loading,
		LastError:     s.API.Error,
		Collections: map[string]int{
			string(store.CollectionTickets):        s.Tickets.Len(),
			string(store.CollectionComments):       s.Comments.Len(),
			string(store.CollectionAssignments):    s.Assignments.Len(),
			string(store.CollectionChatMessages):   s.ChatMessages.Len(),
			string(store.CollectionClients):        s.Clients.Len(),
			string(store.CollectionAnalysts):       s.Analysts.Len(),
			string(store.CollectionSupervisors):    s.Supervisors.Len(),
			string(store.CollectionAdministrators): s.Administrators.Len(),
		},
	}
	if s.Auth.User != nil {
		resp.UserName = s.Auth.User.FullName()
	}
	if exp := auth.Expiry(s.Auth.Token()); !exp.IsZero() {
		resp.TokenExpiresAt = &exp
	}

	WriteJSON(w, http.StatusOK, resp)
}

// HandleNotifications handles GET /notifications?limit=N&type=T. Records
// come newest first.
func (h *StatusHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	limit := defaultNotificationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.errorHandler.Handle(w, r, apperrors.NewBadRequestError(
				fmt.Errorf("%w: limit %q", apperrors.ErrBadRequest, raw),
				"limit must be a positive integer",
			))
			return
		}
		limit = n
	}
	eventType := domain.EventType(r.URL.Query().Get("type"))

	log := h.state.State().WebSocket.Notifications
	out := make([]domain.Notification, 0, min(limit, len(log)))
	for i := len(log) - 1; i >= 0 && len(out) < limit; i-- {
		if eventType != "" && log[i].Type != eventType {
			continue
		}
		out = append(out, log[i])
	}

	WriteList(w, out)
}

// HandleSync handles POST /sync. A failed reconnect has already triggered a
// polling pass when the error comes back.
func (h *StatusHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), syncTimeout)
	defer cancel()

	if err := h.syncer.ManualSync(ctx); err != nil {
		if !errors.Is(err, apperrors.ErrNoSession) {
			err = apperrors.NewUnavailableError(err, "Could not reach the backend; cached data was refreshed by polling where possible")
		}
		h.errorHandler.Handle(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "manual sync completed")
	WriteSuccess(w, map[string]bool{"connected": h.state.State().WebSocket.Connected}, "sync requested")
}
