package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	apperrors "github.com/tiback/tiback-client/internal/core/errors"
	"github.com/tiback/tiback-client/internal/core/ports"
)

// Config holds configuration for the WebSocket transport.
type Config struct {
	// URL is the WebSocket endpoint. http(s) URLs are rewritten to ws(s).
	URL string
	// HandshakeTimeout bounds the opening handshake. Zero means 10s.
	HandshakeTimeout time.Duration
	// SendBuffer is the number of outbound frames queued per connection.
	SendBuffer int
	Logger     *slog.Logger
}

// Transport dials authenticated WebSocket connections to the backend.
type Transport struct {
	endpoint   *url.URL
	dialer     *websocket.Dialer
	sendBuffer int
	logger     *slog.Logger
}

// Ensure Transport implements the ports.RealtimeTransport interface.
var _ ports.RealtimeTransport = (*Transport)(nil)

// NewTransport validates the endpoint and builds a Transport.
func NewTransport(cfg Config) (*Transport, error) {
	endpoint, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("realtime: invalid URL %q: %w", cfg.URL, err)
	}
	switch endpoint.Scheme {
	case "ws", "wss":
	case "http":
		endpoint.Scheme = "ws"
	case "https":
		endpoint.Scheme = "wss"
	default:
		return nil, fmt.Errorf("realtime: URL %q must be ws, wss, http or https", cfg.URL)
	}

	timeout := cfg.HandshakeTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Transport{
		endpoint: endpoint,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		sendBuffer: sendBuffer,
		logger:     logger.With("component", "realtime"),
	}, nil
}

// Connect opens a connection authenticated with token. The token travels
// both as the token query parameter and as a bearer header.
func (t *Transport) Connect(ctx context.Context, token string) (ports.Connection, error) {
	if token == "" {
		return nil, apperrors.ErrNoToken
	}

	target := *t.endpoint
	query := target.Query()
	query.Set("token", token)
	target.RawQuery = query.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, resp, err := t.dialer.DialContext(ctx, target.String(), header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return nil, fmt.Errorf("realtime: handshake rejected: %w", apperrors.ErrUnauthorized)
			case http.StatusForbidden:
				return nil, fmt.Errorf("realtime: handshake rejected: %w", apperrors.ErrForbidden)
			}
			return nil, fmt.Errorf("realtime: handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("realtime: dial %s: %w", t.endpoint.Redacted(), err)
	}

	c := newConn(ws, t.sendBuffer, t.logger)
	go c.writePump()
	go c.readPump()

	t.logger.Info("websocket connected", "endpoint", t.endpoint.Redacted())
	return c, nil
}
