package realtime

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tiback/tiback-client/internal/core/domain"
	apperrors "github.com/tiback/tiback-client/internal/core/errors"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Sync payloads can carry whole ticket lists.
	maxMessageSize = 4 << 20
)

// frame is the wire envelope in both directions.
type frame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// conn is one live WebSocket session. A single goroutine writes data frames;
// Close may race with it, which gorilla permits for control frames.
type conn struct {
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	logger *slog.Logger

	// ready is closed by the first OnEvent so no inbound frame is read
	// before a handler exists.
	ready     chan struct{}
	readyOnce sync.Once

	mu      sync.RWMutex
	handler func(domain.ServerEvent)

	closeOnce sync.Once
}

func newConn(ws *websocket.Conn, sendBuffer int, logger *slog.Logger) *conn {
	return &conn{
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		done:   make(chan struct{}),
		ready:  make(chan struct{}),
		logger: logger,
	}
}

// Emit queues an event for the write pump.
func (c *conn) Emit(event string, payload any) error {
	encoded, err := json.Marshal(frame{Event: event, Data: payload})
	if err != nil {
		return fmt.Errorf("realtime: failed to encode %s: %w", event, err)
	}

	select {
	case <-c.done:
		return apperrors.ErrNotConnected
	default:
	}

	select {
	case c.send <- encoded:
		return nil
	case <-c.done:
		return apperrors.ErrNotConnected
	default:
		return fmt.Errorf("realtime: send buffer full, dropped %s", event)
	}
}

func (c *conn) OnEvent(handler func(domain.ServerEvent)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
	c.readyOnce.Do(func() { close(c.ready) })
}

func (c *conn) Done() <-chan struct{} {
	return c.done
}

// Close sends a normal closure frame and tears the connection down.
func (c *conn) Close() error {
	select {
	case <-c.done:
		return nil
	default:
	}
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug("failed to send close message", "error", err)
	}
	c.shutdown()
	return nil
}

func (c *conn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// readPump dispatches inbound frames to the handler until the connection ends.
func (c *conn) readPump() {
	defer c.shutdown()

	select {
	case <-c.ready:
	case <-c.done:
		return
	}

	c.ws.SetReadLimit(maxMessageSize)
	if err := c.ws.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("failed to set read deadline", "error", err)
		return
	}
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("websocket read error", "error", err)
			}
			return
		}
		// Any traffic proves the peer is alive.
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		var ev domain.ServerEvent
		if err := json.Unmarshal(message, &ev); err != nil || ev.Name == "" {
			c.logger.Warn("dropping malformed frame", "error", err, "size", len(message))
			continue
		}

		c.mu.RLock()
		handler := c.handler
		c.mu.RUnlock()
		if handler != nil {
			handler(ev)
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.shutdown()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline", "error", err)
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				c.logger.Error("failed to set write deadline for ping", "error", err)
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("failed to send ping", "error", err)
				return
			}

		case <-c.done:
			return
		}
	}
}
