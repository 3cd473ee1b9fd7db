package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/iamasit07/4-in-a-row/client/internal/domain"
	"github.com/iamasit07/4-in-a-row/client/internal/service/session"
)

const (
	// Maximum message size allowed from the server.
	maxMessageSize = 4096
)

type Config struct {
	DialTimeout  time.Duration
	WriteTimeout time.Duration
	// PongWait is how long the connection may stay silent before it is considered dead.
	PongWait time.Duration
}

// Transport dials game server WebSocket endpoints
type Transport struct {
	dialer *websocket.Dialer
	cfg    Config
	log    zerolog.Logger
}

func NewTransport(cfg Config, log zerolog.Logger) *Transport {
	return &Transport{
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.DialTimeout,
			ReadBufferSize:   1024,
			WriteBufferSize:  1024,
		},
		cfg: cfg,
		log: log.With().Str("component", "transport").Logger(),
	}
}

// Open starts dialing in the background and returns the connection handle at once.
// notify receives ConnOpened, then every inbound message in order, then exactly
// one ConnClosed. notify is never called from the goroutine calling Send or Close.
func (t *Transport) Open(ctx context.Context, endpoint string, notify func(domain.ConnEvent)) session.Conn {
	connCtx, cancel := context.WithCancel(ctx)
	c := &Connection{
		id:     uuid.NewString(),
		cfg:    t.cfg,
		notify: notify,
		cancel: cancel,
	}
	c.log = t.log.With().Str("conn_id", c.id).Logger()

	go c.run(connCtx, t.dialer, endpoint)
	return c
}

// Connection is one client WebSocket connection
type Connection struct {
	id     string
	cfg    Config
	log    zerolog.Logger
	notify func(domain.ConnEvent)
	cancel context.CancelFunc

	mu        sync.Mutex // protects conn, open, closed, closeCode
	conn      *websocket.Conn
	open      bool
	closed    bool
	closeCode int

	// writeMu ensures only one goroutine writes a data frame at a time.
	writeMu sync.Mutex

	finishOnce sync.Once
}

func (c *Connection) ID() string {
	return c.id
}

func (c *Connection) run(ctx context.Context, dialer *websocket.Dialer, endpoint string) {
	defer c.cancel()

	conn, _, err := dialer.DialContext(ctx, endpoint, nil)

	c.mu.Lock()
	if c.closed {
		// Abandoned while dialing.
		code := c.closeCode
		c.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		c.finish(code, nil)
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.finish(domain.CloseAbnormal, fmt.Errorf("dial %s: %w", endpoint, err))
		return
	}
	c.conn = conn
	c.open = true
	c.mu.Unlock()

	c.log.Debug().Str("endpoint", endpoint).Msg("[WS] connected")
	c.notify(domain.ConnEvent{ConnID: c.id, Kind: domain.ConnOpened})

	go c.keepAlive(ctx, conn)
	c.readLoop(conn)
}

func (c *Connection) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.open = false
			deliberate, code := c.closed, c.closeCode
			c.mu.Unlock()

			if deliberate {
				c.finish(code, nil)
				return
			}

			code = domain.CloseAbnormal
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code = closeErr.Code
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.finish(code, nil)
			} else {
				c.finish(code, err)
			}
			conn.Close()
			return
		}
		c.notify(domain.ConnEvent{ConnID: c.id, Kind: domain.ConnMessage, Data: data})
	}
}

// keepAlive pings the server so a dead peer is noticed by the read deadline.
func (c *Connection) keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker((c.cfg.PongWait * 9) / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.cfg.WriteTimeout)); err != nil {
				c.log.Debug().Err(err).Msg("[WS] ping failed")
				return
			}
		}
	}
}

// Send writes one request as JSON.
func (c *Connection) Send(req domain.Request) error {
	c.mu.Lock()
	conn, open := c.conn, c.open
	c.mu.Unlock()
	if !open {
		return domain.ErrNotOpen
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		return fmt.Errorf("write %s: %w", req.RequestType(), err)
	}
	return nil
}

// Close sends a close frame with code and tears the connection down. Closing a
// connection that is still dialing abandons it.
func (c *Connection) Close(code int) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.closeCode = code
	c.open = false
	conn := c.conn
	c.mu.Unlock()

	c.cancel()
	if conn == nil {
		// run reports the close once the dial gives up.
		return nil
	}

	msg := websocket.FormatCloseMessage(code, "")
	writeErr := conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.cfg.WriteTimeout))
	closeErr := conn.Close()
	if writeErr != nil && !errors.Is(writeErr, websocket.ErrCloseSent) {
		return fmt.Errorf("write close frame: %w", writeErr)
	}
	return closeErr
}

func (c *Connection) finish(code int, err error) {
	c.finishOnce.Do(func() {
		c.log.Debug().Int("code", code).AnErr("cause", err).Msg("[WS] closed")
		c.notify(domain.ConnEvent{ConnID: c.id, Kind: domain.ConnClosed, Code: code, Err: err})
	})
}
