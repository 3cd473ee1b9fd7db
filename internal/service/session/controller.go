package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iamasit07/4-in-a-row/client/internal/domain"
)

// Transport opens connections to the game server. Open returns immediately;
// the connection reports ConnOpened, ConnMessage and ConnClosed through notify,
// messages in the order the server sent them.
type Transport interface {
	Open(ctx context.Context, endpoint string, notify func(domain.ConnEvent)) Conn
}

type Conn interface {
	ID() string
	// Send fails with domain.ErrNotOpen unless the connection is open.
	Send(req domain.Request) error
	Close(code int) error
}

type Options struct {
	Endpoint  string
	Entry     domain.EntryParams
	Transport Transport
	Sink      Sink
	Logger    zerolog.Logger
}

type actionKind int

const (
	actionConn actionKind = iota
	actionHidden
	actionVisible
	actionMove
)

type action struct {
	kind  actionKind
	conn  domain.ConnEvent
	input string
}

// Controller owns the session state and sequences the handshake, moves and
// reconnection. The Handle* methods are not safe for concurrent use; Run calls
// them from a single goroutine.
type Controller struct {
	state      *domain.SessionState
	entry      domain.EntryParams
	endpoint   string
	transport  Transport
	sink       Sink
	dispatcher *Dispatcher
	log        zerolog.Logger

	conn          Conn
	handshakeSent bool
	// replayOn is the id of the connection that owes a replay request once open
	replayOn string

	actions chan action
	done    chan struct{}
}

func NewController(opts Options) (*Controller, error) {
	if err := opts.Entry.Validate(); err != nil {
		return nil, err
	}
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("%w: no server endpoint", domain.ErrUnsupportedEnvironment)
	}

	state := &domain.SessionState{Connection: domain.Closed}
	// A joiner or watcher declares its identity up front; a starter learns it from init.
	switch opts.Entry.Mode() {
	case domain.EntryJoin:
		state.Role = domain.RoleYellow
		state.GameID = opts.Entry.Join
	case domain.EntryWatch:
		state.Role = domain.RoleSpectator
		state.GameID = opts.Entry.Watch
	}

	log := opts.Logger.With().Str("component", "session").Logger()
	return &Controller{
		state:      state,
		entry:      opts.Entry,
		endpoint:   opts.Endpoint,
		transport:  opts.Transport,
		sink:       opts.Sink,
		dispatcher: NewDispatcher(state, opts.Sink, opts.Logger),
		log:        log,
		actions:    make(chan action, 64),
		done:       make(chan struct{}),
	}, nil
}

// State returns a copy of the session state. Call it from the goroutine
// running the controller, or after Run has returned.
func (c *Controller) State() domain.SessionState {
	return *c.state
}

// Run opens the first connection and processes events one at a time until ctx
// is cancelled. The live connection is closed on the way out.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	c.Connect(ctx)
	for {
		select {
		case <-ctx.Done():
			if err := c.closeConn(domain.CloseGoingAway); err != nil {
				c.log.Debug().Err(err).Msg("[CONN] close on shutdown")
			}
			return nil
		case a := <-c.actions:
			if err := c.handle(ctx, a); err != nil {
				c.log.Error().Err(err).Msg("[SESSION] event failed")
			}
		}
	}
}

// VisibilityHidden queues a visibility-hidden event for the running loop.
func (c *Controller) VisibilityHidden() { c.post(action{kind: actionHidden}) }

func (c *Controller) VisibilityVisible() { c.post(action{kind: actionVisible}) }

// Move queues a user move; raw is whatever the input resolved to.
func (c *Controller) Move(raw string) { c.post(action{kind: actionMove, input: raw}) }

func (c *Controller) notify(ev domain.ConnEvent) { c.post(action{kind: actionConn, conn: ev}) }

func (c *Controller) post(a action) {
	select {
	case c.actions <- a:
	case <-c.done:
	}
}

func (c *Controller) handle(ctx context.Context, a action) error {
	switch a.kind {
	case actionConn:
		return c.HandleConnEvent(a.conn)
	case actionHidden:
		return c.HandleVisibilityHidden()
	case actionVisible:
		c.HandleVisibilityVisible(ctx)
	case actionMove:
		return c.HandleUserMove(a.input)
	}
	return nil
}

// Connect opens a new connection, abandoning the previous one if any.
func (c *Controller) Connect(ctx context.Context) {
	if c.conn != nil {
		c.log.Debug().Str("conn_id", c.conn.ID()).Msg("[CONN] superseding previous connection")
		if err := c.conn.Close(domain.CloseNormal); err != nil {
			c.log.Debug().Err(err).Msg("[CONN] close superseded connection")
		}
	}
	c.replayOn = ""
	c.state.Connection = domain.Connecting
	c.conn = c.transport.Open(ctx, c.endpoint, c.notify)
	c.log.Info().Str("conn_id", c.conn.ID()).Str("endpoint", c.endpoint).Msg("[CONN] connecting")
}

// HandleConnEvent applies a transport lifecycle event or inbound message.
// Events from connections other than the current one are dropped.
func (c *Controller) HandleConnEvent(ev domain.ConnEvent) error {
	if c.conn == nil || c.conn.ID() != ev.ConnID {
		c.log.Debug().Str("conn_id", ev.ConnID).Int("kind", int(ev.Kind)).Msg("[CONN] dropping event from stale connection")
		return nil
	}

	switch ev.Kind {
	case domain.ConnOpened:
		return c.onOpen(ev.ConnID)
	case domain.ConnMessage:
		return c.onMessage(ev.Data)
	case domain.ConnClosed:
		c.onClose(ev)
	}
	return nil
}

func (c *Controller) onOpen(connID string) error {
	c.state.Connection = domain.Open
	c.log.Info().Str("conn_id", connID).Msg("[CONN] open")

	if !c.handshakeSent {
		req, err := domain.NewInitRequest(c.entry)
		if err != nil {
			return err
		}
		if err := c.conn.Send(req); err != nil {
			return fmt.Errorf("send init: %w", err)
		}
		c.handshakeSent = true
		if c.entry.Mode() == domain.EntryJoin {
			c.sink.ShowJoinLink(c.entry.Join)
		}
	}

	if c.replayOn == connID {
		c.replayOn = ""
		if err := c.conn.Send(domain.NewReplayRequest(c.state.GameID)); err != nil {
			return fmt.Errorf("send replay: %w", err)
		}
		c.log.Info().Str("game_id", c.state.GameID).Msg("[REPLAY] requested")
	}
	return nil
}

func (c *Controller) onMessage(data []byte) error {
	if c.state.Connection != domain.Open {
		c.log.Debug().Str("state", c.state.Connection.String()).Msg("[CONN] dropping message, connection not open")
		return nil
	}

	outcome, err := c.dispatcher.Dispatch(data)
	if err != nil {
		return err
	}
	if outcome.Terminal {
		// No further messages are expected once the game is decided.
		return c.closeConn(domain.CloseNormal)
	}
	return nil
}

func (c *Controller) onClose(ev domain.ConnEvent) {
	if ev.Err != nil {
		c.log.Warn().Err(ev.Err).Int("code", ev.Code).Str("conn_id", ev.ConnID).Msg("[CONN] connection lost")
	} else {
		c.log.Info().Int("code", ev.Code).Str("conn_id", ev.ConnID).Msg("[CONN] connection closed")
	}
	c.conn = nil
	c.replayOn = ""
	c.state.Connection = domain.Closed
}

// HandleVisibilityHidden closes the connection on purpose. It never reconnects.
func (c *Controller) HandleVisibilityHidden() error {
	c.log.Info().Msg("[VISIBILITY] hidden, closing connection")
	return c.closeConn(domain.CloseNormal)
}

// HandleVisibilityVisible reconnects unless the connection is already open.
// With an established game the new connection owes one replay request, sent
// only after it reports open.
func (c *Controller) HandleVisibilityVisible(ctx context.Context) {
	if c.state.Connection == domain.Open {
		return
	}
	c.log.Info().Msg("[VISIBILITY] visible, reconnecting")
	c.Connect(ctx)
	if c.state.GameID != "" {
		c.replayOn = c.conn.ID()
	}
}

// HandleUserMove sends a play request for the resolved column. Whose turn it is
// and whether the column is full is for the server to decide.
func (c *Controller) HandleUserMove(raw string) error {
	column, ok := domain.ResolveColumn(raw)
	if !ok {
		c.log.Debug().Str("input", raw).Msg("[MOVE] no column, ignoring")
		return nil
	}

	req := domain.NewPlayRequest(c.state.GameID, c.state.Role, column)
	if c.conn == nil {
		return fmt.Errorf("send play: %w", domain.ErrNotOpen)
	}
	if err := c.conn.Send(req); err != nil {
		return fmt.Errorf("send play: %w", err)
	}
	return nil
}

func (c *Controller) closeConn(code int) error {
	c.replayOn = ""
	if c.conn == nil {
		c.state.Connection = domain.Closed
		return nil
	}

	c.state.Connection = domain.Closing
	err := c.conn.Close(code)
	c.conn = nil
	c.state.Connection = domain.Closed
	if err != nil {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
