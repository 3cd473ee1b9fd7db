package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamasit07/4-in-a-row/client/internal/domain"
)

type fakeConn struct {
	id string

	mu        sync.Mutex
	open      bool
	closed    bool
	closeCode int
	sent      []domain.Request
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Send(req domain.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return domain.ErrNotOpen
	}
	c.sent = append(c.sent, req)
	return nil
}

func (c *fakeConn) Close(code int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.closed = true
	c.closeCode = code
	return nil
}

func (c *fakeConn) Sent() []domain.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Request(nil), c.sent...)
}

func (c *fakeConn) Closed() (bool, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.closeCode
}

type fakeTransport struct {
	mu       sync.Mutex
	conns    []*fakeConn
	notify   func(domain.ConnEvent)
	endpoint string
}

func (t *fakeTransport) Open(ctx context.Context, endpoint string, notify func(domain.ConnEvent)) Conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := &fakeConn{id: fmt.Sprintf("conn-%d", len(t.conns)+1)}
	t.conns = append(t.conns, c)
	t.notify = notify
	t.endpoint = endpoint
	return c
}

func (t *fakeTransport) Conns() []*fakeConn {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*fakeConn(nil), t.conns...)
}

func (t *fakeTransport) Last() *fakeConn {
	conns := t.Conns()
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

type move struct {
	Player      string
	Column, Row int
}

type recordingSink struct {
	moves      []move
	joinLinks  []string
	watchLinks []string
	messages   []string
}

func (s *recordingSink) RenderMove(player string, column, row int) {
	s.moves = append(s.moves, move{player, column, row})
}
func (s *recordingSink) ShowJoinLink(ref string)  { s.joinLinks = append(s.joinLinks, ref) }
func (s *recordingSink) ShowWatchLink(ref string) { s.watchLinks = append(s.watchLinks, ref) }
func (s *recordingSink) ShowMessage(text string)  { s.messages = append(s.messages, text) }

func (s *recordingSink) calls() int {
	return len(s.moves) + len(s.joinLinks) + len(s.watchLinks) + len(s.messages)
}

func newTestController(t *testing.T, entry domain.EntryParams) (*Controller, *fakeTransport, *recordingSink) {
	t.Helper()
	transport := &fakeTransport{}
	sink := &recordingSink{}
	c, err := NewController(Options{
		Endpoint:  "ws://localhost:8001/",
		Entry:     entry,
		Transport: transport,
		Sink:      sink,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	return c, transport, sink
}

// markOpen makes the fake report open, as the transport would once the handshake completes.
func markOpen(t *testing.T, c *Controller, conn *fakeConn) {
	t.Helper()
	conn.mu.Lock()
	conn.open = true
	conn.mu.Unlock()
	require.NoError(t, c.HandleConnEvent(domain.ConnEvent{ConnID: conn.id, Kind: domain.ConnOpened}))
}

func message(conn *fakeConn, data string) domain.ConnEvent {
	return domain.ConnEvent{ConnID: conn.id, Kind: domain.ConnMessage, Data: []byte(data)}
}

func TestNewControllerEntry(t *testing.T) {
	tests := []struct {
		name   string
		entry  domain.EntryParams
		role   domain.Role
		gameID string
	}{
		{"new game", domain.EntryParams{}, domain.RoleUnassigned, ""},
		{"join", domain.EntryParams{Join: "G1"}, domain.RoleYellow, "G1"},
		{"watch", domain.EntryParams{Watch: "W1"}, domain.RoleSpectator, "W1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, transport, sink := newTestController(t, tt.entry)

			state := c.State()
			assert.Equal(t, tt.role, state.Role)
			assert.Equal(t, tt.gameID, state.GameID)
			assert.Equal(t, domain.Closed, state.Connection)
			assert.Empty(t, transport.Conns())
			assert.Zero(t, sink.calls())
		})
	}
}

func TestNewControllerRejectsBadSetup(t *testing.T) {
	_, err := NewController(Options{
		Endpoint:  "ws://localhost:8001/",
		Entry:     domain.EntryParams{Join: "G1", Watch: "W1"},
		Transport: &fakeTransport{},
		Sink:      &recordingSink{},
		Logger:    zerolog.Nop(),
	})
	assert.ErrorIs(t, err, domain.ErrConflictingEntry)

	_, err = NewController(Options{
		Transport: &fakeTransport{},
		Sink:      &recordingSink{},
		Logger:    zerolog.Nop(),
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedEnvironment)
}

func TestFirstOpenSendsExactlyOneInit(t *testing.T) {
	tests := []struct {
		name  string
		entry domain.EntryParams
		want  domain.InitRequest
	}{
		{"new game", domain.EntryParams{}, domain.InitRequest{Type: "init"}},
		{"join", domain.EntryParams{Join: "G1"}, domain.InitRequest{Type: "init", Join: "G1"}},
		{"watch", domain.EntryParams{Watch: "W1"}, domain.InitRequest{Type: "init", Watch: "W1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, transport, _ := newTestController(t, tt.entry)

			c.Connect(context.Background())
			conn := transport.Last()
			assert.Equal(t, domain.Connecting, c.State().Connection)
			assert.Empty(t, conn.Sent(), "nothing may be sent before the connection opens")

			markOpen(t, c, conn)

			assert.Equal(t, domain.Open, c.State().Connection)
			require.Len(t, conn.Sent(), 1)
			assert.Equal(t, tt.want, conn.Sent()[0])
		})
	}
}

func TestJoinerSeesJoinLinkOnOpen(t *testing.T) {
	c, transport, sink := newTestController(t, domain.EntryParams{Join: "G1"})
	c.Connect(context.Background())
	markOpen(t, c, transport.Last())

	assert.Equal(t, []string{"G1"}, sink.joinLinks)
}

func TestInitEventAssignsStarter(t *testing.T) {
	c, transport, sink := newTestController(t, domain.EntryParams{})
	c.Connect(context.Background())
	conn := transport.Last()
	markOpen(t, c, conn)

	err := c.HandleConnEvent(message(conn, `{"type":"init","join":"G1","watch":"W1"}`))
	require.NoError(t, err)

	state := c.State()
	assert.Equal(t, "G1", state.GameID)
	assert.Equal(t, domain.RoleRed, state.Role)
	assert.Equal(t, []string{"G1"}, sink.joinLinks)
	assert.Equal(t, []string{"W1"}, sink.watchLinks)
}

func TestPlayEventRendersMove(t *testing.T) {
	c, transport, sink := newTestController(t, domain.EntryParams{Join: "G1"})
	c.Connect(context.Background())
	conn := transport.Last()
	markOpen(t, c, conn)
	before := c.State()

	err := c.HandleConnEvent(message(conn, `{"type":"play","player":"red","column":3,"row":2}`))
	require.NoError(t, err)

	assert.Equal(t, []move{{"red", 3, 2}}, sink.moves)
	assert.Equal(t, before, c.State())
}

func TestWinClosesConnection(t *testing.T) {
	c, transport, sink := newTestController(t, domain.EntryParams{Join: "G1"})
	c.Connect(context.Background())
	conn := transport.Last()
	markOpen(t, c, conn)
	sink.joinLinks = nil

	require.NoError(t, c.HandleConnEvent(message(conn, `{"type":"win","player":"yellow"}`)))

	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0], "yellow")
	closed, code := conn.Closed()
	assert.True(t, closed)
	assert.Equal(t, domain.CloseNormal, code)
	assert.Equal(t, domain.Closed, c.State().Connection)

	// Anything the server still had in flight is not dispatched.
	require.NoError(t, c.HandleConnEvent(message(conn, `{"type":"play","player":"red","column":1,"row":5}`)))
	require.NoError(t, c.HandleConnEvent(message(conn, `{"type":"win","player":"red"}`)))
	assert.Empty(t, sink.moves)
	assert.Len(t, sink.messages, 1)
	assert.Len(t, transport.Conns(), 1, "win must not reconnect")
}

func TestErrorEventKeepsConnectionOpen(t *testing.T) {
	c, transport, sink := newTestController(t, domain.EntryParams{Join: "G1"})
	c.Connect(context.Background())
	conn := transport.Last()
	markOpen(t, c, conn)

	require.NoError(t, c.HandleConnEvent(message(conn, `{"type":"error","message":"Not your turn."}`)))

	assert.Equal(t, []string{"Not your turn."}, sink.messages)
	closed, _ := conn.Closed()
	assert.False(t, closed)
	assert.Equal(t, domain.Open, c.State().Connection)
}

func TestUnknownEventIsDecodeError(t *testing.T) {
	c, transport, sink := newTestController(t, domain.EntryParams{})
	c.Connect(context.Background())
	conn := transport.Last()
	markOpen(t, c, conn)
	before := c.State()

	err := c.HandleConnEvent(message(conn, `{"type":"unknown"}`))

	assert.ErrorIs(t, err, domain.ErrUnknownEventType)
	assert.Equal(t, before, c.State())
	assert.Zero(t, sink.calls())
	closed, _ := conn.Closed()
	assert.False(t, closed, "a decode error does not close the connection")
}

func TestReconnectReplaysOnceOpen(t *testing.T) {
	c, transport, _ := newTestController(t, domain.EntryParams{Join: "G1"})
	ctx := context.Background()
	c.Connect(ctx)
	first := transport.Last()
	markOpen(t, c, first)

	require.NoError(t, c.HandleVisibilityHidden())

	closed, code := first.Closed()
	assert.True(t, closed)
	assert.Equal(t, domain.CloseNormal, code)
	assert.Equal(t, domain.Closed, c.State().Connection)
	assert.Len(t, transport.Conns(), 1, "hiding must not reconnect")

	c.HandleVisibilityVisible(ctx)

	require.Len(t, transport.Conns(), 2)
	second := transport.Last()
	assert.Equal(t, domain.Connecting, c.State().Connection)
	assert.Empty(t, second.Sent(), "replay must wait for open")

	markOpen(t, c, second)

	assert.Equal(t, []domain.Request{domain.ReplayRequest{Type: "replay", GameID: "G1"}}, second.Sent())
	assert.Len(t, first.Sent(), 1, "only the handshake went over the first connection")

	// A second open report for the same connection does not replay again.
	require.NoError(t, c.HandleConnEvent(domain.ConnEvent{ConnID: second.id, Kind: domain.ConnOpened}))
	assert.Len(t, second.Sent(), 1)
}

func TestReconnectWithoutGameSkipsReplay(t *testing.T) {
	c, transport, _ := newTestController(t, domain.EntryParams{})
	ctx := context.Background()
	c.Connect(ctx)
	markOpen(t, c, transport.Last())

	require.NoError(t, c.HandleVisibilityHidden())
	c.HandleVisibilityVisible(ctx)
	second := transport.Last()
	markOpen(t, c, second)

	assert.Empty(t, second.Sent())
}

func TestReconnectAfterStarterInitReplays(t *testing.T) {
	c, transport, _ := newTestController(t, domain.EntryParams{})
	ctx := context.Background()
	c.Connect(ctx)
	first := transport.Last()
	markOpen(t, c, first)
	require.NoError(t, c.HandleConnEvent(message(first, `{"type":"init","join":"G9","watch":"W9"}`)))

	require.NoError(t, c.HandleVisibilityHidden())
	c.HandleVisibilityVisible(ctx)
	second := transport.Last()
	markOpen(t, c, second)

	assert.Equal(t, []domain.Request{domain.ReplayRequest{Type: "replay", GameID: "G9"}}, second.Sent())
	assert.Equal(t, domain.RoleRed, c.State().Role)
}

func TestVisibleWhileOpenIsNoop(t *testing.T) {
	c, transport, _ := newTestController(t, domain.EntryParams{Join: "G1"})
	ctx := context.Background()
	c.Connect(ctx)
	markOpen(t, c, transport.Last())

	c.HandleVisibilityVisible(ctx)

	assert.Len(t, transport.Conns(), 1)
}

func TestSupersededConnectionIsAbandoned(t *testing.T) {
	c, transport, sink := newTestController(t, domain.EntryParams{Join: "G1"})
	ctx := context.Background()
	c.Connect(ctx)
	first := transport.Last()
	markOpen(t, c, first)
	require.NoError(t, c.HandleVisibilityHidden())

	c.HandleVisibilityVisible(ctx)
	stalled := transport.Last()
	// Still connecting; a newer visible event replaces it.
	c.HandleVisibilityVisible(ctx)
	current := transport.Last()

	closed, _ := stalled.Closed()
	assert.True(t, closed)
	require.NoError(t, c.HandleConnEvent(domain.ConnEvent{ConnID: stalled.id, Kind: domain.ConnOpened}))
	require.NoError(t, c.HandleConnEvent(message(stalled, `{"type":"play","player":"red","column":0,"row":5}`)))
	assert.Empty(t, stalled.Sent())
	assert.Empty(t, sink.moves)
	assert.Equal(t, domain.Connecting, c.State().Connection)

	markOpen(t, c, current)
	assert.Equal(t, []domain.Request{domain.NewReplayRequest("G1")}, current.Sent())
}

func TestRemoteCloseDoesNotReconnect(t *testing.T) {
	c, transport, _ := newTestController(t, domain.EntryParams{Join: "G1"})
	c.Connect(context.Background())
	conn := transport.Last()
	markOpen(t, c, conn)

	err := c.HandleConnEvent(domain.ConnEvent{ConnID: conn.id, Kind: domain.ConnClosed, Code: domain.CloseAbnormal})
	require.NoError(t, err)

	assert.Equal(t, domain.Closed, c.State().Connection)
	assert.Len(t, transport.Conns(), 1)
	assert.ErrorIs(t, c.HandleUserMove("2"), domain.ErrNotOpen)
}

func TestUserMove(t *testing.T) {
	c, transport, _ := newTestController(t, domain.EntryParams{Join: "G1"})
	c.Connect(context.Background())
	conn := transport.Last()
	markOpen(t, c, conn)

	require.NoError(t, c.HandleUserMove("3"))

	sent := conn.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, domain.PlayRequest{Type: "play", Column: 3, GameID: "G1", Player: "yellow"}, sent[1])
}

func TestUserMoveWithoutColumnSendsNothing(t *testing.T) {
	c, transport, _ := newTestController(t, domain.EntryParams{Join: "G1"})
	c.Connect(context.Background())
	conn := transport.Last()
	markOpen(t, c, conn)

	for _, raw := range []string{"", "  ", "board", "-1", "2.5"} {
		assert.NoError(t, c.HandleUserMove(raw), "input %q", raw)
	}

	assert.Len(t, conn.Sent(), 1, "only the handshake was sent")
}

func TestUserMoveNotOpen(t *testing.T) {
	c, transport, _ := newTestController(t, domain.EntryParams{Join: "G1"})

	assert.ErrorIs(t, c.HandleUserMove("3"), domain.ErrNotOpen)

	c.Connect(context.Background())
	// Attempted while connecting; the transport refuses and nothing is queued.
	assert.ErrorIs(t, c.HandleUserMove("3"), domain.ErrNotOpen)
	markOpen(t, c, transport.Last())
	assert.Len(t, transport.Last().Sent(), 1)
}

func TestRunSerialisesEvents(t *testing.T) {
	c, transport, _ := newTestController(t, domain.EntryParams{Join: "G1"})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return transport.Last() != nil }, time.Second, 5*time.Millisecond)
	first := transport.Last()
	first.mu.Lock()
	first.open = true
	first.mu.Unlock()
	transport.notify(domain.ConnEvent{ConnID: first.id, Kind: domain.ConnOpened})
	c.Move("4")

	require.Eventually(t, func() bool { return len(first.Sent()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, domain.NewPlayRequest("G1", domain.RoleYellow, 4), first.Sent()[1])

	c.VisibilityHidden()
	c.VisibilityVisible()
	require.Eventually(t, func() bool { return len(transport.Conns()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	closed, code := transport.Last().Closed()
	assert.True(t, closed)
	assert.Equal(t, domain.CloseGoingAway, code)

	// Posting after the loop has exited must not block.
	c.Move("1")
	c.VisibilityHidden()
}
