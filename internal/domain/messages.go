package domain

// Inbound and outbound event type tags.
const (
	TypeInit   = "init"
	TypePlay   = "play"
	TypeReplay = "replay"
	TypeWin    = "win"
	TypeError  = "error"
)

// Event is one decoded message from the server
type Event interface {
	EventType() string
}

// InitEvent is only sent to the player who started the game.
type InitEvent struct {
	Join  string
	Watch string
}

type PlayEvent struct {
	Player string
	Column int
	Row    int
}

type WinEvent struct {
	Player string
}

type ErrorEvent struct {
	Message string
}

func (InitEvent) EventType() string  { return TypeInit }
func (PlayEvent) EventType() string  { return TypePlay }
func (WinEvent) EventType() string   { return TypeWin }
func (ErrorEvent) EventType() string { return TypeError }

// Request is a message the client sends. Implementations marshal to the wire record directly.
type Request interface {
	RequestType() string
}

type InitRequest struct {
	Type  string `json:"type"`
	Join  string `json:"join,omitempty"`
	Watch string `json:"watch,omitempty"`
}

type PlayRequest struct {
	Type   string `json:"type"`
	Column int    `json:"column"`
	GameID string `json:"gameId"`
	Player string `json:"player"`
}

type ReplayRequest struct {
	Type   string `json:"type"`
	GameID string `json:"gameId"`
}

func (InitRequest) RequestType() string   { return TypeInit }
func (PlayRequest) RequestType() string   { return TypePlay }
func (ReplayRequest) RequestType() string { return TypeReplay }

// NewInitRequest builds the handshake for the given entry; an empty entry starts a new game.
func NewInitRequest(entry EntryParams) (InitRequest, error) {
	if err := entry.Validate(); err != nil {
		return InitRequest{}, err
	}
	return InitRequest{Type: TypeInit, Join: entry.Join, Watch: entry.Watch}, nil
}

func NewPlayRequest(gameID string, role Role, column int) PlayRequest {
	return PlayRequest{Type: TypePlay, Column: column, GameID: gameID, Player: string(role)}
}

func NewReplayRequest(gameID string) ReplayRequest {
	return ReplayRequest{Type: TypeReplay, GameID: gameID}
}

type ConnEventKind int

const (
	ConnOpened ConnEventKind = iota
	ConnMessage
	ConnClosed
)

// ConnEvent is what a transport connection reports back to its owner.
type ConnEvent struct {
	ConnID string
	Kind   ConnEventKind
	Data   []byte
	Code   int
	Err    error
}
