package domain

// Role is the identity this client holds within a game.
type Role string

const (
	RoleUnassigned Role = ""
	RoleRed        Role = "red"
	RoleYellow     Role = "yellow"
	RoleSpectator  Role = "spectator"
)

// ConnectionState tracks the lifecycle of the current transport connection
type ConnectionState int

const (
	Closed ConnectionState = iota
	Connecting
	Open
	Closing
)

func (s ConnectionState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closing:
		return "closing"
	}
	return "unknown"
}

// WebSocket close codes used by the client.
const (
	CloseNormal    = 1000
	CloseGoingAway = 1001
	CloseAbnormal  = 1006
)

// basic error that can occur
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrMalformedMessage       Error = "malformed message"
	ErrMissingType            Error = "message has no type"
	ErrUnknownEventType       Error = "unsupported event type"
	ErrNotOpen                Error = "connection is not open"
	ErrUnsupportedEnvironment Error = "unsupported environment"
	ErrConflictingEntry       Error = "join and watch are mutually exclusive"
	ErrRoleAlreadyAssigned    Error = "role already assigned"
	ErrGameAlreadyAssigned    Error = "game id already assigned"
)
