package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// SessionState is the only mutable record owned by the client core.
// It is not safe for concurrent use; the session controller serialises access.
type SessionState struct {
	Role       Role
	GameID     string
	Connection ConnectionState
}

// AssignRole moves the role out of Unassigned. It never goes back.
func (s *SessionState) AssignRole(role Role) error {
	if s.Role == role {
		return nil
	}
	if s.Role != RoleUnassigned {
		return ErrRoleAlreadyAssigned
	}
	s.Role = role
	return nil
}

// AssignGame sets the game id once per logical game
func (s *SessionState) AssignGame(gameID string) error {
	if s.GameID == gameID {
		return nil
	}
	if s.GameID != "" {
		return ErrGameAlreadyAssigned
	}
	s.GameID = gameID
	return nil
}

type EntryMode int

const (
	EntryNewGame EntryMode = iota
	EntryJoin
	EntryWatch
)

// EntryParams are read once at startup. At most one of Join and Watch is set;
// neither means "start a new game".
type EntryParams struct {
	Join  string
	Watch string
}

func (p EntryParams) Validate() error {
	if p.Join != "" && p.Watch != "" {
		return ErrConflictingEntry
	}
	return nil
}

func (p EntryParams) Mode() EntryMode {
	switch {
	case p.Join != "":
		return EntryJoin
	case p.Watch != "":
		return EntryWatch
	}
	return EntryNewGame
}

// ParseEntryLink reads entry params from a shared link such as
// "https://host/?join=abc" or a bare query "?watch=xyz".
func ParseEntryLink(link string) (EntryParams, error) {
	u, err := url.Parse(strings.TrimSpace(link))
	if err != nil {
		return EntryParams{}, err
	}
	q := u.Query()
	p := EntryParams{Join: q.Get("join"), Watch: q.Get("watch")}
	if err := p.Validate(); err != nil {
		return EntryParams{}, err
	}
	return p, nil
}

// ResolveColumn turns raw user input into a column index. Anything that is not
// a non-negative integer means the input did not land on a column.
func ResolveColumn(raw string) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	column, err := strconv.Atoi(raw)
	if err != nil || column < 0 {
		return 0, false
	}
	return column, true
}
