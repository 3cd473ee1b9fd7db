// Package protocol decodes server messages into domain events.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/iamasit07/4-in-a-row/client/internal/domain"
)

// serverMessage mirrors every field the server may send. Pointers tell a
// missing field apart from a zero value.
type serverMessage struct {
	Type    *string `json:"type"`
	Join    *string `json:"join"`
	Watch   *string `json:"watch"`
	Player  *string `json:"player"`
	Column  *int    `json:"column"`
	Row     *int    `json:"row"`
	Message *string `json:"message"`
}

// Decode parses one inbound message. An absent or unknown type is an error,
// as is a known type missing one of its fields.
func Decode(data []byte) (domain.Event, error) {
	var msg serverMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)
	}
	if msg.Type == nil || *msg.Type == "" {
		return nil, domain.ErrMissingType
	}

	switch *msg.Type {
	case domain.TypeInit:
		if msg.Join == nil || msg.Watch == nil {
			return nil, missing(*msg.Type, "join", "watch")
		}
		return domain.InitEvent{Join: *msg.Join, Watch: *msg.Watch}, nil
	case domain.TypePlay:
		if msg.Player == nil || msg.Column == nil || msg.Row == nil {
			return nil, missing(*msg.Type, "player", "column", "row")
		}
		return domain.PlayEvent{Player: *msg.Player, Column: *msg.Column, Row: *msg.Row}, nil
	case domain.TypeWin:
		if msg.Player == nil {
			return nil, missing(*msg.Type, "player")
		}
		return domain.WinEvent{Player: *msg.Player}, nil
	case domain.TypeError:
		if msg.Message == nil {
			return nil, missing(*msg.Type, "message")
		}
		return domain.ErrorEvent{Message: *msg.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownEventType, *msg.Type)
	}
}

func missing(eventType string, fields ...string) error {
	return fmt.Errorf("%w: %s event requires %v", domain.ErrMalformedMessage, eventType, fields)
}
