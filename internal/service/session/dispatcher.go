package session

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iamasit07/4-in-a-row/client/internal/domain"
	"github.com/iamasit07/4-in-a-row/client/internal/protocol"
)

// Sink is the presentation layer. Calls are synchronous and never fail from
// the session's point of view.
type Sink interface {
	RenderMove(player string, column, row int)
	ShowJoinLink(ref string)
	ShowWatchLink(ref string)
	ShowMessage(text string)
}

// Outcome tells the controller what to do with the connection after an event.
type Outcome struct {
	Terminal bool
}

// Dispatcher decodes inbound messages and applies them to the session state
type Dispatcher struct {
	state *domain.SessionState
	sink  Sink
	log   zerolog.Logger
}

func NewDispatcher(state *domain.SessionState, sink Sink, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		state: state,
		sink:  sink,
		log:   log.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch decodes one message and applies it. A decode error leaves the state
// and the sink untouched.
func (d *Dispatcher) Dispatch(data []byte) (Outcome, error) {
	event, err := protocol.Decode(data)
	if err != nil {
		return Outcome{}, fmt.Errorf("decode event: %w", err)
	}
	return d.Apply(event), nil
}

func (d *Dispatcher) Apply(event domain.Event) Outcome {
	switch e := event.(type) {
	case domain.InitEvent:
		// Only the starter receives init; it learns its identity here.
		if err := d.state.AssignGame(e.Join); err != nil {
			d.log.Warn().Err(err).Str("game_id", d.state.GameID).Str("join", e.Join).Msg("[INIT] ignoring game id")
		}
		if err := d.state.AssignRole(domain.RoleRed); err != nil {
			d.log.Warn().Err(err).Str("role", string(d.state.Role)).Msg("[INIT] ignoring role")
		}
		d.log.Info().Str("game_id", d.state.GameID).Str("role", string(d.state.Role)).Msg("[INIT] game started")
		d.sink.ShowJoinLink(e.Join)
		d.sink.ShowWatchLink(e.Watch)

	case domain.PlayEvent:
		d.sink.RenderMove(e.Player, e.Column, e.Row)

	case domain.WinEvent:
		d.log.Info().Str("winner", e.Player).Msg("[WIN] game over")
		d.sink.ShowMessage(fmt.Sprintf("Player %s wins!", e.Player))
		return Outcome{Terminal: true}

	case domain.ErrorEvent:
		d.log.Debug().Str("message", e.Message).Msg("[ERROR] server rejected action")
		d.sink.ShowMessage(e.Message)

	default:
		d.log.Error().Str("type", event.EventType()).Msg("no handler for event")
	}
	return Outcome{}
}
