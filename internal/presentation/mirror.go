package presentation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) error
}

// Event is the record published for every sink call.
type Event struct {
	Kind   string `json:"kind"`
	Player string `json:"player,omitempty"`
	Column *int   `json:"column,omitempty"`
	Row    *int   `json:"row,omitempty"`
	Ref    string `json:"ref,omitempty"`
	Text   string `json:"text,omitempty"`
}

const (
	KindMove      = "move"
	KindJoinLink  = "join_link"
	KindWatchLink = "watch_link"
	KindMessage   = "message"
)

// Mirror republishes session events on a pub/sub channel so other displays
// can follow the game. Publish failures are logged and otherwise ignored.
type Mirror struct {
	pub     Publisher
	channel string
	timeout time.Duration
	log     zerolog.Logger
}

func NewMirror(pub Publisher, channel string, log zerolog.Logger) *Mirror {
	return &Mirror{
		pub:     pub,
		channel: channel,
		timeout: 2 * time.Second,
		log:     log.With().Str("component", "mirror").Logger(),
	}
}

func (m *Mirror) RenderMove(player string, column, row int) {
	m.publish(Event{Kind: KindMove, Player: player, Column: &column, Row: &row})
}

func (m *Mirror) ShowJoinLink(ref string) {
	m.publish(Event{Kind: KindJoinLink, Ref: ref})
}

func (m *Mirror) ShowWatchLink(ref string) {
	m.publish(Event{Kind: KindWatchLink, Ref: ref})
}

func (m *Mirror) ShowMessage(text string) {
	m.publish(Event{Kind: KindMessage, Text: text})
}

func (m *Mirror) publish(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		m.log.Error().Err(err).Str("kind", ev.Kind).Msg("[MIRROR] marshal failed")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if err := m.pub.Publish(ctx, m.channel, payload); err != nil {
		m.log.Warn().Err(err).Str("channel", m.channel).Str("kind", ev.Kind).Msg("[MIRROR] publish failed")
	}
}
