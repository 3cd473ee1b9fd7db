package presentation

import "github.com/iamasit07/4-in-a-row/client/internal/service/session"

// Multi forwards every call to each sink in order.
type Multi []session.Sink

func (m Multi) RenderMove(player string, column, row int) {
	for _, s := range m {
		s.RenderMove(player, column, row)
	}
}

func (m Multi) ShowJoinLink(ref string) {
	for _, s := range m {
		s.ShowJoinLink(ref)
	}
}

func (m Multi) ShowWatchLink(ref string) {
	for _, s := range m {
		s.ShowWatchLink(ref)
	}
}

func (m Multi) ShowMessage(text string) {
	for _, s := range m {
		s.ShowMessage(text)
	}
}
