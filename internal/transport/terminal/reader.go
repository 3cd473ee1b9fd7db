// Package terminal turns lines typed by the user into session actions.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// Actions is the part of the session controller the terminal drives.
type Actions interface {
	Move(raw string)
	VisibilityHidden()
	VisibilityVisible()
}

const Help = `commands:
  <column>  play in that column (0-6)
  hide      close the connection, as when the tab is hidden
  show      reconnect and catch up, as when the tab is visible again
  quit      leave`

// Reader reads commands line by line
type Reader struct {
	in      io.Reader
	out     io.Writer
	actions Actions
	log     zerolog.Logger
}

func NewReader(in io.Reader, out io.Writer, actions Actions, log zerolog.Logger) *Reader {
	return &Reader{in: in, out: out, actions: actions, log: log.With().Str("component", "terminal").Logger()}
}

// Run returns nil on "quit" or end of input, and ctx.Err() if ctx ends first.
func (r *Reader) Run(ctx context.Context) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)

	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			if quit := r.handle(line); quit {
				return nil
			}
		}
	}
}

func (r *Reader) handle(line string) bool {
	cmd := strings.ToLower(strings.TrimSpace(line))
	r.log.Debug().Str("command", cmd).Msg("[INPUT] received")
	switch cmd {
	case "quit", "exit":
		return true
	case "hide":
		r.actions.VisibilityHidden()
	case "show":
		r.actions.VisibilityVisible()
	case "help", "?":
		fmt.Fprintln(r.out, Help)
	default:
		// Anything else is a click; the controller decides whether it hit a column.
		r.actions.Move(cmd)
	}
	return false
}
