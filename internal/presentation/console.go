// Package presentation holds the sinks that show session events to a user.
package presentation

import (
	"fmt"
	"io"
	"net/url"
	"sync"
)

// Console prints session events as plain lines
type Console struct {
	mu       sync.Mutex
	out      io.Writer
	linkBase *url.URL
}

// NewConsole builds shareable links on top of linkBase, e.g. "http://localhost:8000/".
func NewConsole(out io.Writer, linkBase string) (*Console, error) {
	base, err := url.Parse(linkBase)
	if err != nil {
		return nil, fmt.Errorf("parse link base %q: %w", linkBase, err)
	}
	return &Console{out: out, linkBase: base}, nil
}

func (c *Console) RenderMove(player string, column, row int) {
	c.println(fmt.Sprintf("%s played column %d (row %d)", player, column, row))
}

func (c *Console) ShowJoinLink(ref string) {
	c.println("Invite a second player: " + c.link("join", ref))
}

func (c *Console) ShowWatchLink(ref string) {
	c.println("Share with spectators: " + c.link("watch", ref))
}

func (c *Console) ShowMessage(text string) {
	c.println("> " + text)
}

func (c *Console) link(key, ref string) string {
	u := *c.linkBase
	q := url.Values{}
	q.Set(key, ref)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Console) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}
