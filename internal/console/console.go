// Package console is a terminal UI that lists torrents of a torrentd server.
package console

import (
	"fmt"
	"sync"
	"time"

	"github.com/jroimartin/gocui"
	"github.com/seedbox/torrentd/internal/jsonutil"
	"github.com/seedbox/torrentd/internal/rpctypes"
	"github.com/seedbox/torrentd/rpcclient"
)

const refreshInterval = time.Second

const help = "q: quit  j/k: move  p: pause  r: resume  x: remove"

// Console polls the server and shows the torrent list on the left and details of the selected torrent on the right.
type Console struct {
	client *rpcclient.Client

	m        sync.Mutex
	torrents []rpctypes.Torrent
	selected int
	err      error
}

func New(clt *rpcclient.Client) *Console {
	return &Console{
		client: clt,
	}
}

// Run blocks until the user quits.
func (c *Console) Run() error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer g.Close()

	g.SetManagerFunc(c.layout)
	if err = c.keybindings(g); err != nil {
		return err
	}

	stopC := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.updateLoop(g, stopC)
	}()

	err = g.MainLoop()
	close(stopC)
	wg.Wait()
	if err == gocui.ErrQuit {
		err = nil
	}
	return err
}

func (c *Console) keybindings(g *gocui.Gui) error {
	bindings := []struct {
		key     interface{}
		handler func(*gocui.Gui, *gocui.View) error
	}{
		{'q', quit},
		{gocui.KeyCtrlC, quit},
		{'j', c.cursorDown},
		{gocui.KeyArrowDown, c.cursorDown},
		{'k', c.cursorUp},
		{gocui.KeyArrowUp, c.cursorUp},
		{'p', c.command(c.client.PauseTorrent)},
		{'r', c.command(c.client.ResumeTorrent)},
		{'x', c.command(c.client.RemoveTorrent)},
	}
	for _, b := range bindings {
		if err := g.SetKeybinding("", b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	split := maxX / 2
	if v, err := g.SetView("torrents", -1, -1, split, maxY-2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		v.Highlight = true
		v.SelBgColor = gocui.ColorGreen
		v.SelFgColor = gocui.ColorBlack
		if _, err = g.SetCurrentView("torrents"); err != nil {
			return err
		}
	}
	if v, err := g.SetView("details", split, -1, maxX, maxY-2); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Wrap = true
	}
	if v, err := g.SetView("help", -1, maxY-2, maxX, maxY); err != nil {
		if err != gocui.ErrUnknownView {
			return err
		}
		v.Frame = false
		fmt.Fprint(v, help)
	}
	return c.draw(g)
}

func (c *Console) draw(g *gocui.Gui) error {
	c.m.Lock()
	defer c.m.Unlock()

	v, err := g.View("torrents")
	if err != nil {
		return err
	}
	v.Clear()
	for _, t := range c.torrents {
		fmt.Fprintf(v, "%-11s %5.1f%% %s\n", t.Status, t.Progress*100, t.Name)
	}
	if err = v.SetCursor(0, c.selected); err != nil {
		return err
	}

	v, err = g.View("details")
	if err != nil {
		return err
	}
	v.Clear()
	switch {
	case c.err != nil:
		fmt.Fprintln(v, "error:", c.err)
	case len(c.torrents) == 0:
		fmt.Fprintln(v, "no torrents")
	default:
		b, err := jsonutil.MarshalCompactPretty(c.torrents[c.selected])
		if err != nil {
			return err
		}
		_, _ = v.Write(b)
	}
	return nil
}

func (c *Console) updateLoop(g *gocui.Gui, stopC chan struct{}) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		c.refresh()
		g.Update(c.draw)
		select {
		case <-ticker.C:
		case <-stopC:
			return
		}
	}
}

func (c *Console) refresh() {
	torrents, err := c.client.ListTorrents()
	c.m.Lock()
	defer c.m.Unlock()
	c.err = err
	if err != nil {
		return
	}
	c.torrents = torrents
	if c.selected >= len(c.torrents) {
		c.selected = len(c.torrents) - 1
	}
	if c.selected < 0 {
		c.selected = 0
	}
}

func (c *Console) cursorDown(g *gocui.Gui, v *gocui.View) error {
	c.m.Lock()
	if c.selected < len(c.torrents)-1 {
		c.selected++
	}
	c.m.Unlock()
	return c.draw(g)
}

func (c *Console) cursorUp(g *gocui.Gui, v *gocui.View) error {
	c.m.Lock()
	if c.selected > 0 {
		c.selected--
	}
	c.m.Unlock()
	return c.draw(g)
}

// command returns a key handler that calls fn with the id of the selected torrent.
func (c *Console) command(fn func(id string) error) func(*gocui.Gui, *gocui.View) error {
	return func(g *gocui.Gui, v *gocui.View) error {
		c.m.Lock()
		if len(c.torrents) == 0 {
			c.m.Unlock()
			return nil
		}
		id := c.torrents[c.selected].ID
		c.m.Unlock()

		err := fn(id)
		if err == nil {
			c.refresh()
		} else {
			c.m.Lock()
			c.err = err
			c.m.Unlock()
		}
		return c.draw(g)
	}
}

func quit(g *gocui.Gui, v *gocui.View) error {
	return gocui.ErrQuit
}
