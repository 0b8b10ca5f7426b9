package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"sync"

	"gioui.org/app"
	"gioui.org/font"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"github.com/izzyreal/bbdash/internal/queueview"
	"github.com/izzyreal/bbdash/internal/version"
	"github.com/izzyreal/bbdash/internal/watchview"
)

type (
	C = layout.Context
	D = layout.Dimensions
)

const defaultGRPCAddr = "127.0.0.1:8113"

// board is the desktop dashboard. Watchers write into state from their own
// goroutine; frames read it under mu.
type board struct {
	theme  *material.Theme
	ops    op.Ops
	window *app.Window

	addr       widget.Editor
	connect    widget.Clickable
	disconnect widget.Clickable
	list       widget.List

	mu     sync.Mutex
	state  watchview.State
	gen    int
	cancel context.CancelFunc
}

func main() {
	go func() {
		w := new(app.Window)
		w.Option(
			app.Title("bbdash"),
			app.Size(unit.Dp(860), unit.Dp(640)),
		)
		if err := run(w); err != nil {
			log.Printf("bbdash-gui: %v", err)
			os.Exit(1)
		}
		os.Exit(0)
	}()
	app.Main()
}

func run(w *app.Window) error {
	b := &board{
		theme:  material.NewTheme(),
		window: w,
		state:  watchview.NewState(),
	}
	b.list.Axis = layout.Vertical
	b.addr.SingleLine = true
	b.addr.Submit = true
	b.addr.SetText(serverAddrFromEnv())
	b.watch()

	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			b.stop()
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&b.ops, e)
			b.handleInput(gtx)
			b.layout(gtx)
			e.Frame(gtx.Ops)
		}
	}
}

func serverAddrFromEnv() string {
	if v := normalizeServerAddr(os.Getenv("BBDASH_GUI_SERVER_ADDR")); v != "" {
		return v
	}
	return defaultGRPCAddr
}

// normalizeServerAddr accepts a bare host:port or a URL pasted from the
// browser and returns the host:port part.
func normalizeServerAddr(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.Contains(raw, "://") {
		if u, err := url.Parse(raw); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return raw
}

func (b *board) handleInput(gtx C) {
	for {
		e, ok := b.addr.Update(gtx)
		if !ok {
			break
		}
		if _, submitted := e.(widget.SubmitEvent); submitted {
			b.watch()
		}
	}
	for b.connect.Clicked(gtx) {
		b.watch()
	}
	for b.disconnect.Clicked(gtx) {
		b.stop()
	}
}

// watch (re)starts the dashboard stream for the address in the editor.
func (b *board) watch() {
	addr := normalizeServerAddr(b.addr.Text())
	b.addr.SetText(addr)

	b.mu.Lock()
	if b.cancel != nil {
		b.cancel()
	}
	b.gen++
	gen := b.gen
	if addr == "" {
		b.cancel = nil
		b.state.Apply(watchview.Update{Phase: watchview.PhaseDisconnected, Status: "Enter a gRPC server address"})
		b.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.mu.Unlock()

	go watchview.NewWatcher(addr).Run(ctx, func(u watchview.Update) {
		b.mu.Lock()
		// A replaced watcher may still report its shutdown.
		if gen == b.gen {
			b.state.Apply(u)
		}
		b.mu.Unlock()
		b.window.Invalidate()
	})
}

func (b *board) stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	b.gen++
	b.state.Apply(watchview.Update{Phase: watchview.PhaseDisconnected, Status: "Disconnected"})
}

func (b *board) snapshot() watchview.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *board) layout(gtx C) D {
	s := b.snapshot()
	title := strings.TrimSpace(s.Snapshot.Dashboard.Title)
	if title == "" {
		title = "bbdash"
	}
	return layout.UniformInset(unit.Dp(16)).Layout(gtx, func(gtx C) D {
		return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
			layout.Rigid(material.H5(b.theme, title).Layout),
			layout.Rigid(layout.Spacer{Height: unit.Dp(14)}.Layout),
			layout.Rigid(b.layoutAddressBar),
			layout.Rigid(layout.Spacer{Height: unit.Dp(12)}.Layout),
			layout.Rigid(func(gtx C) D { return b.layoutConnection(gtx, s) }),
			layout.Rigid(layout.Spacer{Height: unit.Dp(12)}.Layout),
			layout.Flexed(1, func(gtx C) D { return b.layoutRows(gtx, s.Rows) }),
		)
	})
}

func (b *board) layoutAddressBar(gtx C) D {
	return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
		layout.Flexed(1, material.Editor(b.theme, &b.addr, defaultGRPCAddr).Layout),
		layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
		layout.Rigid(material.Button(b.theme, &b.connect, "Connect").Layout),
		layout.Rigid(layout.Spacer{Width: unit.Dp(8)}.Layout),
		layout.Rigid(material.Button(b.theme, &b.disconnect, "Disconnect").Layout),
	)
}

func (b *board) layoutConnection(gtx C, s watchview.State) D {
	children := []layout.FlexChild{
		layout.Rigid(material.Body1(b.theme, fmt.Sprintf("%s: %s", s.Phase, s.Status)).Layout),
	}
	if snap := s.Snapshot; snap.ServerName != "" {
		line := fmt.Sprintf("%s %s on %s, update #%d", snap.ServerName, snap.ServerVer, snap.Hostname, snap.Seq)
		children = append(children, layout.Rigid(material.Body2(b.theme, line).Layout))
		if !snap.Compatible {
			warn := material.Body2(b.theme, fmt.Sprintf("client %s cannot reliably read server %s", version.Current(), snap.ServerVer))
			warn.Color = watchview.StatusColor(queueview.StatusBad)
			children = append(children, layout.Rigid(warn.Layout))
		}
	}
	if s.LastError != "" {
		children = append(children, layout.Rigid(material.Caption(b.theme, "last error: "+s.LastError).Layout))
	}
	return layout.Flex{Axis: layout.Vertical}.Layout(gtx, children...)
}

func (b *board) layoutRows(gtx C, rows []watchview.Row) D {
	if len(rows) == 0 {
		return material.Body2(b.theme, "Waiting for queue status").Layout(gtx)
	}
	return material.List(b.theme, &b.list).Layout(gtx, len(rows), func(gtx C, i int) D {
		r := rows[i]
		if !r.Header {
			l := material.Body2(b.theme, r.Text)
			l.Color = watchview.StatusColor(r.Status)
			return l.Layout(gtx)
		}
		heading := material.Subtitle1(b.theme, r.Text)
		heading.Font.Weight = font.Bold
		return layout.Inset{Top: unit.Dp(8)}.Layout(gtx, func(gtx C) D {
			return layout.Flex{Alignment: layout.Baseline}.Layout(gtx,
				layout.Rigid(heading.Layout),
				layout.Rigid(func(gtx C) D {
					if r.Link == "" {
						return D{}
					}
					return layout.Inset{Left: unit.Dp(12)}.Layout(gtx, material.Caption(b.theme, "performance: "+r.Link).Layout)
				}),
			)
		})
	})
}
