package main

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/keymap"
	"github.com/dougsko/ampd/pkg/logging"
	"github.com/dougsko/ampd/pkg/panel"
	"github.com/dougsko/ampd/pkg/storage"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const (
	logPaneLines = 500
	tickInterval = time.Second
)

var (
	uiBorderColor = tcell.ColorGray
	uiTitleColor  = tcell.ColorOrange
)

// link is the part of the session the monitor drives
type link interface {
	Connect(host string, port int, password string) error
	Disconnect() error
	Send(cmd string) error
	Status() amp.SessionStatus
}

// Monitor is the terminal front panel
type Monitor struct {
	app    *tview.Application
	header *tview.TextView
	front  *tview.TextView
	logv   *tview.TextView
	status *tview.TextView

	session link
	panel   *panel.Panel
	log     *storage.LogStore
	keys    *keymap.Controller

	host     string
	port     int
	password string

	pending atomic.Bool
	done    chan struct{}
}

func newMonitor(session link, p *panel.Panel, log *storage.LogStore, host string, port int, password string) *Monitor {
	m := &Monitor{
		app:      tview.NewApplication(),
		header:   tview.NewTextView().SetDynamicColors(true).SetWrap(false),
		front:    newBoxedTextView("Amplifier"),
		logv:     newBoxedTextView("Log"),
		status:   tview.NewTextView().SetDynamicColors(true).SetWrap(false),
		session:  session,
		panel:    p,
		log:      log,
		host:     host,
		port:     port,
		password: password,
		done:     make(chan struct{}),
	}
	m.keys = keymap.New(func() string { return m.panel.Snapshot().Band })
	m.logv.SetScrollable(true)
	m.setStatus("Press ? for help, F2 connect, F3 disconnect, Ctrl-C quit")

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(m.header, 1, 0, false).
		AddItem(m.front, 12, 0, false).
		AddItem(m.logv, 0, 1, true).
		AddItem(m.status, 1, 0, false)
	m.app.SetRoot(root, true)
	m.app.SetInputCapture(m.capture)

	return m
}

func newBoxedTextView(title string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	tv.SetBorder(true)
	tv.SetTitle(" " + title + " ").SetTitleAlign(tview.AlignLeft)
	tv.SetBorderColor(uiBorderColor)
	tv.SetTitleColor(uiTitleColor)
	return tv
}

// Run connects when a target is known and blocks until the UI exits
func (m *Monitor) Run() error {
	defer close(m.done)

	if m.host != "" {
		if err := m.session.Connect(m.host, m.port, m.password); err != nil {
			m.setStatus("[red]" + tview.Escape(err.Error()) + "[-]")
		}
	}

	go m.tick()
	m.render()
	return m.app.Run()
}

// Stop ends the UI
func (m *Monitor) Stop() {
	m.app.Stop()
}

// HandleEvent redraws on session events. Renders coalesce so event
// delivery never waits on the UI.
func (m *Monitor) HandleEvent(ev amp.Event) error {
	if ev.Type == amp.EventTrip {
		m.setStatus("[red]TRIP: " + tview.Escape(ev.Cause) + "[-]")
	}
	m.requestRender()
	return nil
}

func (m *Monitor) requestRender() {
	if !m.pending.CompareAndSwap(false, true) {
		return
	}
	m.app.QueueUpdateDraw(func() {
		m.pending.Store(false)
		m.render()
	})
}

// tick keeps relative times in the header current
func (m *Monitor) tick() {
	t := time.NewTicker(tickInterval)
	defer t.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-t.C:
			m.requestRender()
		}
	}
}

func (m *Monitor) render() {
	var stats *storage.LogStats
	if s, err := m.log.Stats(); err == nil {
		stats = s
	}

	m.header.SetText(renderHeader(m.target(), m.session.Status(), stats, time.Now()))
	m.front.SetText(renderPanel(m.panel.Snapshot()))

	records, err := m.log.Recent(logPaneLines)
	if err != nil {
		logging.Warn("ampmon", "log query failed", map[string]interface{}{"error": err.Error()})
		return
	}
	m.logv.SetText(renderLog(records))
	m.logv.ScrollToEnd()
}

func (m *Monitor) target() string {
	if m.host == "" {
		return "[gray]no amplifier configured[-]"
	}
	return fmt.Sprintf("%s:%d", m.host, m.port)
}

func (m *Monitor) setStatus(text string) {
	m.status.SetText(text)
}

func (m *Monitor) capture(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlC, tcell.KeyEsc:
		m.Stop()
		return nil
	case tcell.KeyF2:
		m.connect()
		return nil
	case tcell.KeyF3:
		if err := m.session.Disconnect(); err != nil {
			m.setStatus("[red]" + tview.Escape(err.Error()) + "[-]")
		} else {
			m.setStatus("Disconnected")
		}
		return nil
	case tcell.KeyRune:
		m.press(event.Rune())
		return nil
	}
	// Arrows and paging scroll the log
	return event
}

func (m *Monitor) connect() {
	if m.host == "" {
		m.setStatus("[red]No amplifier host configured[-]")
		return
	}
	if err := m.session.Connect(m.host, m.port, m.password); err != nil {
		m.setStatus("[red]" + tview.Escape(err.Error()) + "[-]")
		return
	}
	m.setStatus("Connecting to " + m.target())
}

// press feeds one key to the controller and carries out the action
func (m *Monitor) press(key rune) {
	action := m.keys.Press(key)

	switch action.Kind {
	case keymap.ActionEnterMode:
		m.setStatus(strings.ToUpper(action.Mode.String()) + " mode: " + modeHint(action.Mode))

	case keymap.ActionCommand:
		err := m.session.Send(action.Command)
		switch {
		case errors.Is(err, amp.ErrNotConnected):
			m.setStatus("[red]Not connected[-]")
		case err != nil:
			m.setStatus("[red]" + tview.Escape(err.Error()) + "[-]")
		default:
			if action.Command == amp.CmdClearTrip {
				m.panel.ClearTrip()
			}
			m.setStatus(orText(action.Speech, "Sent "+action.Command))
		}

	case keymap.ActionReport:
		m.setStatus(action.Report.Describe(m.panel.Snapshot()))

	case keymap.ActionToggleAnnounce:
		m.setStatus(action.Speech)

	case keymap.ActionHelp:
		m.setStatus(strings.Join(keymap.Help, "  |  "))

	case keymap.ActionRejected:
		m.setStatus(orText(action.Speech, "Key not valid here"))
	}

	// Already on the UI goroutine
	m.render()
}

func modeHint(mode keymap.Mode) string {
	switch mode {
	case keymap.ModeBand:
		return "1-9, 0, x, y"
	case keymap.ModeAntenna:
		return "a, b, c"
	case keymap.ModePower:
		return "h, m, l"
	}
	return ""
}

func orText(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
