package main

import (
	"strings"
	"testing"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/panel"
	"github.com/dougsko/ampd/pkg/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLink struct {
	connected bool
	sent      []string
	connects  int
}

func (f *fakeLink) Connect(host string, port int, password string) error {
	f.connects++
	return nil
}

func (f *fakeLink) Disconnect() error {
	f.connected = false
	return nil
}

func (f *fakeLink) Send(cmd string) error {
	if !f.connected {
		return amp.ErrNotConnected
	}
	f.sent = append(f.sent, cmd)
	return nil
}

func (f *fakeLink) Status() amp.SessionStatus {
	return amp.SessionStatus{Connected: f.connected}
}

func newTestMonitor(t *testing.T) (*Monitor, *fakeLink, *panel.Panel) {
	t.Helper()
	store, err := storage.NewLogStore(logPaneLines)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	link := &fakeLink{connected: true}
	p := panel.New()
	p.HandleEvent(amp.Event{Type: amp.EventConnection, Connection: &amp.ConnectionState{Connected: true}})
	return newMonitor(link, p, store, "10.0.0.5", 9100, "pw"), link, p
}

func statusText(m *Monitor) string {
	return m.status.GetText(true)
}

func TestMonitorBandAndAntennaKeys(t *testing.T) {
	m, link, p := newTestMonitor(t)

	m.press('a')
	m.press('b')
	assert.Equal(t, "Please select a band first", statusText(m))
	assert.Empty(t, link.sent)

	m.press('b')
	assert.Contains(t, statusText(m), "BAND mode")
	m.press('6')
	require.Equal(t, []string{"B14MHZ"}, link.sent)
	assert.Equal(t, "Band 14 megahertz", statusText(m))

	p.HandleEvent(amp.Event{Type: amp.EventStatus, Status: amp.Status{amp.KeyBand: "14MHZ"}})

	m.press('a')
	m.press('c')
	assert.Equal(t, "B14MHZ,C", link.sent[len(link.sent)-1])
}

func TestMonitorDirectCommands(t *testing.T) {
	m, link, p := newTestMonitor(t)

	p.HandleEvent(amp.Event{Type: amp.EventTrip, Cause: "Overtemp"})
	require.True(t, p.Snapshot().Tripped)

	m.press('d')
	assert.Equal(t, []string{"T"}, link.sent)
	assert.False(t, p.Snapshot().Tripped)

	m.press('r')
	m.press('s')
	assert.Equal(t, []string{"T", "R1", "R0"}, link.sent)

	link.connected = false
	m.press('r')
	assert.Equal(t, "Not connected", statusText(m))
}

func TestMonitorReportsAndHelp(t *testing.T) {
	m, _, _ := newTestMonitor(t)

	m.press('w')
	assert.Equal(t, "SWR not available in receive", statusText(m))

	m.press('o')
	assert.Equal(t, "Speech disabled", statusText(m))

	m.press('?')
	assert.Contains(t, statusText(m), "select band")
}

func TestRenderPanel(t *testing.T) {
	assert.Contains(t, renderPanel(panel.Snapshot{}), "Not connected")

	snap := panel.Snapshot{
		Connected: true,
		Band:      "7MHZ",
		Antenna:   "B",
		Operating: true,
		PTT:       "TX",
		Tripped:   true,
		TripCause: "High SWR",
		Meters: panel.Meters{
			Power: panel.PowerMeter(625),
			SWR:   panel.SWRMeter(1.9, true),
		},
	}
	out := renderPanel(snap)
	assert.Contains(t, out, "Band 7MHZ  Antenna B")
	assert.Contains(t, out, "OPERATE")
	assert.Contains(t, out, "625 W")
	assert.Contains(t, out, "TRIP")
	assert.Contains(t, out, "High SWR")
}

func TestMeterBar(t *testing.T) {
	bar := meterBar(panel.Meter{Percent: 50, Level: panel.LevelAlarm}, 10)
	assert.True(t, strings.HasPrefix(bar, "[red]"))
	assert.Equal(t, 5, strings.Count(bar, "█"))
	assert.Equal(t, 5, strings.Count(bar, "░"))

	full := meterBar(panel.Meter{Percent: 150}, 10)
	assert.Equal(t, 10, strings.Count(full, "█"))
}

func TestRenderHeaderAndLog(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	header := renderHeader("amp:9100", amp.SessionStatus{
		Connected:    true,
		State:        amp.StateActive,
		LastActivity: now.Add(-2 * time.Second),
	}, &storage.LogStats{Stored: 1200, Total: 3400}, now)
	assert.Contains(t, header, "amp:9100")
	assert.Contains(t, header, "2 seconds ago")
	assert.Contains(t, header, "1,200/3,400")

	out := renderLog([]storage.LogRecord{{Time: now, Level: amp.LogTX, Message: "R1 [x]"}})
	assert.Contains(t, out, "TX")
	assert.Contains(t, out, "12:00:00")
	assert.Contains(t, out, "R1 [x[]")
}
