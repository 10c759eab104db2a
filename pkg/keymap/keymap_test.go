package keymap

import (
	"testing"
	"time"

	"github.com/dougsko/ampd/pkg/panel"
	"github.com/stretchr/testify/assert"
)

type manualClock struct{ t time.Time }

func (m *manualClock) now() time.Time          { return m.t }
func (m *manualClock) advance(d time.Duration) { m.t = m.t.Add(d) }

func newTestController(band string) (*Controller, *manualClock) {
	clk := &manualClock{t: time.Unix(1700000000, 0)}
	c := New(func() string { return band })
	c.now = clk.now
	return c, clk
}

func TestBandMode(t *testing.T) {
	tests := map[rune]string{
		'1': "B1.8MHZ", '2': "B3.5MHZ", '3': "B5MHZ", '4': "B7MHZ",
		'5': "B10MHZ", '6': "B14MHZ", '7': "B18MHZ", '8': "B21MHZ",
		'9': "B24MHZ", '0': "B28MHZ", 'x': "B50MHZ", 'y': "B70MHZ",
	}

	for key, want := range tests {
		c, _ := newTestController("")
		assert.Equal(t, ActionEnterMode, c.Press('b').Kind)
		a := c.Press(key)
		assert.Equal(t, ActionCommand, a.Kind)
		assert.Equal(t, want, a.Command)
		assert.Equal(t, ModeNormal, c.Mode())
	}
}

func TestModeTimeout(t *testing.T) {
	c, clk := newTestController("14MHZ")

	c.Press('b')
	assert.Equal(t, ModeBand, c.Mode())

	clk.advance(2999 * time.Millisecond)
	assert.Equal(t, ModeBand, c.Mode())

	clk.advance(time.Millisecond)
	assert.Equal(t, ModeNormal, c.Mode())

	// '6' is not bound in normal mode once band mode expired
	assert.Equal(t, ActionNone, c.Press('6').Kind)
}

func TestAntennaMode(t *testing.T) {
	t.Run("With band", func(t *testing.T) {
		c, _ := newTestController("14MHZ")
		c.Press('a')
		a := c.Press('b')
		assert.Equal(t, "B14MHZ,B", a.Command)
		assert.Equal(t, "Antenna B", a.Speech)
	})

	t.Run("Without band", func(t *testing.T) {
		c, _ := newTestController("")
		c.Press('a')
		a := c.Press('a')
		assert.Equal(t, ActionRejected, a.Kind)
		assert.Empty(t, a.Command)
		assert.Equal(t, "Please select a band first", a.Speech)
	})

	t.Run("Invalid key", func(t *testing.T) {
		c, _ := newTestController("14MHZ")
		c.Press('a')
		assert.Equal(t, ActionRejected, c.Press('z').Kind)
		assert.Equal(t, ModeNormal, c.Mode())
	})
}

func TestPowerAndDirectKeys(t *testing.T) {
	c, _ := newTestController("")

	c.Press('p')
	assert.Equal(t, "PL", c.Press('l').Command)

	assert.Equal(t, "R1", c.Press('r').Command)
	assert.Equal(t, "R0", c.Press('s').Command)
	assert.Equal(t, "T", c.Press('d').Command)

	assert.Equal(t, ReportSWR, c.Press('w').Report)
	assert.Equal(t, ReportTemperature, c.Press('t').Report)
	assert.Equal(t, ReportPeakPower, c.Press('k').Report)
	assert.Equal(t, ReportStatus, c.Press('i').Report)
	assert.Equal(t, ActionHelp, c.Press('?').Kind)
}

func TestAnnounceToggle(t *testing.T) {
	c, _ := newTestController("")

	assert.Equal(t, "Run mode", c.Press('r').Speech)

	a := c.Press('o')
	assert.Equal(t, ActionToggleAnnounce, a.Kind)
	assert.Equal(t, "Speech disabled", a.Speech)
	assert.False(t, c.Announcing())

	assert.Empty(t, c.Press('r').Speech)
	// Mode prompts are always spoken
	assert.Equal(t, "Band mode", c.Press('b').Speech)
}

func TestReportDescribe(t *testing.T) {
	snap := panel.Snapshot{
		Connected:   true,
		Band:        "14MHZ",
		Antenna:     "A",
		Operating:   true,
		PTT:         "TX",
		VSWR:        1.34,
		TempCelsius: 45,
		PeakWatts:   1100,
	}

	assert.Equal(t, "SWR 1.3", ReportSWR.Describe(snap))
	assert.Equal(t, "Temperature 45 degrees", ReportTemperature.Describe(snap))
	assert.Equal(t, "Peak power 1100 watts", ReportPeakPower.Describe(snap))
	assert.Equal(t, "Band 14 megahertz, antenna A, operate", ReportStatus.Describe(snap))

	snap.PTT = "RX"
	assert.Equal(t, "SWR not available in receive", ReportSWR.Describe(snap))

	assert.Equal(t, "Not connected", ReportStatus.Describe(panel.Snapshot{}))
}
