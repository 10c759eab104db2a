package keymap

import (
	"sync"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
)

// DefaultModeTimeout is how long a prefix key waits for its second key
const DefaultModeTimeout = 3 * time.Second

// Mode is the interpretation the next key press gets
type Mode int

const (
	ModeNormal Mode = iota
	ModeBand
	ModeAntenna
	ModePower
)

// String returns string representation of the mode
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeBand:
		return "band"
	case ModeAntenna:
		return "antenna"
	case ModePower:
		return "power"
	default:
		return "unknown"
	}
}

// ActionKind says what the caller should do with a key press
type ActionKind int

const (
	ActionNone ActionKind = iota
	ActionEnterMode
	ActionCommand
	ActionReport
	ActionToggleAnnounce
	ActionHelp
	ActionRejected
)

// Action is the outcome of one key press. Speech is what to announce, if
// anything; it is already filtered by the announce setting.
type Action struct {
	Kind    ActionKind
	Mode    Mode
	Command string
	Report  Report
	Speech  string
}

// bandKeys maps band-mode keys to band codes
var bandKeys = map[rune]struct{ code, speech string }{
	'1': {"1.8MHZ", "Band 1.8 megahertz"},
	'2': {"3.5MHZ", "Band 3.5 megahertz"},
	'3': {"5MHZ", "Band 5 megahertz"},
	'4': {"7MHZ", "Band 7 megahertz"},
	'5': {"10MHZ", "Band 10 megahertz"},
	'6': {"14MHZ", "Band 14 megahertz"},
	'7': {"18MHZ", "Band 18 megahertz"},
	'8': {"21MHZ", "Band 21 megahertz"},
	'9': {"24MHZ", "Band 24 megahertz"},
	'0': {"28MHZ", "Band 28 megahertz"},
	'x': {"50MHZ", "Band 50 megahertz"},
	'y': {"70MHZ", "Band 70 megahertz"},
}

var powerKeys = map[rune]struct{ cmd, speech string }{
	'h': {amp.CmdPowerHigh, "High power"},
	'm': {amp.CmdPowerMedium, "Medium power"},
	'l': {amp.CmdPowerLow, "Low power"},
}

// Controller turns single key presses into amplifier commands. The prefix
// keys b, a and p switch the meaning of the next key; the mode falls back
// to normal when the timeout passes without a second key.
type Controller struct {
	mu       sync.Mutex
	mode     Mode
	deadline time.Time
	timeout  time.Duration
	announce bool

	now  func() time.Time
	band func() string
}

// New creates a controller. band returns the band the amplifier is on,
// needed to build antenna commands.
func New(band func() string) *Controller {
	return &Controller{
		timeout:  DefaultModeTimeout,
		announce: true,
		now:      time.Now,
		band:     band,
	}
}

// SetTimeout changes the prefix timeout
func (c *Controller) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Mode returns the current mode after applying any expiry
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expire()
	return c.mode
}

// Announcing reports whether command announcements are on
func (c *Controller) Announcing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.announce
}

// expire is the timeout transition back to normal
func (c *Controller) expire() {
	if c.mode != ModeNormal && !c.now().Before(c.deadline) {
		c.mode = ModeNormal
	}
}

func (c *Controller) enter(mode Mode, speech string) Action {
	c.mode = mode
	c.deadline = c.now().Add(c.timeout)
	return Action{Kind: ActionEnterMode, Mode: mode, Speech: speech}
}

func (c *Controller) command(cmd, speech string) Action {
	a := Action{Kind: ActionCommand, Mode: ModeNormal, Command: cmd}
	if c.announce {
		a.Speech = speech
	}
	return a
}

// Press handles one key
func (c *Controller) Press(key rune) Action {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expire()

	switch c.mode {
	case ModeBand:
		c.mode = ModeNormal
		if b, ok := bandKeys[key]; ok {
			return c.command(amp.BandCommand(b.code), b.speech)
		}
		return Action{Kind: ActionRejected, Mode: ModeNormal}

	case ModeAntenna:
		c.mode = ModeNormal
		if key != 'a' && key != 'b' && key != 'c' {
			return Action{Kind: ActionRejected, Mode: ModeNormal}
		}
		band := ""
		if c.band != nil {
			band = c.band()
		}
		if band == "" {
			return Action{Kind: ActionRejected, Mode: ModeNormal, Speech: "Please select a band first"}
		}
		ant := string(key - 'a' + 'A')
		return c.command(amp.BandAntennaCommand(band, ant), "Antenna "+ant)

	case ModePower:
		c.mode = ModeNormal
		if p, ok := powerKeys[key]; ok {
			return c.command(p.cmd, p.speech)
		}
		return Action{Kind: ActionRejected, Mode: ModeNormal}
	}

	switch key {
	case 'b':
		return c.enter(ModeBand, "Band mode")
	case 'a':
		return c.enter(ModeAntenna, "Antenna mode")
	case 'p':
		return c.enter(ModePower, "Power mode")
	case 'r':
		return c.command(amp.CmdOperate, "Run mode")
	case 's':
		return c.command(amp.CmdStandby, "Standby mode")
	case 'd':
		return c.command(amp.CmdClearTrip, "Trip cleared")
	case 'w':
		return Action{Kind: ActionReport, Report: ReportSWR}
	case 't':
		return Action{Kind: ActionReport, Report: ReportTemperature}
	case 'k':
		return Action{Kind: ActionReport, Report: ReportPeakPower}
	case 'i':
		return Action{Kind: ActionReport, Report: ReportStatus}
	case 'o':
		c.announce = !c.announce
		speech := "Speech disabled"
		if c.announce {
			speech = "Speech enabled"
		}
		return Action{Kind: ActionToggleAnnounce, Speech: speech}
	case '?':
		return Action{Kind: ActionHelp, Speech: "Help displayed"}
	}

	return Action{Kind: ActionNone}
}

// Help lists the key bindings
var Help = []string{
	"b + [1-9,0,x,y]  select band (1.8-70 MHz)",
	"a + [a,b,c]      select antenna A/B/C (requires band set)",
	"p + [h,m,l]      select power high/medium/low",
	"r run   s standby   d clear trip",
	"w SWR   t temperature   k peak power   i status",
	"o toggle announcements   ? this help",
}
