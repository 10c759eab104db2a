package panel

import (
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/dougsko/ampd/pkg/amp"
)

const defaultTripCause = "Protection circuit activated"

// Meters groups the four bar displays
type Meters struct {
	Power       Meter `json:"power"`
	Current     Meter `json:"current"`
	SWR         Meter `json:"swr"`
	Temperature Meter `json:"temperature"`
}

// Snapshot is the front panel as the operator sees it
type Snapshot struct {
	Connected bool       `json:"connected"`
	Error     string     `json:"error,omitempty"`
	Banner    BannerInfo `json:"banner"`

	Band       string `json:"band,omitempty"`
	BandRange  string `json:"band_range,omitempty"`
	Antenna    string `json:"antenna,omitempty"`
	State      string `json:"state,omitempty"`
	Operating  bool   `json:"operating"`
	PTT        string `json:"ptt"`
	PowerLevel string `json:"power_level,omitempty"` // PH, PM or PL

	Tripped   bool   `json:"tripped"`
	TripCause string `json:"trip_cause,omitempty"`

	PowerWatts  int     `json:"power_watts"`
	PeakWatts   int     `json:"peak_watts"`
	CurrentAmps int     `json:"current_amps"`
	PeakAmps    int     `json:"peak_amps"`
	VSWR        float64 `json:"vswr"`
	TempCelsius int     `json:"temp_celsius"`

	Meters Meters `json:"meters"`

	// Raw holds every status key seen since connecting, latest value each
	Raw     map[string]string `json:"raw"`
	Updated time.Time         `json:"updated"`
}

// Transmitting reports whether the amplifier is keyed
func (s Snapshot) Transmitting() bool {
	return s.PTT == "TX"
}

// Panel accumulates session events into a Snapshot. The session reports
// each status line on its own; remembering earlier values is done here.
type Panel struct {
	mu   sync.RWMutex
	snap Snapshot
}

// New returns a panel in the disconnected state
func New() *Panel {
	p := &Panel{}
	p.reset()
	return p
}

// Snapshot returns a copy of the current panel
func (p *Panel) Snapshot() Snapshot {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := p.snap
	snap.Raw = make(map[string]string, len(p.snap.Raw))
	for k, v := range p.snap.Raw {
		snap.Raw[k] = v
	}
	return snap
}

// HandleEvent applies one session event
func (p *Panel) HandleEvent(ev amp.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch ev.Type {
	case amp.EventConnection:
		if ev.Connection.Connected {
			p.snap.Connected = true
			p.snap.Error = ""
		} else {
			p.reset()
			p.snap.Error = ev.Connection.Error
		}
	case amp.EventBanner:
		p.snap.Banner = ParseBanner(ev.Line)
	case amp.EventStatus:
		p.applyStatus(ev.Status)
	case amp.EventTrip:
		p.snap.Tripped = true
		p.snap.TripCause = ev.Cause
		if p.snap.TripCause == "" {
			p.snap.TripCause = defaultTripCause
		}
	case amp.EventPTT:
		p.setPTT(ev.PTT)
	case amp.EventResponse:
		if level := powerLevelIn(ev.Line); level != "" {
			p.snap.PowerLevel = level
		}
	default:
		return nil
	}

	p.snap.Updated = ev.Time
	return nil
}

// ClearTrip hides the trip indicator after the operator acknowledged it
func (p *Panel) ClearTrip() {
	p.mu.Lock()
	p.snap.Tripped = false
	p.snap.TripCause = ""
	p.mu.Unlock()
}

func (p *Panel) reset() {
	banner := p.snap.Banner
	p.snap = Snapshot{
		Banner: banner,
		PTT:    "RX",
		VSWR:   SWRFloor,
		Raw:    make(map[string]string),
		Meters: Meters{
			Power:       PowerMeter(0),
			Current:     CurrentMeter(0),
			SWR:         SWRMeter(SWRFloor, false),
			Temperature: TempMeter(0),
		},
	}
}

func (p *Panel) applyStatus(status amp.Status) {
	for k, v := range status {
		p.snap.Raw[k] = v
	}

	if state, ok := status.Get(amp.KeyState); ok {
		p.snap.State = state
		switch state {
		case "RX", "TX":
			p.snap.Operating = true
		case "SB":
			p.snap.Operating = false
		}
	}

	if band, ok := status.Get(amp.KeyBand); ok {
		p.snap.Band = strings.ToUpper(band)
		p.snap.BandRange = ""
		if b, found := LookupBand(band); found {
			p.snap.BandRange = b.Range
		}
	}

	if ant, ok := status.Get(amp.KeyAntenna); ok {
		p.snap.Antenna = ant
	}

	if power, ok := status.Get(amp.KeyPower); ok {
		if cur, peak, ok := ParsePair(power, "W"); ok {
			p.snap.PowerWatts, p.snap.PeakWatts = cur, peak
			p.snap.Meters.Power = PowerMeter(cur)
		}
	}

	// PTT before VSWR; the SWR bar depends on it
	if ptt, ok := status.Get(amp.KeyPTT); ok {
		p.setPTT(ptt)
	}
	if vswr, ok := status.Get(amp.KeyVSWR); ok {
		if v, ok := ParseVSWR(vswr); ok {
			p.snap.VSWR = v
		}
	}
	p.snap.Meters.SWR = SWRMeter(p.snap.VSWR, p.snap.Transmitting())

	if current, ok := status.Get(amp.KeyCurrent); ok {
		if cur, peak, ok := ParsePair(current, "A"); ok {
			p.snap.CurrentAmps, p.snap.PeakAmps = cur, peak
			p.snap.Meters.Current = CurrentMeter(cur)
		}
	}

	if temp, ok := status.Temperature(); ok {
		if celsius, ok := ParseTemperature(temp); ok {
			p.snap.TempCelsius = celsius
			p.snap.Meters.Temperature = TempMeter(celsius)
		}
	}
}

func (p *Panel) setPTT(ptt string) {
	if ptt == "TX" {
		p.snap.PTT = "TX"
	} else {
		p.snap.PTT = "RX"
	}
	p.snap.Meters.SWR = SWRMeter(p.snap.VSWR, p.snap.Transmitting())
}

// powerLevelIn finds a PH, PM or PL token in a device response
func powerLevelIn(line string) string {
	tokens := strings.FieldsFunc(strings.ToUpper(line), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		switch tok {
		case amp.CmdPowerHigh, amp.CmdPowerMedium, amp.CmdPowerLow:
			return tok
		}
	}
	return ""
}
