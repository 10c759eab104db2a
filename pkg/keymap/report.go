package keymap

import (
	"fmt"
	"strings"

	"github.com/dougsko/ampd/pkg/panel"
)

// Report is a spoken or printed readout the operator can ask for
type Report int

const (
	ReportSWR Report = iota
	ReportTemperature
	ReportPeakPower
	ReportStatus
)

// Describe renders the report from the current panel
func (r Report) Describe(snap panel.Snapshot) string {
	if !snap.Connected {
		return "Not connected"
	}

	switch r {
	case ReportSWR:
		if !snap.Transmitting() {
			return "SWR not available in receive"
		}
		return fmt.Sprintf("SWR %.1f", snap.VSWR)
	case ReportTemperature:
		return fmt.Sprintf("Temperature %d degrees", snap.TempCelsius)
	case ReportPeakPower:
		return fmt.Sprintf("Peak power %d watts", snap.PeakWatts)
	case ReportStatus:
		var parts []string
		if snap.Band != "" {
			parts = append(parts, "Band "+strings.TrimSuffix(snap.Band, "MHZ")+" megahertz")
		}
		if snap.Antenna != "" {
			parts = append(parts, "antenna "+snap.Antenna)
		}
		if snap.Operating {
			parts = append(parts, "operate")
		} else {
			parts = append(parts, "standby")
		}
		if snap.Tripped {
			parts = append(parts, "tripped "+snap.TripCause)
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
