package amp

import (
	"fmt"
	"strings"
)

// LineTerminator ends every outbound command
const LineTerminator = "\n"

// Device command tokens
const (
	CmdTelemetryOn = "S1"
	CmdProbe       = "S"
	CmdOperate     = "R1"
	CmdStandby     = "R0"
	CmdClearTrip   = "T"
	CmdQueryPower  = "P"
	CmdPowerHigh   = "PH"
	CmdPowerMedium = "PM"
	CmdPowerLow    = "PL"
)

// EncodeCommand frames a command token for the wire. Only emptiness is
// checked; the device defines what a token means.
func EncodeCommand(cmd string) ([]byte, error) {
	if strings.TrimSpace(cmd) == "" {
		return nil, ErrEmptyCommand
	}
	return []byte(cmd + LineTerminator), nil
}

// BandCommand selects a band, e.g. "14MHZ" -> "B14MHZ"
func BandCommand(band string) string {
	return "B" + strings.ToUpper(strings.TrimSpace(band))
}

// BandAntennaCommand selects a band and antenna, e.g. "B14MHZ,A"
func BandAntennaCommand(band, antenna string) string {
	return BandCommand(band) + "," + strings.ToUpper(strings.TrimSpace(antenna))
}

// PowerCommand maps a power level name to its token
func PowerCommand(level string) (string, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "H", "HIGH", CmdPowerHigh:
		return CmdPowerHigh, nil
	case "M", "MED", "MEDIUM", CmdPowerMedium:
		return CmdPowerMedium, nil
	case "L", "LOW", CmdPowerLow:
		return CmdPowerLow, nil
	default:
		return "", fmt.Errorf("unknown power level %q", level)
	}
}
