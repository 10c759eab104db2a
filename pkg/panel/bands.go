package panel

import "strings"

// Band is one band the amplifier can be switched to
type Band struct {
	Code  string `json:"code"`  // as sent after "B", e.g. 14MHZ
	Label string `json:"label"` // e.g. 20m
	Range string `json:"range"`
}

// Bands lists the supported bands in keypad order. 70MHZ exists on the
// DX1200 only; the HF-1K answers BAND=??? when asked for it.
var Bands = []Band{
	{Code: "1.8MHZ", Label: "160m", Range: "1.800 - 2.000 MHz"},
	{Code: "3.5MHZ", Label: "80m", Range: "3.500 - 4.000 MHz"},
	{Code: "5MHZ", Label: "60m", Range: "5.351 - 5.367 MHz"},
	{Code: "7MHZ", Label: "40m", Range: "7.000 - 7.300 MHz"},
	{Code: "10MHZ", Label: "30m", Range: "10.100 - 10.150 MHz"},
	{Code: "14MHZ", Label: "20m", Range: "14.000 - 14.350 MHz"},
	{Code: "18MHZ", Label: "17m", Range: "18.068 - 18.168 MHz"},
	{Code: "21MHZ", Label: "15m", Range: "21.000 - 21.450 MHz"},
	{Code: "24MHZ", Label: "12m", Range: "24.890 - 24.990 MHz"},
	{Code: "28MHZ", Label: "10m", Range: "28.000 - 29.700 MHz"},
	{Code: "50MHZ", Label: "6m", Range: "50.000 - 54.000 MHz"},
	{Code: "70MHZ", Label: "4m", Range: "70.000 - 70.500 MHz"},
}

// Antennas are the selectable antenna ports
var Antennas = []string{"A", "B", "C"}

// LookupBand finds a band by code, case-insensitively
func LookupBand(code string) (Band, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, b := range Bands {
		if b.Code == code {
			return b, true
		}
	}
	return Band{}, false
}

// ValidAntenna reports whether ant names an antenna port
func ValidAntenna(ant string) bool {
	ant = strings.ToUpper(strings.TrimSpace(ant))
	for _, a := range Antennas {
		if a == ant {
			return true
		}
	}
	return false
}
