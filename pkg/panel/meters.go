package panel

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Meter full-scale values and alarm thresholds
const (
	MaxPowerWatts  = 1250
	MaxCurrentAmps = 42
	MaxTempCelsius = 80

	SWRFloor   = 1.0
	SWRSpan    = 1.0
	SWRWarning = 1.5
	SWRAlarm   = 1.8

	TempWarning = 60
	TempAlarm   = 65
)

// Level is the colour band a meter reading falls in
type Level string

const (
	LevelNormal  Level = "normal"
	LevelWarning Level = "warning"
	LevelAlarm   Level = "alarm"
)

// Meter is a reading scaled for a bar display
type Meter struct {
	Value   float64 `json:"value"`
	Percent float64 `json:"percent"` // 0..100
	Level   Level   `json:"level"`
	Text    string  `json:"text"`
}

var tempPattern = regexp.MustCompile(`(\d+)DegCW(\d)`)

func percentOf(value, full float64) float64 {
	if value <= 0 || full <= 0 {
		return 0
	}
	return math.Min(value/full*100, 100)
}

// PowerMeter scales forward power in watts
func PowerMeter(watts int) Meter {
	return Meter{
		Value:   float64(watts),
		Percent: percentOf(float64(watts), MaxPowerWatts),
		Level:   LevelNormal,
		Text:    fmt.Sprintf("%d W", watts),
	}
}

// CurrentMeter scales drain current in amps
func CurrentMeter(amps int) Meter {
	return Meter{
		Value:   float64(amps),
		Percent: percentOf(float64(amps), MaxCurrentAmps),
		Level:   LevelNormal,
		Text:    fmt.Sprintf("%d A", amps),
	}
}

// SWRMeter maps 1.0..2.0 onto the bar. The bar is empty unless the
// amplifier is transmitting, since VSWR is only measured with RF present.
func SWRMeter(vswr float64, transmitting bool) Meter {
	m := Meter{Value: vswr, Level: LevelNormal, Text: "-"}
	if !transmitting {
		return m
	}

	m.Percent = percentOf(vswr-SWRFloor, SWRSpan)
	m.Text = fmt.Sprintf("%.2f", vswr)
	switch {
	case vswr <= SWRWarning:
		m.Level = LevelNormal
	case vswr <= SWRAlarm:
		m.Level = LevelWarning
	default:
		m.Level = LevelAlarm
	}
	return m
}

// TempMeter scales heatsink temperature in degrees Celsius
func TempMeter(celsius int) Meter {
	m := Meter{
		Value:   float64(celsius),
		Percent: percentOf(float64(celsius), MaxTempCelsius),
		Text:    fmt.Sprintf("%d °C", celsius),
	}
	switch {
	case celsius <= TempWarning:
		m.Level = LevelNormal
	case celsius <= TempAlarm:
		m.Level = LevelWarning
	default:
		m.Level = LevelAlarm
	}
	return m
}

// ParsePair reads "850W:900W" style current:peak readings. unit is the
// suffix to strip from each half.
func ParsePair(value, unit string) (current, peak int, ok bool) {
	cur, pk, found := strings.Cut(value, ":")

	current, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(cur), unit))
	if err != nil {
		return 0, 0, false
	}
	if !found {
		return current, current, true
	}

	peak, err = strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(pk), unit))
	if err != nil {
		peak = current
	}
	return current, peak, true
}

// ParseTemperature reads "41DegCW0" style readings
func ParseTemperature(value string) (int, bool) {
	m := tempPattern.FindStringSubmatch(value)
	if m == nil {
		return 0, false
	}
	celsius, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return celsius, true
}

// ParseVSWR reads a VSWR value like "1.35"
func ParseVSWR(value string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || v < SWRFloor {
		return 0, false
	}
	return v, true
}
