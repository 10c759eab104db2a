package amp

import "strings"

// Status keys reported by the amplifier firmware
const (
	KeyBand        = "BAND"
	KeyState       = "STATE"
	KeyAntenna     = "ANTENNA"
	KeyPower       = "POWER"
	KeyPTT         = "PTT"
	KeyVSWR        = "VSWR"
	KeyCurrent     = "CURRENT"
	KeyTemperature = "TEMPERATURE"

	// Some firmware releases misspell the temperature key
	KeyTemperatureAlias = "TEMERATURE"
)

// Status is one decoded telemetry line. Every key is optional; a line may
// report only a subset of them.
type Status map[string]string

// Get returns the value for key and whether it was present
func (s Status) Get(key string) (string, bool) {
	v, ok := s[key]
	return v, ok
}

// Temperature returns the temperature field, falling back to the misspelled
// firmware key.
func (s Status) Temperature() (string, bool) {
	if v, ok := s[KeyTemperature]; ok {
		return v, true
	}
	v, ok := s[KeyTemperatureAlias]
	return v, ok
}

// ParseStatus splits a KEY=VALUE,KEY=VALUE line into a Status. Segments
// without both a key and a value are skipped; a repeated key keeps its last
// value.
func ParseStatus(line string) Status {
	status := make(Status)

	for _, segment := range strings.Split(line, ",") {
		key, value, ok := strings.Cut(segment, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		status[key] = value
	}

	return status
}
