package amp

import "strings"

// Protocol markers
const (
	PasswordPrompt = "password>"
	BannerProduct  = "DxShop Gemini"
	BannerVersion  = "VERSION"

	tripPrefix = "TRIP="
	pttPrefix  = "PTT="
)

// LineKind identifies what an inbound line means
type LineKind int

const (
	LineResponse LineKind = iota
	LinePasswordPrompt
	LineBanner
	LineStatus
	LineTrip
	LinePTT
)

// String returns string representation of the line kind
func (k LineKind) String() string {
	switch k {
	case LinePasswordPrompt:
		return "password-prompt"
	case LineBanner:
		return "banner"
	case LineStatus:
		return "status"
	case LineTrip:
		return "trip"
	case LinePTT:
		return "ptt"
	case LineResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Classification is the result of classifying one line
type Classification struct {
	Kind LineKind
	Line string

	// Status is set for LineStatus
	Status Status

	// Payload is the trip cause or PTT state with the prefix stripped
	Payload string
}

// Classify maps a trimmed, non-empty line to exactly one kind. The checks
// run in a fixed order and the first match wins: the prompt must be answered
// before anything is parsed, and banner lines also look like status lines.
func Classify(line string, telemetryActive bool) Classification {
	c := Classification{Kind: LineResponse, Line: line}

	switch {
	case strings.HasPrefix(line, PasswordPrompt):
		c.Kind = LinePasswordPrompt
	case !telemetryActive && IsBanner(line):
		c.Kind = LineBanner
	case strings.Contains(line, "BAND=") || strings.Contains(line, "STATE="):
		c.Kind = LineStatus
		c.Status = ParseStatus(line)
	case strings.HasPrefix(line, tripPrefix):
		c.Kind = LineTrip
		c.Payload = line[len(tripPrefix):]
	case strings.HasPrefix(line, pttPrefix):
		c.Kind = LinePTT
		c.Payload = line[len(pttPrefix):]
	}

	return c
}

// IsBanner reports whether line carries the product identification
func IsBanner(line string) bool {
	return strings.Contains(line, BannerProduct) && strings.Contains(line, BannerVersion)
}
