package amp

// State is the session lifecycle state
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAwaitingBanner
	StateTelemetryPending
	StateActive
)

// String returns string representation of the state
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingBanner:
		return "awaiting-banner"
	case StateTelemetryPending:
		return "telemetry-pending"
	case StateActive:
		return "active"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Connected reports whether a transport is open in this state
func (s State) Connected() bool {
	return s >= StateAwaitingBanner
}
