package amp

import "time"

// EventType tags the variant carried by an Event
type EventType string

const (
	EventConnection EventType = "connection"
	EventBanner     EventType = "banner"
	EventStatus     EventType = "status"
	EventTrip       EventType = "trip"
	EventPTT        EventType = "ptt"
	EventResponse   EventType = "response"
	EventLog        EventType = "log"
)

// LogLevel classifies log events for the operator log
type LogLevel string

const (
	LogInfo  LogLevel = "info"
	LogTX    LogLevel = "tx"
	LogRX    LogLevel = "rx"
	LogError LogLevel = "error"
)

// ConnectionState is the payload of a connection event
type ConnectionState struct {
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// LogEntry is the payload of a log event
type LogEntry struct {
	Level   LogLevel `json:"level"`
	Message string   `json:"message"`
}

// Event is what the session emits to subscribers. Exactly one payload
// field is set, selected by Type.
type Event struct {
	Type EventType `json:"type"`
	Time time.Time `json:"time"`

	Connection *ConnectionState `json:"connection,omitempty"`
	Line       string           `json:"line,omitempty"`   // banner, response
	Status     Status           `json:"status,omitempty"` // status
	Cause      string           `json:"cause,omitempty"`  // trip
	PTT        string           `json:"ptt,omitempty"`    // ptt
	Log        *LogEntry        `json:"log,omitempty"`
}

func connectionEvent(connected bool, errMsg string) Event {
	return Event{
		Type:       EventConnection,
		Time:       time.Now(),
		Connection: &ConnectionState{Connected: connected, Error: errMsg},
	}
}

func logEvent(level LogLevel, message string) Event {
	return Event{
		Type: EventLog,
		Time: time.Now(),
		Log:  &LogEntry{Level: level, Message: message},
	}
}

// eventFor converts a classified line into the event it produces. Password
// prompts produce no event of their own.
func eventFor(c Classification) (Event, bool) {
	ev := Event{Time: time.Now()}

	switch c.Kind {
	case LineBanner:
		ev.Type = EventBanner
		ev.Line = c.Line
	case LineStatus:
		ev.Type = EventStatus
		ev.Status = c.Status
	case LineTrip:
		ev.Type = EventTrip
		ev.Cause = c.Payload
	case LinePTT:
		ev.Type = EventPTT
		ev.PTT = c.Payload
	case LineResponse:
		ev.Type = EventResponse
		ev.Line = c.Line
	default:
		return Event{}, false
	}

	return ev, true
}
