package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Command represents a command sent to the core engine
type Command struct {
	Type string                 `json:"type"`
	Args map[string]interface{} `json:"args,omitempty"`
}

// Response represents a response from the core engine
type Response struct {
	Success bool                   `json:"success"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// LogLine is one operator log entry as returned by LOG
type LogLine struct {
	ID      int64     `json:"id"`
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

// Status represents the current daemon and amplifier status
type Status struct {
	Connected        bool      `json:"connected"`
	TelemetryActive  bool      `json:"telemetry_active"`
	State            string    `json:"state"`
	Host             string    `json:"host"`
	Port             int       `json:"port"`
	ReconnectPending bool      `json:"reconnect_pending"`
	LastActivity     time.Time `json:"last_activity,omitempty"`
	Banner           string    `json:"banner,omitempty"`
	Band             string    `json:"band,omitempty"`
	Antenna          string    `json:"antenna,omitempty"`
	Operating        bool      `json:"operating"`
	PTT              string    `json:"ptt,omitempty"`
	PowerLevel       string    `json:"power_level,omitempty"`
	Tripped          bool      `json:"tripped"`
	TripCause        string    `json:"trip_cause,omitempty"`
	Uptime           string    `json:"uptime"`
	StartTime        time.Time `json:"start_time"`
	Version          string    `json:"version"`
}

// ParseCommand parses a text command into a Command struct
func ParseCommand(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	parts := strings.SplitN(text, ":", 2)

	cmd := &Command{
		Type: strings.ToUpper(strings.TrimSpace(parts[0])),
		Args: make(map[string]interface{}),
	}

	if len(parts) < 2 {
		return cmd, nil
	}
	args := strings.TrimSpace(parts[1])

	switch cmd.Type {
	case CmdConnect:
		// CONNECT:host:port or CONNECT:host:port:password
		connParts := strings.SplitN(args, ":", 3)
		cmd.Args["host"] = connParts[0]
		if len(connParts) >= 2 {
			port, err := parsePort(connParts[1])
			if err != nil {
				return nil, err
			}
			cmd.Args["port"] = port
		}
		if len(connParts) == 3 {
			cmd.Args["password"] = connParts[2]
		}

	case CmdTest:
		// TEST:host or TEST:host:port
		testParts := strings.SplitN(args, ":", 2)
		cmd.Args["host"] = testParts[0]
		if len(testParts) == 2 {
			port, err := parsePort(testParts[1])
			if err != nil {
				return nil, err
			}
			cmd.Args["port"] = port
		}

	case CmdSend:
		// SEND:B14MHZ,A
		cmd.Args["command"] = args

	case CmdBand:
		// BAND:14MHZ or BAND:14MHZ,B
		band, antenna, hasAntenna := strings.Cut(args, ",")
		cmd.Args["band"] = strings.ToUpper(strings.TrimSpace(band))
		if hasAntenna {
			cmd.Args["antenna"] = strings.ToUpper(strings.TrimSpace(antenna))
		}

	case CmdAntenna:
		cmd.Args["antenna"] = strings.ToUpper(args)

	case CmdPower:
		cmd.Args["level"] = strings.ToUpper(args)

	case CmdLog:
		// LOG:50
		limit, err := strconv.Atoi(args)
		if err != nil || limit < 0 {
			return nil, fmt.Errorf("invalid log limit %q", args)
		}
		cmd.Args["limit"] = limit
	}

	return cmd, nil
}

func parsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	return port, nil
}

// StringArg returns a string argument or "" when absent
func (c *Command) StringArg(key string) string {
	if v, ok := c.Args[key].(string); ok {
		return v
	}
	return ""
}

// IntArg returns an integer argument or def when absent
func (c *Command) IntArg(key string, def int) int {
	if v, ok := c.Args[key].(int); ok {
		return v
	}
	return def
}

// String converts a Response to its JSON line form
func (r *Response) String() string {
	data, _ := json.Marshal(r)
	return string(data)
}

// NewSuccessResponse creates a successful response
func NewSuccessResponse(data map[string]interface{}) *Response {
	return &Response{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error response
func NewErrorResponse(err string) *Response {
	return &Response{
		Success: false,
		Error:   err,
	}
}

// Protocol commands
const (
	CmdStatus     = "STATUS"
	CmdConnect    = "CONNECT"
	CmdDisconnect = "DISCONNECT"
	CmdSend       = "SEND"
	CmdBand       = "BAND"
	CmdAntenna    = "ANTENNA"
	CmdPower      = "POWER"
	CmdOperate    = "OPERATE"
	CmdStandby    = "STANDBY"
	CmdClearTrip  = "CLEARTRIP"
	CmdTest       = "TEST"
	CmdLog        = "LOG"
	CmdQuit       = "QUIT"
	CmdPing       = "PING"
)
