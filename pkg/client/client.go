package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/protocol"
)

// SocketClient represents a client connection to the core engine
type SocketClient struct {
	socketPath string
	timeout    time.Duration
}

// NewSocketClient creates a new socket client
func NewSocketClient(socketPath string) *SocketClient {
	return &SocketClient{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

// SetTimeout changes the per-command deadline
func (c *SocketClient) SetTimeout(d time.Duration) {
	c.timeout = d
}

// SendCommand sends a command and returns the response
func (c *SocketClient) SendCommand(cmd string) (*protocol.Response, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to socket: %w", err)
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if _, err := conn.Write([]byte(cmd + "\n")); err != nil {
		return nil, fmt.Errorf("send error: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read error: %w", err)
		}
		return nil, fmt.Errorf("no response received")
	}

	var response protocol.Response
	if err := json.Unmarshal(scanner.Bytes(), &response); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	return &response, nil
}

// do sends cmd and turns an error response into an error
func (c *SocketClient) do(cmd string) (*protocol.Response, error) {
	resp, err := c.SendCommand(cmd)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp, nil
}

// decode re-marshals one field of a response into out
func decode(resp *protocol.Response, key string, out interface{}) error {
	raw, ok := resp.Data[key]
	if !ok {
		return fmt.Errorf("%s not found in response", key)
	}
	data, _ := json.Marshal(raw)
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return nil
}

// GetStatus gets the current daemon and amplifier status
func (c *SocketClient) GetStatus() (*protocol.Status, error) {
	resp, err := c.do(protocol.CmdStatus)
	if err != nil {
		return nil, fmt.Errorf("status error: %w", err)
	}

	var status protocol.Status
	if err := decode(resp, "status", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Connect asks the daemon to connect. Empty host uses the configured
// amplifier; an empty password uses the configured one.
func (c *SocketClient) Connect(host string, port int, password string) error {
	cmd := protocol.CmdConnect
	if host != "" {
		if port == 0 {
			port = amp.DefaultPort
		}
		cmd += ":" + host + ":" + strconv.Itoa(port)
		if password != "" {
			cmd += ":" + password
		}
	}

	if _, err := c.do(cmd); err != nil {
		return fmt.Errorf("connect error: %w", err)
	}
	return nil
}

// Disconnect closes the amplifier connection
func (c *SocketClient) Disconnect() error {
	if _, err := c.do(protocol.CmdDisconnect); err != nil {
		return fmt.Errorf("disconnect error: %w", err)
	}
	return nil
}

// Send sends a raw device command token
func (c *SocketClient) Send(token string) error {
	if _, err := c.do(protocol.CmdSend + ":" + token); err != nil {
		return fmt.Errorf("send error: %w", err)
	}
	return nil
}

// SelectBand switches band and optionally antenna
func (c *SocketClient) SelectBand(band, antenna string) error {
	cmd := protocol.CmdBand + ":" + band
	if antenna != "" {
		cmd += "," + antenna
	}
	if _, err := c.do(cmd); err != nil {
		return fmt.Errorf("band error: %w", err)
	}
	return nil
}

// SelectAntenna switches antenna on the current band
func (c *SocketClient) SelectAntenna(antenna string) error {
	if _, err := c.do(protocol.CmdAntenna + ":" + antenna); err != nil {
		return fmt.Errorf("antenna error: %w", err)
	}
	return nil
}

// SetPower selects the power level (H, M or L)
func (c *SocketClient) SetPower(level string) error {
	if _, err := c.do(protocol.CmdPower + ":" + level); err != nil {
		return fmt.Errorf("power error: %w", err)
	}
	return nil
}

// Operate switches the amplifier to operate
func (c *SocketClient) Operate() error {
	if _, err := c.do(protocol.CmdOperate); err != nil {
		return fmt.Errorf("operate error: %w", err)
	}
	return nil
}

// Standby switches the amplifier to standby
func (c *SocketClient) Standby() error {
	if _, err := c.do(protocol.CmdStandby); err != nil {
		return fmt.Errorf("standby error: %w", err)
	}
	return nil
}

// ClearTrip resets a protection trip
func (c *SocketClient) ClearTrip() error {
	if _, err := c.do(protocol.CmdClearTrip); err != nil {
		return fmt.Errorf("clear trip error: %w", err)
	}
	return nil
}

// TestConnection probes an amplifier without disturbing the live session
func (c *SocketClient) TestConnection(host string, port int) (*amp.ProbeResult, error) {
	cmd := protocol.CmdTest
	if host != "" {
		cmd += ":" + host
		if port != 0 {
			cmd += ":" + strconv.Itoa(port)
		}
	}

	resp, err := c.do(cmd)
	if err != nil {
		return nil, fmt.Errorf("test error: %w", err)
	}

	var res amp.ProbeResult
	if err := decode(resp, "result", &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// GetLog returns the newest limit operator log entries; 0 for all
func (c *SocketClient) GetLog(limit int) ([]protocol.LogLine, error) {
	cmd := protocol.CmdLog
	if limit > 0 {
		cmd = fmt.Sprintf("%s:%d", protocol.CmdLog, limit)
	}

	resp, err := c.do(cmd)
	if err != nil {
		return nil, fmt.Errorf("log error: %w", err)
	}

	if _, ok := resp.Data["entries"]; !ok {
		return []protocol.LogLine{}, nil
	}
	var entries []protocol.LogLine
	if err := decode(resp, "entries", &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Ping tests the connection
func (c *SocketClient) Ping() error {
	if _, err := c.do(protocol.CmdPing); err != nil {
		return fmt.Errorf("ping error: %w", err)
	}
	return nil
}

// IsConnected tests if the daemon is reachable
func (c *SocketClient) IsConnected() bool {
	return c.Ping() == nil
}
