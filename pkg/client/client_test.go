package client

import (
	"bufio"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dougsko/ampd/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDaemon answers each line with the response registered for it
type fakeDaemon struct {
	mu       sync.Mutex
	received []string
	replies  map[string]*protocol.Response
}

func startFakeDaemon(t *testing.T, replies map[string]*protocol.Response) (*fakeDaemon, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ampd.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	d := &fakeDaemon{replies: replies}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go d.serve(conn)
		}
	}()
	return d, path
}

func (d *fakeDaemon) serve(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		line := scanner.Text()
		d.mu.Lock()
		d.received = append(d.received, line)
		resp, ok := d.replies[line]
		d.mu.Unlock()
		if !ok {
			resp = protocol.NewErrorResponse("unknown command: " + line)
		}
		conn.Write([]byte(resp.String() + "\n"))
	}
}

func (d *fakeDaemon) lines() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.received...)
}

func TestClientCommands(t *testing.T) {
	okResp := protocol.NewSuccessResponse(map[string]interface{}{"status": "sent"})
	d, path := startFakeDaemon(t, map[string]*protocol.Response{
		"CONNECT:192.168.1.50:9100:pw": okResp,
		"CONNECT":                      okResp,
		"BAND:14MHZ,B":                 okResp,
		"POWER:L":                      okResp,
		"SEND:R1":                      okResp,
		"CLEARTRIP":                    okResp,
		"DISCONNECT":                   okResp,
		"PING":                         okResp,
		"STANDBY":                      protocol.NewErrorResponse("amplifier not connected"),
	})
	c := NewSocketClient(path)

	require.NoError(t, c.Connect("192.168.1.50", 0, "pw"))
	require.NoError(t, c.Connect("", 0, ""))
	require.NoError(t, c.SelectBand("14MHZ", "B"))
	require.NoError(t, c.SetPower("L"))
	require.NoError(t, c.Send("R1"))
	require.NoError(t, c.ClearTrip())
	require.NoError(t, c.Disconnect())
	assert.True(t, c.IsConnected())

	err := c.Standby()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amplifier not connected")

	assert.Equal(t, []string{
		"CONNECT:192.168.1.50:9100:pw", "CONNECT", "BAND:14MHZ,B", "POWER:L",
		"SEND:R1", "CLEARTRIP", "DISCONNECT", "PING", "STANDBY",
	}, d.lines())
}

func TestClientDecodesPayloads(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	_, path := startFakeDaemon(t, map[string]*protocol.Response{
		"STATUS": protocol.NewSuccessResponse(map[string]interface{}{
			"status": protocol.Status{Connected: true, State: "active", Band: "14MHZ", StartTime: start},
		}),
		"LOG:2": protocol.NewSuccessResponse(map[string]interface{}{
			"entries": []protocol.LogLine{
				{ID: 7, Level: "tx", Message: "S1"},
				{ID: 8, Level: "rx", Message: "BAND=14MHZ"},
			},
			"count": 2,
		}),
		"TEST:amp.local:9200": protocol.NewSuccessResponse(map[string]interface{}{
			"result": map[string]interface{}{"success": false, "error": "Connection timeout"},
		}),
	})
	c := NewSocketClient(path)

	status, err := c.GetStatus()
	require.NoError(t, err)
	assert.True(t, status.Connected)
	assert.Equal(t, "14MHZ", status.Band)
	assert.True(t, status.StartTime.Equal(start))

	entries, err := c.GetLog(2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(8), entries[1].ID)
	assert.Equal(t, "rx", entries[1].Level)

	res, err := c.TestConnection("amp.local", 9200)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Connection timeout", res.Error)
}

func TestClientNoDaemon(t *testing.T) {
	c := NewSocketClient(filepath.Join(t.TempDir(), "missing.sock"))
	c.SetTimeout(100 * time.Millisecond)

	assert.False(t, c.IsConnected())
	_, err := c.GetStatus()
	assert.Error(t, err)
}
