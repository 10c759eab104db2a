package main

import (
	"testing"
	"time"

	"github.com/dougsko/ampd/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatStatus(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Connected", func(t *testing.T) {
		out := formatStatus(&protocol.Status{
			Connected:       true,
			TelemetryActive: true,
			State:           "active",
			Host:            "192.168.1.50",
			Port:            9100,
			Band:            "14MHZ",
			Antenna:         "A",
			Operating:       true,
			PTT:             "RX",
			LastActivity:    now.Add(-3 * time.Second),
			Tripped:         true,
			TripCause:       "Overtemp",
			StartTime:       now.Add(-2 * time.Hour),
			Version:         "0.3.0",
		}, now)

		assert.Contains(t, out, "connected to 192.168.1.50:9100 (active)")
		assert.Contains(t, out, "Band:       14MHZ  Antenna: A  Power: -  Mode: operate  PTT: RX")
		assert.Contains(t, out, "last data 3 seconds ago")
		assert.Contains(t, out, "TRIP:       Overtemp")
		assert.Contains(t, out, "started 2 hours ago")
	})

	t.Run("Disconnected", func(t *testing.T) {
		out := formatStatus(&protocol.Status{State: "disconnected", ReconnectPending: true}, now)
		assert.Contains(t, out, "disconnected (disconnected)")
		assert.Contains(t, out, "reconnect pending")
		assert.NotContains(t, out, "Band:")
		assert.Contains(t, out, "started never")
	})
}

func TestFormatLog(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "(log is empty)\n", formatLog(nil, now))

	out := formatLog([]protocol.LogLine{
		{Time: now.Add(-time.Minute), Level: "tx", Message: "S1"},
	}, now)
	assert.Contains(t, out, "TX")
	assert.Contains(t, out, "1 minute ago")
	assert.Contains(t, out, "1 entries")
}

func TestParseTarget(t *testing.T) {
	host, port, err := parseTarget(nil)
	require.NoError(t, err)
	assert.Equal(t, "", host)
	assert.Equal(t, 0, port)

	host, port, err = parseTarget([]string{"amp.local:9200"})
	require.NoError(t, err)
	assert.Equal(t, "amp.local", host)
	assert.Equal(t, 9200, port)

	host, port, err = parseTarget([]string{"10.0.0.2", "9100"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", host)
	assert.Equal(t, 9100, port)

	_, _, err = parseTarget([]string{"amp", "http"})
	assert.Error(t, err)
}
