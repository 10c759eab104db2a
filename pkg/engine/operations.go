package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/logging"
	"github.com/dougsko/ampd/pkg/panel"
	"github.com/dougsko/ampd/pkg/protocol"
	"github.com/dougsko/ampd/pkg/storage"
)

// ErrInvalidSelection marks a band, antenna or power request the amplifier
// cannot accept. Nothing is sent.
var ErrInvalidSelection = errors.New("invalid selection")

// Connect starts a session to host:port. Empty arguments fall back to the
// configured amplifier.
func (e *CoreEngine) Connect(host string, port int, password string) error {
	cfg := e.Config()
	if host == "" {
		host = cfg.Amplifier.Host
	}
	if port == 0 {
		port = cfg.Amplifier.Port
	}
	if password == "" {
		password = cfg.Amplifier.Password
	}

	logging.Info("engine", "connect requested", map[string]interface{}{"host": host, "port": port})
	return e.sessionRef().Connect(host, port, password)
}

// Disconnect closes the amplifier connection on purpose
func (e *CoreEngine) Disconnect() error {
	return e.sessionRef().Disconnect()
}

// SendCommand sends a raw device token such as "B14MHZ,A" or "PH"
func (e *CoreEngine) SendCommand(cmd string) error {
	cmd = strings.TrimSpace(cmd)
	if err := e.sessionRef().Send(cmd); err != nil {
		return fmt.Errorf("failed to send %q: %w", cmd, err)
	}
	return nil
}

// SelectBand switches band, and antenna when one is given
func (e *CoreEngine) SelectBand(band, antenna string) error {
	b, found := panel.LookupBand(band)
	if !found {
		return fmt.Errorf("%w: unknown band %q", ErrInvalidSelection, band)
	}
	if antenna == "" {
		return e.SendCommand(amp.BandCommand(b.Code))
	}
	if !panel.ValidAntenna(antenna) {
		return fmt.Errorf("%w: unknown antenna %q", ErrInvalidSelection, antenna)
	}
	return e.SendCommand(amp.BandAntennaCommand(b.Code, antenna))
}

// SelectAntenna switches antenna on the current band. The device only
// accepts antenna changes together with a band, so the band must be known.
func (e *CoreEngine) SelectAntenna(antenna string) error {
	band := e.panel.Snapshot().Band
	if band == "" {
		return fmt.Errorf("%w: band not known yet, select a band first", ErrInvalidSelection)
	}
	return e.SelectBand(band, antenna)
}

// SetPower selects high, medium or low output
func (e *CoreEngine) SetPower(level string) error {
	cmd, err := amp.PowerCommand(level)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	return e.SendCommand(cmd)
}

// Operate puts the amplifier in operate mode
func (e *CoreEngine) Operate() error {
	return e.SendCommand(amp.CmdOperate)
}

// Standby puts the amplifier in standby
func (e *CoreEngine) Standby() error {
	return e.SendCommand(amp.CmdStandby)
}

// ClearTrip resets the protection latch and the panel trip indicator
func (e *CoreEngine) ClearTrip() error {
	if err := e.SendCommand(amp.CmdClearTrip); err != nil {
		return err
	}
	e.panel.ClearTrip()
	return nil
}

// TestConnection probes host:port without touching the live session. Empty
// arguments fall back to the configured amplifier.
func (e *CoreEngine) TestConnection(ctx context.Context, host string, port int) amp.ProbeResult {
	cfg := e.Config()
	if host == "" {
		host = cfg.Amplifier.Host
	}
	if port == 0 {
		port = cfg.Amplifier.Port
	}

	res := e.probe(ctx, host, port, amp.ProbeOptions{Password: cfg.Amplifier.Password})
	logging.Info("engine", "connection test finished", map[string]interface{}{
		"host":    host,
		"port":    port,
		"success": res.Success,
	})
	return res
}

// Status combines session and panel state
func (e *CoreEngine) Status() protocol.Status {
	st := e.sessionRef().Status()
	snap := e.panel.Snapshot()

	return protocol.Status{
		Connected:        st.Connected,
		TelemetryActive:  st.TelemetryActive,
		State:            st.State.String(),
		Host:             st.Host,
		Port:             st.Port,
		ReconnectPending: st.ReconnectPending,
		LastActivity:     st.LastActivity,
		Banner:           snap.Banner.Raw,
		Band:             snap.Band,
		Antenna:          snap.Antenna,
		Operating:        snap.Operating,
		PTT:              snap.PTT,
		PowerLevel:       snap.PowerLevel,
		Tripped:          snap.Tripped,
		TripCause:        snap.TripCause,
		Uptime:           time.Since(e.startTime).Round(time.Second).String(),
		StartTime:        e.startTime,
		Version:          Version,
	}
}

// Panel returns the front panel snapshot
func (e *CoreEngine) Panel() panel.Snapshot {
	return e.panel.Snapshot()
}

// LogEntries returns the newest limit operator log entries, oldest first.
// A limit of zero returns the whole buffer.
func (e *CoreEngine) LogEntries(limit int) ([]protocol.LogLine, error) {
	records, err := e.logStore.Entries(storage.LogQuery{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to read log: %w", err)
	}

	lines := make([]protocol.LogLine, 0, len(records))
	for _, r := range records {
		lines = append(lines, protocol.LogLine{
			ID:      r.ID,
			Time:    r.Time,
			Level:   string(r.Level),
			Message: r.Message,
		})
	}
	return lines, nil
}

// LogStats summarizes the operator log
func (e *CoreEngine) LogStats() (*storage.LogStats, error) {
	return e.logStore.Stats()
}

// ClearLog empties the operator log
func (e *CoreEngine) ClearLog() error {
	return e.logStore.Clear()
}
