package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dougsko/ampd/pkg/protocol"
	"github.com/dustin/go-humanize"
)

func ago(then, now time.Time) string {
	if then.IsZero() {
		return "never"
	}
	return humanize.RelTime(then, now, "ago", "from now")
}

func formatStatus(st *protocol.Status, now time.Time) string {
	var b strings.Builder

	conn := "disconnected"
	if st.Connected {
		conn = fmt.Sprintf("connected to %s:%d", st.Host, st.Port)
	}
	fmt.Fprintf(&b, "Amplifier:  %s (%s)\n", conn, st.State)
	if st.ReconnectPending {
		b.WriteString("            reconnect pending\n")
	}
	if st.Banner != "" {
		fmt.Fprintf(&b, "Banner:     %s\n", st.Banner)
	}

	if st.Connected {
		mode := "standby"
		if st.Operating {
			mode = "operate"
		}
		fmt.Fprintf(&b, "Band:       %s  Antenna: %s  Power: %s  Mode: %s  PTT: %s\n",
			orDash(st.Band), orDash(st.Antenna), orDash(st.PowerLevel), mode, orDash(st.PTT))
		fmt.Fprintf(&b, "Telemetry:  %t, last data %s\n", st.TelemetryActive, ago(st.LastActivity, now))
	}
	if st.Tripped {
		fmt.Fprintf(&b, "TRIP:       %s\n", st.TripCause)
	}

	fmt.Fprintf(&b, "Daemon:     ampd %s, started %s\n", st.Version, ago(st.StartTime, now))
	return b.String()
}

func formatLog(entries []protocol.LogLine, now time.Time) string {
	if len(entries) == 0 {
		return "(log is empty)\n"
	}

	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "%-16s %-5s %s\n", ago(e.Time, now), strings.ToUpper(e.Level), e.Message)
	}
	fmt.Fprintf(&b, "%s entries\n", humanize.Comma(int64(len(entries))))
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
