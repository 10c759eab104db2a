package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/panel"
	"github.com/dougsko/ampd/pkg/storage"
	"github.com/dustin/go-humanize"
	"github.com/rivo/tview"
)

const meterWidth = 30

var levelColors = map[panel.Level]string{
	panel.LevelNormal:  "green",
	panel.LevelWarning: "yellow",
	panel.LevelAlarm:   "red",
}

var logColors = map[amp.LogLevel]string{
	amp.LogInfo:  "white",
	amp.LogTX:    "aqua",
	amp.LogRX:    "gray",
	amp.LogError: "red",
}

// meterBar draws a bar of width cells using tview colour tags
func meterBar(m panel.Meter, width int) string {
	filled := int(m.Percent/100*float64(width) + 0.5)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	color := levelColors[m.Level]
	if color == "" {
		color = "green"
	}
	return fmt.Sprintf("[%s]%s[gray]%s[-]", color,
		strings.Repeat("█", filled), strings.Repeat("░", width-filled))
}

func renderPanel(snap panel.Snapshot) string {
	var b strings.Builder

	if !snap.Connected {
		b.WriteString("[gray]Not connected[-]\n")
		if snap.Error != "" {
			fmt.Fprintf(&b, "[red]%s[-]\n", tview.Escape(snap.Error))
		}
		return b.String()
	}

	if snap.Banner.Raw != "" {
		fmt.Fprintf(&b, "%s", tview.Escape(snap.Banner.Raw))
		if snap.Banner.Firmware != "" {
			fmt.Fprintf(&b, "  [gray]fw %s[-]", snap.Banner.Firmware)
		}
		b.WriteString("\n")
	}

	mode := "[yellow]STANDBY[-]"
	if snap.Operating {
		mode = "[green]OPERATE[-]"
	}
	ptt := "RX"
	if snap.Transmitting() {
		ptt = "[red]TX[-]"
	}
	band := snap.Band
	if snap.BandRange != "" {
		band += " (" + snap.BandRange + ")"
	}
	fmt.Fprintf(&b, "Band %s  Antenna %s  Power %s  %s  %s\n\n",
		orDash(band), orDash(snap.Antenna), orDash(snap.PowerLevel), mode, ptt)

	rows := []struct {
		label string
		meter panel.Meter
	}{
		{"Power", snap.Meters.Power},
		{"Current", snap.Meters.Current},
		{"SWR", snap.Meters.SWR},
		{"Temp", snap.Meters.Temperature},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%-8s %s %s\n", r.label, meterBar(r.meter, meterWidth), r.meter.Text)
	}
	if snap.PeakWatts > 0 {
		fmt.Fprintf(&b, "%-8s %d W\n", "Peak", snap.PeakWatts)
	}

	if snap.Tripped {
		fmt.Fprintf(&b, "\n[white:red] TRIP [-:-] %s  (press d to clear)\n", tview.Escape(snap.TripCause))
	}
	return b.String()
}

func renderLog(records []storage.LogRecord) string {
	var b strings.Builder
	for _, r := range records {
		color := logColors[r.Level]
		if color == "" {
			color = "white"
		}
		fmt.Fprintf(&b, "[gray]%s[-] [%s]%-5s %s[-]\n",
			r.Time.Format("15:04:05"), color, strings.ToUpper(string(r.Level)), tview.Escape(r.Message))
	}
	return b.String()
}

// renderHeader is the one-line summary above the panel
func renderHeader(target string, status amp.SessionStatus, stats *storage.LogStats, now time.Time) string {
	state := fmt.Sprintf("[yellow]%s[-]", status.State)
	if status.Connected {
		state = fmt.Sprintf("[green]%s[-]", status.State)
	}

	line := fmt.Sprintf("%s  %s", target, state)
	if !status.LastActivity.IsZero() {
		line += "  last data " + humanize.RelTime(status.LastActivity, now, "ago", "from now")
	}
	if stats != nil {
		line += fmt.Sprintf("  [gray]log %s/%s[-]", humanize.Comma(int64(stats.Stored)), humanize.Comma(int64(stats.Total)))
	}
	return line
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
