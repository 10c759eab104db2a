package panel

import (
	"testing"
	"time"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusEvent(line string) amp.Event {
	return amp.Event{Type: amp.EventStatus, Time: time.Now(), Status: amp.ParseStatus(line)}
}

func connected(p *Panel) {
	p.HandleEvent(amp.Event{Type: amp.EventConnection, Time: time.Now(), Connection: &amp.ConnectionState{Connected: true}})
}

func TestPanelAccumulatesStatus(t *testing.T) {
	p := New()
	connected(p)

	require.NoError(t, p.HandleEvent(statusEvent("BAND=14MHZ,STATE=RX,ANTENNA=A,POWER=0W:0W")))
	require.NoError(t, p.HandleEvent(statusEvent("CURRENT=21A:30A,TEMERATURE=62DegCW1")))

	snap := p.Snapshot()
	assert.True(t, snap.Connected)
	assert.Equal(t, "14MHZ", snap.Band)
	assert.Equal(t, "14.000 - 14.350 MHz", snap.BandRange)
	assert.Equal(t, "A", snap.Antenna)
	assert.True(t, snap.Operating)
	assert.Equal(t, 21, snap.CurrentAmps)
	assert.Equal(t, 30, snap.PeakAmps)
	assert.Equal(t, 50.0, snap.Meters.Current.Percent)
	assert.Equal(t, 62, snap.TempCelsius)
	assert.Equal(t, LevelWarning, snap.Meters.Temperature.Level)
	assert.Equal(t, "14MHZ", snap.Raw["BAND"], "earlier keys are remembered")

	p.HandleEvent(statusEvent("STATE=SB"))
	assert.False(t, p.Snapshot().Operating)
}

func TestPanelSWROnlyWhileTransmitting(t *testing.T) {
	p := New()
	connected(p)

	p.HandleEvent(statusEvent("PTT=RX,VSWR=1.90"))
	snap := p.Snapshot()
	assert.Equal(t, 0.0, snap.Meters.SWR.Percent)
	assert.Equal(t, 1.90, snap.VSWR)

	p.HandleEvent(statusEvent("PTT=TX,VSWR=1.60,POWER=1000W:1100W"))
	snap = p.Snapshot()
	assert.True(t, snap.Transmitting())
	assert.InDelta(t, 60.0, snap.Meters.SWR.Percent, 0.001)
	assert.Equal(t, LevelWarning, snap.Meters.SWR.Level)
	assert.Equal(t, 80.0, snap.Meters.Power.Percent)

	p.HandleEvent(amp.Event{Type: amp.EventPTT, Time: time.Now(), PTT: "RX"})
	assert.Equal(t, 0.0, p.Snapshot().Meters.SWR.Percent)
}

func TestPanelTripAndPowerLevel(t *testing.T) {
	p := New()
	connected(p)

	p.HandleEvent(amp.Event{Type: amp.EventTrip, Time: time.Now(), Cause: "Overtemp"})
	p.HandleEvent(amp.Event{Type: amp.EventResponse, Time: time.Now(), Line: "PM"})

	snap := p.Snapshot()
	assert.True(t, snap.Tripped)
	assert.Equal(t, "Overtemp", snap.TripCause)
	assert.Equal(t, "PM", snap.PowerLevel)

	p.ClearTrip()
	assert.False(t, p.Snapshot().Tripped)

	p.HandleEvent(amp.Event{Type: amp.EventTrip, Time: time.Now()})
	assert.Equal(t, defaultTripCause, p.Snapshot().TripCause)

	p.HandleEvent(amp.Event{Type: amp.EventResponse, Time: time.Now(), Line: "PHASE OK"})
	assert.Equal(t, "PM", p.Snapshot().PowerLevel, "PHASE is not a power level")
}

func TestPanelResetOnDisconnect(t *testing.T) {
	p := New()
	connected(p)
	p.HandleEvent(amp.Event{Type: amp.EventBanner, Time: time.Now(),
		Line: "DxShop Gemini 1 MAC=00:50:C2:4C:E0:00 VERSION=@Version 2.5Ee_05:41:42 Mar 29 2022@"})
	p.HandleEvent(statusEvent("BAND=7MHZ,STATE=TX,PTT=TX,POWER=800W:900W"))
	p.HandleEvent(amp.Event{Type: amp.EventTrip, Time: time.Now(), Cause: "Overcurrent"})

	p.HandleEvent(amp.Event{Type: amp.EventConnection, Time: time.Now(),
		Connection: &amp.ConnectionState{Connected: false, Error: "Connection timeout"}})

	snap := p.Snapshot()
	assert.False(t, snap.Connected)
	assert.Equal(t, "Connection timeout", snap.Error)
	assert.Empty(t, snap.Band)
	assert.Equal(t, "RX", snap.PTT)
	assert.Equal(t, 0, snap.PowerWatts)
	assert.False(t, snap.Tripped)
	assert.Empty(t, snap.Raw)
	assert.Equal(t, "00:50:C2:4C:E0:00", snap.Banner.MAC, "device identity survives a reconnect")
}

func TestParseBanner(t *testing.T) {
	info := ParseBanner("DxShop Gemini 1 MAC=00:50:C2:4C:E0:00 VERSION=@Version 2.5Ee_05:41:42 Mar 29 2022@")
	assert.Equal(t, "00:50:C2:4C:E0:00", info.MAC)
	assert.Equal(t, "2.5Ee_05", info.Firmware)

	info = ParseBanner("DxShop Gemini VERSION")
	assert.Empty(t, info.MAC)
	assert.Empty(t, info.Firmware)
}

func TestMeters(t *testing.T) {
	t.Run("Power clamps at full scale", func(t *testing.T) {
		assert.Equal(t, 100.0, PowerMeter(1500).Percent)
		assert.Equal(t, "625 W", PowerMeter(625).Text)
	})

	t.Run("SWR levels", func(t *testing.T) {
		assert.Equal(t, LevelNormal, SWRMeter(1.5, true).Level)
		assert.Equal(t, LevelWarning, SWRMeter(1.8, true).Level)
		assert.Equal(t, LevelAlarm, SWRMeter(2.5, true).Level)
		assert.Equal(t, 100.0, SWRMeter(2.5, true).Percent)
	})

	t.Run("Temperature levels", func(t *testing.T) {
		assert.Equal(t, LevelNormal, TempMeter(60).Level)
		assert.Equal(t, LevelWarning, TempMeter(65).Level)
		assert.Equal(t, LevelAlarm, TempMeter(66).Level)
		assert.Equal(t, 50.0, TempMeter(40).Percent)
	})

	t.Run("Pairs", func(t *testing.T) {
		cur, peak, ok := ParsePair("850W:900W", "W")
		assert.True(t, ok)
		assert.Equal(t, 850, cur)
		assert.Equal(t, 900, peak)

		cur, peak, ok = ParsePair("12A", "A")
		assert.True(t, ok)
		assert.Equal(t, 12, cur)
		assert.Equal(t, 12, peak)

		_, _, ok = ParsePair("???", "W")
		assert.False(t, ok)
	})

	t.Run("Temperature parse", func(t *testing.T) {
		c, ok := ParseTemperature("41DegCW0")
		assert.True(t, ok)
		assert.Equal(t, 41, c)

		_, ok = ParseTemperature("41C")
		assert.False(t, ok)
	})
}

func TestLookupBand(t *testing.T) {
	b, ok := LookupBand("70mhz")
	assert.True(t, ok)
	assert.Equal(t, "4m", b.Label)

	_, ok = LookupBand("???")
	assert.False(t, ok)

	assert.True(t, ValidAntenna("b"))
	assert.False(t, ValidAntenna("D"))
}
