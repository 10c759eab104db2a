package amp

import (
	"errors"
	"testing"
)

func TestEncodeCommand(t *testing.T) {
	frame, err := EncodeCommand("B14MHZ,A")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if string(frame) != "B14MHZ,A\n" {
		t.Errorf("Expected %q, got %q", "B14MHZ,A\n", frame)
	}

	for _, cmd := range []string{"", "  "} {
		if _, err := EncodeCommand(cmd); !errors.Is(err, ErrEmptyCommand) {
			t.Errorf("Expected ErrEmptyCommand for %q, got %v", cmd, err)
		}
	}
}

func TestBandCommands(t *testing.T) {
	if got := BandCommand("14mhz"); got != "B14MHZ" {
		t.Errorf("Expected B14MHZ, got %s", got)
	}
	if got := BandAntennaCommand("7MHZ", "b"); got != "B7MHZ,B" {
		t.Errorf("Expected B7MHZ,B, got %s", got)
	}
}

func TestPowerCommand(t *testing.T) {
	tests := map[string]string{
		"h":      CmdPowerHigh,
		"Medium": CmdPowerMedium,
		"PL":     CmdPowerLow,
	}
	for in, want := range tests {
		got, err := PowerCommand(in)
		if err != nil || got != want {
			t.Errorf("Expected %s for %q, got %s (%v)", want, in, got, err)
		}
	}

	if _, err := PowerCommand("max"); err == nil {
		t.Error("Expected error for unknown power level")
	}
}
