// Package notify raises desktop alerts for amplifier trips.
package notify

import (
	"fmt"

	"github.com/dougsko/ampd/pkg/amp"
	"github.com/dougsko/ampd/pkg/logging"
	"github.com/gen2brain/beeep"
)

// AlertFunc shows a notification
type AlertFunc func(title, message string) error

func desktopAlert(title, message string) error {
	return beeep.Alert(title, message, "")
}

// TripNotifier alerts the operator when the amplifier trips
type TripNotifier struct {
	alert AlertFunc
	async bool
}

// NewTripNotifier uses desktop notifications
func NewTripNotifier() *TripNotifier {
	return &TripNotifier{alert: desktopAlert, async: true}
}

// NewTripNotifierWith uses alert instead of desktop notifications and calls
// it synchronously.
func NewTripNotifierWith(alert AlertFunc) *TripNotifier {
	return &TripNotifier{alert: alert}
}

// HandleEvent raises an alert for trip events
func (n *TripNotifier) HandleEvent(ev amp.Event) error {
	if ev.Type != amp.EventTrip {
		return nil
	}

	cause := ev.Cause
	if cause == "" {
		cause = "Protection circuit activated"
	}
	title := "Amplifier TRIP"
	message := fmt.Sprintf("%s - clear the trip before operating again", cause)

	if !n.async {
		return n.alert(title, message)
	}

	// Desktop notification backends can block on D-Bus
	go func() {
		if err := n.alert(title, message); err != nil {
			logging.Warn("notify", "trip alert failed", map[string]interface{}{"error": err.Error()})
		}
	}()
	return nil
}
