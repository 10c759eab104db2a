package amp

import "time"

// Default protocol timings
const (
	DefaultPort              = 9100
	DefaultConnectTimeout    = 30 * time.Second
	DefaultKeepAlive         = 10 * time.Second
	DefaultInactivityTimeout = 30 * time.Second

	// The device needs time after a mode change before it accepts S1
	DefaultSettleDelay = 200 * time.Millisecond

	DefaultRefusedRetryDelay = 3 * time.Second
	DefaultClosedRetryDelay  = 5 * time.Second
	DefaultCloseGrace        = 500 * time.Millisecond
	DefaultWriteTimeout      = 5 * time.Second
	DefaultSendQueue         = 64
)

// Options tunes a Session. Zero fields take the defaults above.
type Options struct {
	ConnectTimeout    time.Duration
	KeepAlive         time.Duration
	InactivityTimeout time.Duration
	SettleDelay       time.Duration
	RefusedRetryDelay time.Duration
	ClosedRetryDelay  time.Duration
	CloseGrace        time.Duration
	WriteTimeout      time.Duration
	SendQueue         int

	// Telnet wraps the connection in a telnet codec that strips option
	// negotiation from the stream.
	Telnet bool

	// Dial replaces the TCP dialer, mostly for tests
	Dial DialFunc
}

// DefaultOptions returns the timings the amplifier firmware expects
func DefaultOptions() Options {
	return Options{}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = DefaultConnectTimeout
	}
	if o.KeepAlive <= 0 {
		o.KeepAlive = DefaultKeepAlive
	}
	if o.InactivityTimeout <= 0 {
		o.InactivityTimeout = DefaultInactivityTimeout
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.RefusedRetryDelay <= 0 {
		o.RefusedRetryDelay = DefaultRefusedRetryDelay
	}
	if o.ClosedRetryDelay <= 0 {
		o.ClosedRetryDelay = DefaultClosedRetryDelay
	}
	if o.CloseGrace <= 0 {
		o.CloseGrace = DefaultCloseGrace
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = DefaultWriteTimeout
	}
	if o.SendQueue <= 0 {
		o.SendQueue = DefaultSendQueue
	}
	if o.Dial == nil {
		o.Dial = tcpDialer(o.ConnectTimeout, o.KeepAlive)
	}
	return o
}
