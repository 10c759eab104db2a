package amp

import "time"

// timer is the part of *time.Timer the session needs
type timer interface {
	Stop() bool
}

// clock schedules callbacks; tests substitute a manual clock
type clock interface {
	AfterFunc(d time.Duration, f func()) timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// reconnectPolicy decides whether and when a failed or closed session is
// retried. It keeps at most one pending timer and an intentional-disconnect
// flag. All methods are called from the session goroutine; the timer
// callback goes back through post so the retry also runs there.
type reconnectPolicy struct {
	clock        clock
	post         func(func())
	refusedDelay time.Duration
	closedDelay  time.Duration

	intentional bool
	pending     timer
	seq         uint64
}

func newReconnectPolicy(c clock, post func(func()), refusedDelay, closedDelay time.Duration) *reconnectPolicy {
	return &reconnectPolicy{
		clock:        c,
		post:         post,
		refusedDelay: refusedDelay,
		closedDelay:  closedDelay,
	}
}

// BeginConnect clears the intentional flag and cancels any pending retry
func (p *reconnectPolicy) BeginConnect() {
	p.intentional = false
	p.cancel()
}

// BeginDisconnect marks the closure as intentional and cancels any pending retry
func (p *reconnectPolicy) BeginDisconnect() {
	p.intentional = true
	p.cancel()
}

// Intentional reports whether the last explicit action was a disconnect
func (p *reconnectPolicy) Intentional() bool {
	return p.intentional
}

// Pending reports whether a retry is scheduled
func (p *reconnectPolicy) Pending() bool {
	return p.pending != nil
}

// OnRefused schedules a retry after a refused or reset connection unless one
// is already pending. It reports whether a new retry was scheduled.
func (p *reconnectPolicy) OnRefused(retry func()) bool {
	if p.pending != nil {
		return false
	}
	p.schedule(p.refusedDelay, retry)
	return true
}

// OnClosed schedules a retry after an ordinary closure when an address is
// configured, nothing is pending and the user did not disconnect.
func (p *reconnectPolicy) OnClosed(addressConfigured bool, retry func()) bool {
	if !addressConfigured || p.pending != nil || p.intentional {
		return false
	}
	p.schedule(p.closedDelay, retry)
	return true
}

func (p *reconnectPolicy) schedule(delay time.Duration, retry func()) {
	p.cancel()
	p.seq++
	seq := p.seq

	p.pending = p.clock.AfterFunc(delay, func() {
		p.post(func() {
			// A cancelled or superseded timer may still have fired
			if seq != p.seq || p.pending == nil {
				return
			}
			p.pending = nil
			if p.intentional {
				return
			}
			retry()
		})
	})
}

func (p *reconnectPolicy) cancel() {
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
	p.seq++
}
