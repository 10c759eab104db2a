package amp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/dougsko/ampd/pkg/logging"
)

const (
	inboxSize = 256
	readSize  = 4096

	refusedStatusMessage = "Connection refused - amplifier may have active connection. Retrying..."
	maskedPassword       = "********"
)

// SessionStatus is a point-in-time view of the session for callers
// outside the session goroutine.
type SessionStatus struct {
	Connected        bool      `json:"connected"`
	TelemetryActive  bool      `json:"telemetry_active"`
	State            State     `json:"state"`
	Host             string    `json:"host,omitempty"`
	Port             int       `json:"port,omitempty"`
	LastActivity     time.Time `json:"last_activity,omitempty"`
	ReconnectPending bool      `json:"reconnect_pending"`
}

// Session owns the single connection to one amplifier. All lifecycle
// fields are mutated on one goroutine; the dialer, reader, writer and timers
// post closures to it and never touch session state directly.
type Session struct {
	opts       Options
	dispatcher *Dispatcher
	clock      clock
	policy     *reconnectPolicy

	inbox       chan func()
	quit        chan struct{}
	loopDone    chan struct{}
	closeOnce   sync.Once
	events      *eventQueue
	deliverDone chan struct{}

	// Owned by the session goroutine
	host             string
	port             int
	password         string
	state            State
	telemetryActive  bool
	telemetryPending bool
	lastActivity     time.Time
	gen              uint64
	tr               *transport
	framer           *LineFramer
	dialCancel       context.CancelFunc
	settle           timer

	// Read by external callers
	mu   sync.RWMutex
	snap SessionStatus
	live *transport
}

// NewSession creates a session and starts its event loop. Events go to d.
func NewSession(opts Options, d *Dispatcher) *Session {
	return newSession(opts, d, realClock{})
}

func newSession(opts Options, d *Dispatcher, c clock) *Session {
	if d == nil {
		d = NewDispatcher()
	}

	s := &Session{
		opts:        opts.withDefaults(),
		dispatcher:  d,
		clock:       c,
		inbox:       make(chan func(), inboxSize),
		quit:        make(chan struct{}),
		loopDone:    make(chan struct{}),
		events:      newEventQueue(),
		deliverDone: make(chan struct{}),
		framer:      NewLineFramer(),
	}
	s.policy = newReconnectPolicy(c, func(f func()) { s.post(f) },
		s.opts.RefusedRetryDelay, s.opts.ClosedRetryDelay)

	go s.run()
	go s.deliver()
	return s
}

// Dispatcher returns the dispatcher events are delivered through
func (s *Session) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Connect tears down any existing transport and starts a new connection
// attempt. Only an invalid address is reported; transport failures arrive
// as events.
func (s *Session) Connect(host string, port int, password string) error {
	host = strings.TrimSpace(host)
	if err := validateTarget(host, port); err != nil {
		return err
	}
	return s.do(func() { s.connect(host, port, password) })
}

// Disconnect closes the connection on purpose and cancels any pending
// reconnect.
func (s *Session) Disconnect() error {
	return s.do(s.disconnect)
}

// Send frames cmd and queues it on the live transport. It fails without
// writing when no transport is connected.
func (s *Session) Send(cmd string) error {
	frame, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}

	s.mu.RLock()
	t := s.live
	s.mu.RUnlock()

	if t == nil {
		return ErrNotConnected
	}
	if err := t.enqueue(outbound{frame: frame, display: cmd}); err != nil {
		return err
	}

	s.post(func() {
		if t.gen == s.gen {
			s.emit(logEvent(LogTX, cmd))
		}
	})
	return nil
}

// SendCommand is Send reduced to a success flag
func (s *Session) SendCommand(cmd string) bool {
	if err := s.Send(cmd); err != nil {
		logging.Debugf("session", "command %q not sent: %v", cmd, err)
		return false
	}
	return true
}

// Status returns the latest session snapshot
func (s *Session) Status() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Close tears down the connection, stops the event loop and returns once
// every event has been delivered. The session cannot be used afterwards.
// Close must not be called from an event handler.
func (s *Session) Close() error {
	s.closeOnce.Do(func() { close(s.quit) })
	<-s.loopDone
	<-s.deliverDone
	return nil
}

func (s *Session) run() {
	defer close(s.loopDone)

	for {
		select {
		case f := <-s.inbox:
			f()
		case <-s.quit:
			s.shutdown()
			s.events.close()
			return
		}
	}
}

// deliver hands events to the dispatcher in emission order
func (s *Session) deliver() {
	defer close(s.deliverDone)

	for {
		ev, ok := s.events.pop()
		if !ok {
			return
		}
		s.dispatcher.Dispatch(ev)
	}
}

// post queues f for the session goroutine. It reports false once the
// session is closed.
func (s *Session) post(f func()) bool {
	select {
	case <-s.quit:
		return false
	default:
	}

	select {
	case s.inbox <- f:
		return true
	case <-s.quit:
		return false
	}
}

// do runs f on the session goroutine and waits for it. Event handlers may
// call it too; the loop never waits on delivery.
func (s *Session) do(f func()) error {
	done := make(chan struct{})
	if !s.post(func() { f(); close(done) }) {
		return ErrSessionClosed
	}

	select {
	case <-done:
		return nil
	case <-s.loopDone:
		return ErrSessionClosed
	}
}

func (s *Session) emit(ev Event) {
	s.events.push(ev)
}

func (s *Session) setState(state State) {
	s.state = state

	s.mu.Lock()
	s.snap = SessionStatus{
		Connected:        state.Connected(),
		TelemetryActive:  s.telemetryActive,
		State:            state,
		Host:             s.host,
		Port:             s.port,
		LastActivity:     s.lastActivity,
		ReconnectPending: s.policy.Pending(),
	}
	s.live = s.tr
	s.mu.Unlock()
}

// refresh republishes the snapshot without a state change
func (s *Session) refresh() {
	s.setState(s.state)
}

func (s *Session) connect(host string, port int, password string) {
	s.policy.BeginConnect()
	s.dropTransport()

	s.host, s.port, s.password = host, port, password
	gen := s.gen

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ConnectTimeout)
	s.dialCancel = cancel
	s.setState(StateConnecting)

	address := joinHostPort(host, port)
	s.emit(logEvent(LogInfo, fmt.Sprintf("Connecting to %s...", address)))
	logging.Info("session", "connecting", map[string]interface{}{"address": address})

	dial := s.opts.Dial
	go func() {
		conn, err := dial(ctx, address)
		if !s.post(func() { s.onDialed(gen, conn, err) }) && conn != nil {
			conn.Close()
		}
	}()
}

func (s *Session) onDialed(gen uint64, conn net.Conn, err error) {
	if gen != s.gen {
		if conn != nil {
			conn.Close()
		}
		return
	}

	if s.dialCancel != nil {
		s.dialCancel()
		s.dialCancel = nil
	}

	if err != nil {
		s.fail(err)
		return
	}

	t, err := newTransport(gen, conn, s.opts.Telnet, s.opts.SendQueue)
	if err != nil {
		s.fail(err)
		return
	}

	s.tr = t
	s.lastActivity = time.Now()
	s.setState(StateAwaitingBanner)

	s.emit(connectionEvent(true, ""))
	s.emit(logEvent(LogInfo, "TCP connected"))
	logging.Info("session", "connected", map[string]interface{}{"address": conn.RemoteAddr().String()})

	go s.readLoop(t)
	go s.writeLoop(t)
}

func (s *Session) readLoop(t *transport) {
	defer t.close()

	buf := make([]byte, readSize)
	for {
		t.raw.SetReadDeadline(time.Now().Add(s.opts.InactivityTimeout))

		n, err := t.conn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if !s.post(func() { s.onData(t.gen, chunk) }) {
				return
			}
		}

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				err = ErrInactivityTimeout
			}
			s.post(func() { s.onClosed(t.gen, err) })
			return
		}
	}
}

func (s *Session) writeLoop(t *transport) {
	for {
		select {
		case <-t.done:
			return
		case o := <-t.out:
			t.raw.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if _, err := t.conn.Write(o.frame); err != nil {
				s.post(func() { s.onWriteError(t.gen, o, err) })
			}
		}
	}
}

func (s *Session) onWriteError(gen uint64, o outbound, err error) {
	if gen != s.gen {
		return
	}
	s.emit(logEvent(LogError, fmt.Sprintf("Write failed for %s: %v", o.display, err)))
}

func (s *Session) onData(gen uint64, chunk []byte) {
	if gen != s.gen || s.tr == nil {
		return
	}

	s.lastActivity = time.Now()

	for _, line := range s.framer.Feed(chunk) {
		s.handleLine(line)
		// A handler may have disconnected or reconnected
		if gen != s.gen {
			return
		}
	}

	// The prompt is usually sent without a line terminator. Taking it out of
	// the fragment keeps it from prefixing the device's next line.
	if s.framer.DiscardPrefix(PasswordPrompt) {
		s.emit(logEvent(LogRX, PasswordPrompt))
		s.answerPrompt()
	}

	s.refresh()
}

func (s *Session) handleLine(raw string) {
	line := strings.TrimSpace(raw)
	if line == "" {
		return
	}

	// Prompt and banner can share a line when they arrive in one read
	if rest, ok := strings.CutPrefix(line, PasswordPrompt); ok {
		s.emit(logEvent(LogRX, PasswordPrompt))
		s.answerPrompt()
		if line = strings.TrimSpace(rest); line == "" {
			return
		}
	}

	s.emit(logEvent(LogRX, line))

	c := Classify(line, s.telemetryActive)

	if ev, ok := eventFor(c); ok {
		s.emit(ev)
	}

	switch c.Kind {
	case LineBanner:
		logging.Info("session", "amplifier identified", map[string]interface{}{"banner": line})
		s.enableTelemetry()
	case LineStatus:
		if !s.telemetryActive {
			s.enableTelemetry()
		}
	}
}

func (s *Session) answerPrompt() {
	if err := s.transmit(s.password, maskedPassword); err != nil {
		s.emit(logEvent(LogError, fmt.Sprintf("Failed to send password: %v", err)))
	}
}

// enableTelemetry sends S1 after the settle delay. It is scheduled at most
// once per transport whether triggered by the banner or a status line.
func (s *Session) enableTelemetry() {
	if s.telemetryActive || s.telemetryPending {
		return
	}

	s.telemetryPending = true
	s.setState(StateTelemetryPending)

	gen := s.gen
	s.settle = s.clock.AfterFunc(s.opts.SettleDelay, func() {
		s.post(func() {
			if gen != s.gen || s.tr == nil {
				return
			}
			s.settle = nil
			s.telemetryPending = false

			if err := s.transmit(CmdTelemetryOn, CmdTelemetryOn); err != nil {
				s.emit(logEvent(LogError, fmt.Sprintf("Failed to enable telemetry: %v", err)))
				return
			}
			s.telemetryActive = true
			s.setState(StateActive)
		})
	})
}

// transmit queues a command from the session goroutine
func (s *Session) transmit(cmd, display string) error {
	if s.tr == nil {
		return ErrNotConnected
	}
	frame, err := EncodeCommand(cmd)
	if err != nil {
		return err
	}
	if err := s.tr.enqueue(outbound{frame: frame, display: display}); err != nil {
		return err
	}
	s.emit(logEvent(LogTX, display))
	return nil
}

func (s *Session) onClosed(gen uint64, err error) {
	if gen != s.gen {
		return
	}
	s.fail(err)
}

// fail handles every unintentional end of a transport or dial attempt
func (s *Session) fail(err error) {
	kind := classifyFailure(err)
	s.dropTransport()
	s.setState(StateDisconnected)

	retry := func() { s.connect(s.host, s.port, s.password) }

	switch kind {
	case failureRefused:
		logging.Warn("session", "connection refused", map[string]interface{}{"error": err.Error()})
		s.emit(connectionEvent(false, refusedStatusMessage))
		s.emit(logEvent(LogError, fmt.Sprintf("Connection refused - retrying in %s...", s.opts.RefusedRetryDelay)))
		s.policy.OnRefused(retry)
		s.refresh()
		return
	case failureTimeout:
		logging.Warn("session", "connection timeout", nil)
		s.emit(connectionEvent(false, "Connection timeout"))
		s.emit(logEvent(LogError, "Connection timeout"))
	case failureClosed:
		logging.Info("session", "connection closed", nil)
		s.emit(connectionEvent(false, ""))
		s.emit(logEvent(LogInfo, "Connection closed"))
	default:
		logging.Error("session", "connection error", map[string]interface{}{"error": err.Error()})
		s.emit(connectionEvent(false, err.Error()))
		s.emit(logEvent(LogError, fmt.Sprintf("Connection error: %v", err)))
	}

	if s.policy.OnClosed(s.host != "", retry) {
		s.emit(logEvent(LogInfo, fmt.Sprintf("Auto-reconnecting in %s...", s.opts.ClosedRetryDelay)))
	}
	s.refresh()
}

func (s *Session) disconnect() {
	// Nothing live, dialing or waiting to retry: already disconnected
	active := s.tr != nil || s.dialCancel != nil || s.policy.Pending() || s.state != StateDisconnected
	s.policy.BeginDisconnect()

	if t := s.tr; t != nil {
		if err := t.closeWrite(); err != nil {
			logging.Debugf("session", "half-close failed: %v", err)
		}
		time.AfterFunc(s.opts.CloseGrace, t.close)
		s.tr = nil
	}
	s.dropTransport()
	s.setState(StateDisconnected)

	if !active {
		return
	}
	s.emit(connectionEvent(false, ""))
	s.emit(logEvent(LogInfo, "Disconnected"))
	logging.Info("session", "disconnected", nil)
}

// dropTransport destroys the current transport and any dial in progress.
// Bumping gen turns every callback still in flight into a no-op.
func (s *Session) dropTransport() {
	if s.dialCancel != nil {
		s.dialCancel()
		s.dialCancel = nil
	}
	if s.settle != nil {
		s.settle.Stop()
		s.settle = nil
	}
	if s.tr != nil {
		s.tr.close()
		s.tr = nil
	}

	s.gen++
	s.framer.Reset()
	s.telemetryActive = false
	s.telemetryPending = false
}

func (s *Session) shutdown() {
	s.policy.BeginDisconnect()
	hadTransport := s.tr != nil
	s.dropTransport()
	s.setState(StateDisconnected)

	if hadTransport {
		s.emit(connectionEvent(false, ""))
	}
}
