package amp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Probe defaults
const (
	DefaultProbeTimeout  = 2 * time.Second
	DefaultProbeDelay    = 200 * time.Millisecond
	DefaultProbePassword = "1234"

	statusVerifiedBanner = "LinearAmpUK Amplifier (verified by status)"
	probeNoResponse      = "No response from amplifier (may be in use by another connection)"
)

// ProbeOptions tunes a one-shot connection test
type ProbeOptions struct {
	Password string
	Timeout  time.Duration
	Delay    time.Duration
	Dial     DialFunc
}

// ProbeResult reports whether an amplifier answered at the address
type ProbeResult struct {
	Success bool   `json:"success"`
	Banner  string `json:"banner,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Probe opens a throwaway connection, answers the password prompt, asks for
// one status line and reports what came back. It never touches a Session.
func Probe(ctx context.Context, host string, port int, opts ProbeOptions) ProbeResult {
	if port == 0 {
		port = DefaultPort
	}
	if err := validateTarget(host, port); err != nil {
		return ProbeResult{Error: err.Error()}
	}
	if opts.Password == "" {
		opts.Password = DefaultProbePassword
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProbeTimeout
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultProbeDelay
	}
	if opts.Dial == nil {
		opts.Dial = tcpDialer(opts.Timeout, DefaultKeepAlive)
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	conn, err := opts.Dial(ctx, joinHostPort(host, port))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ProbeResult{Error: "Connection timeout"}
		}
		return ProbeResult{Error: fmt.Sprintf("Connection failed: %v", err)}
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	return runProbe(conn, opts, deadline)
}

func runProbe(conn net.Conn, opts ProbeOptions, deadline time.Time) ProbeResult {
	framer := NewLineFramer()
	probeAt := time.Now().Add(opts.Delay)
	probeSent := false
	buf := make([]byte, readSize)

	answer := func() error {
		_, err := conn.Write([]byte(opts.Password + LineTerminator))
		return err
	}

	for {
		now := time.Now()
		if !now.Before(deadline) {
			return ProbeResult{Error: probeNoResponse}
		}

		if !probeSent && !now.Before(probeAt) {
			if _, err := conn.Write([]byte(CmdProbe + LineTerminator)); err != nil {
				return ProbeResult{Error: fmt.Sprintf("Connection failed: %v", err)}
			}
			probeSent = true
		}

		wake := deadline
		if !probeSent && probeAt.Before(wake) {
			wake = probeAt
		}
		conn.SetReadDeadline(wake)

		n, err := conn.Read(buf)
		if n > 0 {
			for _, line := range framer.Feed(buf[:n]) {
				line = strings.TrimSpace(line)
				if rest, ok := strings.CutPrefix(line, PasswordPrompt); ok {
					if werr := answer(); werr != nil {
						return ProbeResult{Error: fmt.Sprintf("Connection failed: %v", werr)}
					}
					line = strings.TrimSpace(rest)
				}
				if line == "" {
					continue
				}

				c := Classify(line, false)
				switch {
				case c.Kind == LineBanner:
					return ProbeResult{Success: true, Banner: line}
				case strings.Contains(line, "BAND=") && strings.Contains(line, "POWER="):
					return ProbeResult{Success: true, Banner: statusVerifiedBanner}
				}
			}

			if framer.DiscardPrefix(PasswordPrompt) {
				if werr := answer(); werr != nil {
					return ProbeResult{Error: fmt.Sprintf("Connection failed: %v", werr)}
				}
			}
		}

		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return ProbeResult{Error: fmt.Sprintf("Connection failed: %v", err)}
		}
	}
}
