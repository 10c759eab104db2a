package amp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	ztelnet "github.com/ziutek/telnet"
)

// DialFunc opens the raw connection to the amplifier
type DialFunc func(ctx context.Context, address string) (net.Conn, error)

// tcpDialer dials with a connect timeout and TCP keep-alive probing
func tcpDialer(connectTimeout, keepAlive time.Duration) DialFunc {
	d := &net.Dialer{Timeout: connectTimeout, KeepAlive: keepAlive}
	return func(ctx context.Context, address string) (net.Conn, error) {
		return d.DialContext(ctx, "tcp", address)
	}
}

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// outbound is one queued write. display is what the log shows, so the
// password never reaches the operator log.
type outbound struct {
	frame   []byte
	display string
}

// transport is one connection generation. Its reader and writer goroutines
// report back to the session tagged with gen, so callbacks from a replaced
// transport are recognised and ignored.
type transport struct {
	gen  uint64
	raw  net.Conn
	conn net.Conn // raw, or raw wrapped in a telnet codec

	out       chan outbound
	done      chan struct{}
	closeOnce sync.Once
}

func newTransport(gen uint64, raw net.Conn, useTelnet bool, queue int) (*transport, error) {
	t := &transport{
		gen:  gen,
		raw:  raw,
		conn: raw,
		out:  make(chan outbound, queue),
		done: make(chan struct{}),
	}

	if useTelnet {
		tconn, err := ztelnet.NewConn(raw)
		if err != nil {
			raw.Close()
			return nil, fmt.Errorf("failed to wrap telnet connection: %w", err)
		}
		t.conn = tconn
	}

	return t, nil
}

// enqueue hands a frame to the writer without blocking
func (t *transport) enqueue(o outbound) error {
	select {
	case <-t.done:
		return ErrNotConnected
	default:
	}

	select {
	case t.out <- o:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// closeWrite half-closes the TCP stream when supported
func (t *transport) closeWrite() error {
	if cw, ok := t.raw.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return t.raw.Close()
}

// close stops the writer and destroys the connection; safe to call repeatedly
func (t *transport) close() {
	t.closeOnce.Do(func() {
		close(t.done)
		t.raw.Close()
	})
}

func (t *transport) closed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}
