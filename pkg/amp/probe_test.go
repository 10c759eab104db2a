package amp

import (
	"bufio"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnce runs handler on the first accepted connection
func serveOnce(t *testing.T, handler func(c net.Conn)) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		handler(c)
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func TestProbeBanner(t *testing.T) {
	gotPassword := make(chan string, 1)
	port := serveOnce(t, func(c net.Conn) {
		r := bufio.NewReader(c)
		c.Write([]byte("password>"))
		line, _ := r.ReadString('\n')
		gotPassword <- line
		c.Write([]byte("\n" + testBanner + "\n"))
		time.Sleep(time.Second)
	})

	res := Probe(context.Background(), "127.0.0.1", port, ProbeOptions{})
	assert.True(t, res.Success, res.Error)
	assert.Equal(t, testBanner, res.Banner)
	assert.Equal(t, DefaultProbePassword+"\n", <-gotPassword)
}

func TestProbeBannerRightAfterPrompt(t *testing.T) {
	port := serveOnce(t, func(c net.Conn) {
		r := bufio.NewReader(c)
		c.Write([]byte("password>"))
		r.ReadString('\n')
		c.Write([]byte(testBanner + "\n"))
		time.Sleep(time.Second)
	})

	res := Probe(context.Background(), "127.0.0.1", port, ProbeOptions{Delay: time.Second})
	assert.True(t, res.Success, res.Error)
	assert.Equal(t, testBanner, res.Banner)
}

// writeFailConn reads normally but rejects every write
type writeFailConn struct {
	net.Conn
}

func (c writeFailConn) Write(p []byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestProbePasswordWriteFailure(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	go server.Write([]byte("password>"))

	opts := ProbeOptions{Password: "1234", Delay: time.Second}
	res := runProbe(writeFailConn{client}, opts, time.Now().Add(500*time.Millisecond))
	assert.False(t, res.Success)
	assert.Equal(t, "Connection failed: broken pipe", res.Error)
}

func TestProbeStatusFallback(t *testing.T) {
	port := serveOnce(t, func(c net.Conn) {
		r := bufio.NewReader(c)
		line, _ := r.ReadString('\n')
		if line == "S\n" {
			c.Write([]byte("BAND=14MHZ,STATE=SB,POWER=0W:0W\n"))
		}
		time.Sleep(time.Second)
	})

	res := Probe(context.Background(), "127.0.0.1", port, ProbeOptions{Delay: 10 * time.Millisecond})
	assert.True(t, res.Success, res.Error)
	assert.Equal(t, statusVerifiedBanner, res.Banner)
}

func TestProbeNoResponse(t *testing.T) {
	port := serveOnce(t, func(c net.Conn) {
		time.Sleep(time.Second)
	})

	start := time.Now()
	res := Probe(context.Background(), "127.0.0.1", port, ProbeOptions{Timeout: 150 * time.Millisecond, Delay: 10 * time.Millisecond})
	assert.False(t, res.Success)
	assert.Equal(t, probeNoResponse, res.Error)
	assert.Less(t, time.Since(start), time.Second)
}

func TestProbeRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	res := Probe(context.Background(), "127.0.0.1", port, ProbeOptions{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Connection failed")
}

func TestProbeInvalidHost(t *testing.T) {
	res := Probe(context.Background(), "", 9100, ProbeOptions{})
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}
