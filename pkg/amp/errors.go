package amp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	// ErrNotConnected is returned when a command is sent without a live transport
	ErrNotConnected = errors.New("amplifier not connected")

	// ErrEmptyCommand is returned for blank command tokens
	ErrEmptyCommand = errors.New("empty command")

	// ErrSendQueueFull is returned when the transport cannot accept more writes
	ErrSendQueueFull = errors.New("send queue full")

	// ErrInactivityTimeout closes a transport that stayed silent too long
	ErrInactivityTimeout = errors.New("no data received within inactivity timeout")

	// ErrSessionClosed is returned after Close
	ErrSessionClosed = errors.New("session closed")
)

// ConfigurationError reports a missing or invalid amplifier address. It is
// returned to the caller and never retried.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid amplifier configuration: %s %s", e.Field, e.Reason)
}

func validateTarget(host string, port int) error {
	if host == "" {
		return &ConfigurationError{Field: "host", Reason: "is empty"}
	}
	if port <= 0 || port > 65535 {
		return &ConfigurationError{Field: "port", Reason: fmt.Sprintf("%d out of range", port)}
	}
	return nil
}

// failureKind groups transport errors by how the reconnect policy treats them
type failureKind int

const (
	failureClosed failureKind = iota
	failureRefused
	failureTimeout
	failureOther
)

func classifyFailure(err error) failureKind {
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
		return failureClosed
	case errors.Is(err, syscall.ECONNREFUSED), errors.Is(err, syscall.ECONNRESET):
		return failureRefused
	case errors.Is(err, ErrInactivityTimeout):
		return failureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return failureTimeout
	}
	return failureOther
}
