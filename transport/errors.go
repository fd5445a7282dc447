package transport

import (
	"errors"
	"fmt"
	"net"
	"syscall"
	"time"

	reuseport "github.com/kavu/go_reuseport"
)

// BindError means a server could not claim its address. It is fatal for that
// server.
type BindError struct {
	Network string
	Addr    string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("Failed to bind %s %s: %v", e.Network, e.Addr, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}

func listenTCP(addr string, reuse bool) (net.Listener, error) {
	var (
		listener net.Listener
		err      error
	)

	if reuse {
		listener, err = reuseport.Listen("tcp", addr)
	} else {
		listener, err = net.Listen("tcp", addr)
	}

	if err != nil {
		return nil, &BindError{Network: "tcp", Addr: addr, Err: err}
	}

	return listener, nil
}

func listenUDP(addr string, reuse bool) (net.PacketConn, error) {
	var (
		conn net.PacketConn
		err  error
	)

	if reuse {
		conn, err = reuseport.ListenPacket("udp", addr)
	} else {
		conn, err = net.ListenPacket("udp", addr)
	}

	if err != nil {
		return nil, &BindError{Network: "udp", Addr: addr, Err: err}
	}

	return conn, nil
}

// isClosed reports errors caused by closing a listener or connection we are
// blocked on, which is how shutdown unblocks the loops.
func isClosed(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// isTemporary reports Accept errors the listener survives, such as running
// out of file descriptors or a peer aborting before the accept completed.
func isTemporary(err error) bool {
	if errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	var netErr interface{ Temporary() bool }
	return errors.As(err, &netErr) && netErr.Temporary()
}

// nextAcceptBackoff doubles the previous delay, starting at 5ms and capped
// at one second.
func nextAcceptBackoff(prev time.Duration) time.Duration {
	if prev == 0 {
		return minAcceptBackoff
	}

	if next := prev * 2; next < maxAcceptBackoff {
		return next
	}

	return maxAcceptBackoff
}
