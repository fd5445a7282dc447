package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luma/homelink/protocol"
)

var ErrDisconnected = errors.New("Connection to the server is closed")

const DefaultTimeout = 5 * time.Second

type Options struct {
	// Timeout bounds connecting and every request/response exchange when the
	// context has no deadline of its own
	Timeout time.Duration

	// MaxLineLength bounds the response lines accepted from the server
	MaxLineLength int

	Log *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}

	if o.MaxLineLength <= 0 {
		o.MaxLineLength = protocol.DefaultMaxLineLength
	}

	if o.Log == nil {
		o.Log = zap.NewNop()
	}

	return o
}

// Conn is a socket protocol client. Requests are strictly sequential, Send
// holds a lock for the whole exchange.
type Conn struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
	closed bool

	options Options
	log     *zap.Logger
}

// Dial connects to a socket server.
func Dial(ctx context.Context, addr string, options Options) (*Conn, error) {
	options = options.withDefaults()

	dialer := net.Dialer{Timeout: options.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to %s: %w", addr, err)
	}

	return &Conn{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		options: options,
		log:     options.Log.With(zap.String("server", addr)),
	}, nil
}

// Send writes one command line and returns the single response line.
//
// Once the server has closed the connection, after an exit for instance,
// Send returns ErrDisconnected.
func (c *Conn) Send(ctx context.Context, line string) (protocol.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return protocol.Response{}, ErrDisconnected
	}

	if err := ctx.Err(); err != nil {
		return protocol.Response{}, err
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.options.Timeout)
	}

	if err := c.conn.SetDeadline(deadline); err != nil {
		return protocol.Response{}, err
	}

	// Unblock the exchange if ctx is cancelled first
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.SetDeadline(time.Now())
		case <-stop:
		}
	}()

	c.log.Debug("Sending command", zap.String("command", line))

	if err := protocol.WriteLine(c.conn, line); err != nil {
		return protocol.Response{}, c.failed(ctx, fmt.Errorf("Failed to send command: %w", err))
	}

	raw, err := protocol.ReadLine(c.reader, c.options.MaxLineLength)
	if err != nil {
		return protocol.Response{}, c.failed(ctx, fmt.Errorf("Failed to read response: %w", err))
	}

	resp := protocol.ParseResponse(raw)
	c.log.Debug("Received response", zap.String("response", resp.Text))

	if protocol.Parse(line).Kind == protocol.Exit {
		_ = c.closeLocked()
	}

	return resp, nil
}

// Close closes the connection. It is safe to call more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.closeLocked()
}

func (c *Conn) closeLocked() error {
	if c.closed {
		return nil
	}

	c.closed = true
	return c.conn.Close()
}

// failed closes the connection after a transport error, the stream is no
// longer in step with the server.
func (c *Conn) failed(ctx context.Context, err error) error {
	_ = c.closeLocked()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}

	return err
}
