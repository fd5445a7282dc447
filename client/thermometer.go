package client

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luma/homelink/protocol"
)

// DefaultQuery is the payload sent when the caller has nothing to say.
const DefaultQuery = "temperature"

// drainWindow is how long Query waits for stale replies before sending
const drainWindow = time.Millisecond

// Thermometer queries a thermometer server. Each Query is one datagram and
// one reply.
type Thermometer struct {
	mu   sync.Mutex
	conn net.Conn

	options Options
	log     *zap.Logger
}

func DialThermometer(ctx context.Context, addr string, options Options) (*Thermometer, error) {
	options = options.withDefaults()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "udp", addr)
	if err != nil {
		return nil, fmt.Errorf("Failed to resolve %s: %w", addr, err)
	}

	return &Thermometer{
		conn:    conn,
		options: options,
		log:     options.Log.With(zap.String("server", addr)),
	}, nil
}

// Query sends payload and waits for the reply. A lost datagram or an
// unreachable server surfaces as a timeout error.
func (t *Thermometer) Query(ctx context.Context, payload string) (protocol.Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	buf := make([]byte, 512)
	t.discardStale(buf)

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(t.options.Timeout)
	}

	if err := t.conn.SetDeadline(deadline); err != nil {
		return protocol.Response{}, err
	}

	if _, err := t.conn.Write([]byte(payload)); err != nil {
		return protocol.Response{}, fmt.Errorf("Failed to send query: %w", err)
	}

	n, err := t.conn.Read(buf)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("Failed to receive reading: %w", err)
	}

	resp := protocol.ParseResponse(string(buf[:n]))
	t.log.Debug("Received reading", zap.String("response", resp.Text))

	return resp, nil
}

// discardStale drops replies that arrived after an earlier Query timed out,
// otherwise they would be taken as the answer to the next one.
func (t *Thermometer) discardStale(buf []byte) {
	for {
		// An already expired deadline fails the read before it looks at the
		// socket, so allow it a moment
		if err := t.conn.SetReadDeadline(time.Now().Add(drainWindow)); err != nil {
			return
		}

		n, err := t.conn.Read(buf)
		if err != nil {
			return
		}

		t.log.Debug("Discarded late reply", zap.ByteString("response", buf[:n]))
	}
}

// Read queries the thermometer and decodes the reading.
func (t *Thermometer) Read(ctx context.Context) (float64, string, error) {
	resp, err := t.Query(ctx, DefaultQuery)
	if err != nil {
		return 0, "", err
	}

	if err := resp.ErrorOrNil(); err != nil {
		return 0, "", err
	}

	return protocol.ParseTemperature(resp.Text)
}

func (t *Thermometer) Close() error {
	return t.conn.Close()
}
