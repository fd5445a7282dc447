package transport

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/homelink/protocol"
)

// maxDatagramSize is the largest UDP payload
const maxDatagramSize = 65535

// Responder answers a single datagram.
type Responder interface {
	Respond(datagram []byte) protocol.Response
}

// UDP serves the thermometer protocol. Each listener answers its datagrams
// one at a time in its own goroutine; no state is kept between datagrams.
type UDP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr string

	numListeners int
	conns        []net.PacketConn

	responder Responder
	options   Options
	metrics   *Metrics

	log *zap.Logger
}

func NewUDP(options Options, responder Responder) *UDP {
	return &UDP{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		numListeners: options.listenerCount(),
		conns:        make([]net.PacketConn, 0, options.listenerCount()),
		responder:    responder,
		options:      options,
		metrics:      options.Metrics,
		log:          options.logger(),
	}
}

// Start binds every socket before returning (a *BindError is fatal) and
// then answers datagrams in the background.
func (u *UDP) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	u.cancel = cancel

	u.log.Info("Starting udp listeners", zap.Int("count", u.numListeners))

	addr := u.addr
	for i := 0; i < u.numListeners; i++ {
		conn, err := listenUDP(addr, u.options.Reuseport)
		if err != nil {
			cancel()
			for _, c := range u.conns {
				c.Close()
			}
			u.conns = u.conns[:0]

			return err
		}

		if i == 0 {
			addr = conn.LocalAddr().String()
		}

		u.conns = append(u.conns, conn)

		u.stopWaiter.Add(1)
		go func(conn net.PacketConn, log *zap.Logger) {
			defer u.stopWaiter.Done()
			u.readLoop(ctx, conn, log)
		}(conn, u.log.Named("listener").With(zap.Int("listener", i)))
	}

	go func() {
		<-ctx.Done()
		u.closeConns()
	}()

	return nil
}

// Addr returns the address the server is listening on, nil before Start.
func (u *UDP) Addr() net.Addr {
	if len(u.conns) == 0 {
		return nil
	}

	return u.conns[0].LocalAddr()
}

// Close closes every socket and waits for the read loops to exit.
func (u *UDP) Close() error {
	if u.cancel == nil {
		return nil
	}

	u.log.Info("Stopping UDP server")
	u.cancel()

	err := u.closeConns()
	u.stopWaiter.Wait()
	u.log.Info("UDP server stopped")

	return err
}

func (u *UDP) closeConns() (err error) {
	for _, conn := range u.conns {
		if cerr := conn.Close(); cerr != nil && !isClosed(cerr) {
			err = multierr.Append(err, cerr)
		}
	}

	return err
}

func (u *UDP) readLoop(ctx context.Context, conn net.PacketConn, log *zap.Logger) {
	buf := make([]byte, maxDatagramSize)

	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if isClosed(err) || ctx.Err() != nil {
				log.Info("Read loop exited")
				return
			}

			u.metrics.transportError("udp")
			log.Warn("Failed to receive datagram", zap.Error(err))
			continue
		}

		u.metrics.datagramReceived()
		resp := u.responder.Respond(buf[:n])

		if u.options.WriteTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(u.options.WriteTimeout))
		}

		if _, err := conn.WriteTo([]byte(protocol.Format(resp)), addr); err != nil {
			u.metrics.transportError("udp")
			log.Warn("Failed to send reply",
				zap.Stringer("peer", addr),
				zap.Error(err))
			continue
		}

		u.metrics.replySent(resp.Status)
		log.Debug("Replied to datagram",
			zap.Stringer("peer", addr),
			zap.Stringer("status", resp.Status))
	}
}
