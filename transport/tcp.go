package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/homelink/protocol"
	"github.com/luma/homelink/session"
)

// SessionFactory creates the session that serves one connection.
type SessionFactory interface {
	NewSession(peer string) *session.Session
}

// TCP serves the socket protocol. Every connection runs its own session in
// its own goroutine; connections share nothing but the listener.
type TCP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr string

	numListeners int
	listeners    []*TCPListener

	sessions SessionFactory
	options  Options

	log *zap.Logger
}

func NewTCP(options Options, sessions SessionFactory) *TCP {
	if options.MaxLineLength <= 0 {
		options.MaxLineLength = protocol.DefaultMaxLineLength
	}

	return &TCP{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		numListeners: options.listenerCount(),
		listeners:    make([]*TCPListener, 0, options.listenerCount()),
		sessions:     sessions,
		options:      options,
		log:          options.logger(),
	}
}

// Start binds every listener before returning, so a *BindError reports that
// the server cannot run. Connections are then accepted in the background
// until ctx is cancelled or Close is called.
func (w *TCP) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	w.cancel = cancel

	w.log.Info("Starting tcp listeners", zap.Int("count", w.numListeners))

	addr := w.addr
	for i := 0; i < w.numListeners; i++ {
		listener, err := listenTCP(addr, w.options.Reuseport)
		if err != nil {
			cancel()
			for _, l := range w.listeners {
				l.Close()
			}
			w.listeners = w.listeners[:0]

			return err
		}

		// With port 0 the remaining listeners join whichever port the first got
		if i == 0 {
			addr = listener.Addr().String()
		}

		w.startListener(ctx, listener)
	}

	return nil
}

func (w *TCP) startListener(ctx context.Context, l net.Listener) {
	w.stopWaiter.Add(1)

	listener := NewTCPListener(
		ctx,
		l,
		w.sessions,
		w.options,
		w.log.Named("listener").With(zap.Int("listener", len(w.listeners))),
	)

	w.listeners = append(w.listeners, listener)

	go func() {
		defer w.stopWaiter.Done()

		if err := listener.Listen(); err != nil {
			w.log.Error("Listener stopped accepting connections", zap.Error(err))
		}
	}()
}

// Addr returns the address the server is listening on, nil before Start.
func (w *TCP) Addr() net.Addr {
	if len(w.listeners) == 0 {
		return nil
	}

	return w.listeners[0].Addr()
}

// Close immediately closes all listeners and active connections and waits
// for their goroutines to exit.
func (w *TCP) Close() (err error) {
	if w.cancel == nil {
		return nil
	}

	w.log.Info("Stopping TCP server")
	w.cancel()

	for _, listener := range w.listeners {
		err = multierr.Append(err, listener.Close())
	}

	w.log.Info("Waiting for connections to close")
	w.stopWaiter.Wait()
	w.log.Info("TCP server stopped")

	return err
}

type TCPListener struct {
	ctx context.Context

	listener net.Listener
	sessions SessionFactory
	options  Options

	closeOnce sync.Once
	closeErr  error

	mu          sync.Mutex
	closed      bool
	activeConns map[*TCPConn]struct{}

	loopWaiter sync.WaitGroup

	log *zap.Logger
}

func NewTCPListener(
	ctx context.Context,
	listener net.Listener,
	sessions SessionFactory,
	options Options,
	log *zap.Logger,
) *TCPListener {
	return &TCPListener{
		ctx:         ctx,
		listener:    listener,
		sessions:    sessions,
		options:     options,
		activeConns: make(map[*TCPConn]struct{}),
		log:         log,
	}
}

func (t *TCPListener) Addr() net.Addr {
	return t.listener.Addr()
}

// Close stops accepting and closes every active connection. It is safe to
// call more than once.
func (t *TCPListener) Close() error {
	t.closeOnce.Do(func() {
		if err := t.listener.Close(); err != nil && !isClosed(err) {
			t.closeErr = err
		}

		t.mu.Lock()
		t.closed = true
		conns := make([]*TCPConn, 0, len(t.activeConns))
		for conn := range t.activeConns {
			conns = append(conns, conn)
		}
		t.mu.Unlock()

		for _, conn := range conns {
			conn.Close()
		}
	})

	return t.closeErr
}

// Listen accepts connections until the listener is closed, then waits for
// the connections' loops to exit.
func (t *TCPListener) Listen() error {
	defer t.loopWaiter.Wait()

	go func() {
		<-t.ctx.Done()
		if err := t.Close(); err != nil {
			t.log.Warn("TCP Listener did not close cleanly", zap.Error(err))
		}
	}()

	var backoff time.Duration

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if isClosed(err) || t.ctx.Err() != nil {
				t.log.Info("Stopped accepting new connections")
				return nil
			}

			if !isTemporary(err) {
				return err
			}

			backoff = nextAcceptBackoff(backoff)
			t.log.Warn("Failed to accept connection, retrying",
				zap.Duration("backoff", backoff),
				zap.Error(err))

			select {
			case <-t.ctx.Done():
				t.log.Info("Stopped accepting new connections")
				return nil
			case <-time.After(backoff):
			}

			continue
		}

		backoff = 0

		peer := conn.RemoteAddr().String()
		tcpConn := NewTCPConn(
			t.ctx,
			conn,
			t.sessions.NewSession(peer),
			t.options,
			t.log.Named("conn").With(zap.String("peer", peer)),
		)

		if !t.addConn(tcpConn) {
			// Close raced with Accept
			tcpConn.teardown()
			continue
		}

		t.loopWaiter.Add(1)
		go func() {
			defer t.loopWaiter.Done()
			defer t.removeConn(tcpConn)

			tcpConn.Serve()
		}()
	}
}

// ActiveConns returns the number of connections being served.
func (t *TCPListener) ActiveConns() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.activeConns)
}

func (t *TCPListener) addConn(conn *TCPConn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}

	t.activeConns[conn] = struct{}{}
	return true
}

func (t *TCPListener) removeConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}

// TCPConn drives the read-execute-write loop of one connection. A response
// is always fully written before the next line is read.
type TCPConn struct {
	ctx    context.Context
	cancel context.CancelFunc

	conn    net.Conn
	reader  *bufio.Reader
	session *session.Session

	maxLineLength int
	readTimeout   time.Duration
	writeTimeout  time.Duration

	// halfClosed is set once the peer ended its stream after an unterminated
	// line; that line is answered and then the connection closes
	halfClosed bool

	closeOnce sync.Once
	metrics   *Metrics

	log *zap.Logger
}

func NewTCPConn(
	parentCtx context.Context,
	conn net.Conn,
	sess *session.Session,
	options Options,
	log *zap.Logger,
) *TCPConn {
	ctx, cancel := context.WithCancel(parentCtx)

	return &TCPConn{
		ctx:           ctx,
		cancel:        cancel,
		conn:          conn,
		reader:        bufio.NewReader(conn),
		session:       sess,
		maxLineLength: options.MaxLineLength,
		readTimeout:   options.ReadTimeout,
		writeTimeout:  options.WriteTimeout,
		metrics:       options.Metrics,
		log:           log.With(zap.String("session", sess.ID().String())),
	}
}

// Close asks the connection to stop. The blocked read fails and Serve
// returns.
func (t *TCPConn) Close() error {
	t.cancel()
	return nil
}

// Serve runs the session until exit, disconnect, an I/O failure or Close.
func (t *TCPConn) Serve() {
	t.metrics.sessionOpened()
	defer t.metrics.sessionClosed()

	t.log.Info("Client connected")

	defer t.teardown()

	go func() {
		<-t.ctx.Done()
		t.closeConn()
	}()

	for !t.session.Done() {
		resp, ok := t.next()
		if !ok {
			return
		}

		if t.writeTimeout > 0 {
			_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
		}

		if err := protocol.WriteResponse(t.conn, resp); err != nil {
			if t.ctx.Err() == nil {
				t.metrics.transportError("tcp")
				t.log.Warn("Failed to write response", zap.Error(err))
			}
			return
		}

		if t.halfClosed {
			t.log.Info("Client disconnected after an unterminated line")
			return
		}
	}

	t.log.Info("Session finished, disconnecting client")
}

// next reads one line and returns the response it earns. ok is false when
// the connection is finished.
func (t *TCPConn) next() (resp protocol.Response, ok bool) {
	if t.readTimeout > 0 {
		_ = t.conn.SetReadDeadline(time.Now().Add(t.readTimeout))
	}

	line, err := protocol.ReadLine(t.reader, t.maxLineLength)

	switch {
	case err == nil:
		return t.execute(line)

	case errors.Is(err, io.ErrUnexpectedEOF) && line != "":
		t.halfClosed = true
		return t.execute(line)

	case errors.Is(err, protocol.ErrLineTooLong):
		t.metrics.commandReceived(protocol.Unknown)
		t.log.Warn("Client sent an oversized line", zap.Error(err))

		return protocol.LineTooLong(t.maxLineLength), true

	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		t.log.Info("Client disconnected")
		return resp, false

	case t.ctx.Err() != nil:
		t.log.Info("Connection closed by server")
		return resp, false

	default:
		t.metrics.transportError("tcp")
		t.log.Warn("Failed to read client request", zap.Error(err))
		return resp, false
	}
}

func (t *TCPConn) execute(line string) (protocol.Response, bool) {
	cmd := protocol.Parse(line)
	t.metrics.commandReceived(cmd.Kind)

	resp, err := t.session.Execute(t.ctx, cmd)
	if err != nil {
		t.log.Warn("Failed to execute command", zap.Error(err))
		return resp, false
	}

	return resp, true
}

func (t *TCPConn) closeConn() {
	t.closeOnce.Do(func() {
		if err := t.conn.Close(); err != nil && !isClosed(err) {
			t.log.Warn("Failed to close connection cleanly", zap.Error(err))
		}
	})
}

func (t *TCPConn) teardown() {
	t.session.Close()
	t.cancel()
	t.closeConn()
}
