// Package session implements the per-connection state machine of the socket
// protocol.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/luma/homelink/device"
	"github.com/luma/homelink/protocol"
	"github.com/luma/homelink/storage"
)

var ErrSessionClosed = errors.New("Session is closed")

// State of a session. Closed is terminal.
type State int

const (
	Running State = iota
	Closed
)

func (s State) String() string {
	if s == Closed {
		return "closed"
	}

	return "running"
}

// Session executes the commands of one connection against the socket it
// owns. It is not safe for concurrent use, the connection's loop is its only
// caller.
type Session struct {
	id     uuid.UUID
	socket *device.Socket
	state  State

	// owned is closed with the session, it is nil when the store is shared
	owned storage.Store

	log *zap.Logger
}

func newSession(socket *device.Socket, owned storage.Store, log *zap.Logger) *Session {
	id := uuid.New()

	return &Session{
		id:     id,
		socket: socket,
		state:  Running,
		owned:  owned,
		log:    log.With(zap.String("session", id.String())),
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) State() State {
	return s.state
}

// Done reports whether the connection should be closed.
func (s *Session) Done() bool {
	return s.state == Closed
}

// Execute runs cmd and returns the response to send back. Every command
// produces exactly one response; only executing on a closed session fails.
func (s *Session) Execute(ctx context.Context, cmd protocol.Command) (protocol.Response, error) {
	if s.state == Closed {
		return protocol.Response{}, ErrSessionClosed
	}

	switch cmd.Kind {
	case protocol.On:
		if err := s.socket.TurnOn(ctx); err != nil {
			return s.failed(cmd, err), nil
		}

		s.log.Info("Socket turned ON")
		return protocol.PowerChanged(device.PowerOn), nil

	case protocol.Off:
		if err := s.socket.TurnOff(ctx); err != nil {
			return s.failed(cmd, err), nil
		}

		s.log.Info("Socket turned OFF")
		return protocol.PowerChanged(device.PowerOff), nil

	case protocol.Status:
		state, err := s.socket.PowerState(ctx)
		if err != nil {
			return s.failed(cmd, err), nil
		}

		return protocol.StatusReport(state), nil

	case protocol.Info:
		return protocol.Ok(s.socket.Identity().String()), nil

	case protocol.Help:
		return protocol.HelpText(), nil

	case protocol.Exit:
		s.log.Info("Client requested exit")
		s.Close()
		return protocol.Goodbye(), nil

	case protocol.Unknown, protocol.TemperatureQuery:
		s.log.Warn("Failed to parse command",
			zap.Error(fmt.Errorf("'%s': %w", cmd.Raw, protocol.ErrUnknownCommand)))

		return protocol.UnknownCommand(cmd.Raw), nil

	default:
		return protocol.UnknownCommand(cmd.Raw), nil
	}
}

// Close moves the session to Closed and releases the store it owns. It is
// safe to call more than once.
func (s *Session) Close() {
	if s.state == Closed {
		return
	}

	s.state = Closed

	if s.owned == nil {
		return
	}

	if state, err := s.owned.Backup(); err == nil {
		s.log.Debug("Releasing session state", zap.ByteString("state", state))
	}

	if err := s.owned.Close(); err != nil {
		s.log.Warn("Failed to close session store", zap.Error(err))
	}
}

func (s *Session) failed(cmd protocol.Command, err error) protocol.Response {
	s.log.Error("Failed to execute command",
		zap.Stringer("command", cmd.Kind),
		zap.Error(err))

	return protocol.InternalError(err)
}
