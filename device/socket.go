package device

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/luma/homelink/storage"
)

// PowerState is the on/off state of a socket.
type PowerState bool

const (
	PowerOff PowerState = false
	PowerOn  PowerState = true
)

func (p PowerState) String() string {
	if p {
		return "ON"
	}

	return "OFF"
}

// ParsePowerState accepts the forms String produces.
func ParsePowerState(s string) (PowerState, error) {
	switch s {
	case "ON":
		return PowerOn, nil
	case "OFF":
		return PowerOff, nil
	default:
		return PowerOff, fmt.Errorf("invalid power state %q", s)
	}
}

// Identity is the static description of a socket.
type Identity struct {
	Name       string
	Model      string
	RatedPower int
}

func (i Identity) String() string {
	return fmt.Sprintf("%s (model %s, rated %dW)", i.Name, i.Model, i.RatedPower)
}

// powerKey is where a socket keeps its state inside its store
const powerKey = "socket.power"

// Socket is a switchable socket whose power state lives in a storage.Store.
//
// Sessions that each own a store get independent sockets, sessions sharing
// a store see the same socket.
type Socket struct {
	identity Identity
	store    storage.Store
}

func NewSocket(identity Identity, store storage.Store) *Socket {
	return &Socket{
		identity: identity,
		store:    store,
	}
}

func (s *Socket) Identity() Identity {
	return s.identity
}

func (s *Socket) TurnOn(ctx context.Context) error {
	return s.setPower(ctx, PowerOn)
}

func (s *Socket) TurnOff(ctx context.Context) error {
	return s.setPower(ctx, PowerOff)
}

// PowerState returns the current state. A socket that was never switched
// is off.
func (s *Socket) PowerState(ctx context.Context) (PowerState, error) {
	raw, err := s.store.Get(ctx, powerKey)
	if errors.Is(err, storage.ErrNotFound) {
		return PowerOff, nil
	}

	if err != nil {
		return PowerOff, fmt.Errorf("Failed to read power state: %w", err)
	}

	state, err := strconv.Unquote(string(raw))
	if err != nil {
		return PowerOff, fmt.Errorf("Failed to decode power state %s: %w", raw, err)
	}

	return ParsePowerState(state)
}

func (s *Socket) setPower(ctx context.Context, state PowerState) error {
	if err := s.store.Set(ctx, powerKey, state.String()); err != nil {
		return fmt.Errorf("Failed to set power state: %w", err)
	}

	return nil
}
