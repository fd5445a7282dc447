package session

import (
	"go.uber.org/zap"

	"github.com/luma/homelink/device"
	"github.com/luma/homelink/storage"
)

// Factory builds the Session for each new connection.
//
// Without a shared store every session gets a socket of its own that lives
// and dies with the connection. With one, all sessions switch the same socket.
type Factory struct {
	identity device.Identity
	shared   storage.Store
	log      *zap.Logger
}

func NewFactory(identity device.Identity, shared storage.Store, log *zap.Logger) *Factory {
	return &Factory{
		identity: identity,
		shared:   shared,
		log:      log,
	}
}

func (f *Factory) NewSession(peer string) *Session {
	log := f.log.With(zap.String("peer", peer))

	if f.shared != nil {
		return newSession(device.NewSocket(f.identity, f.shared), nil, log)
	}

	store := storage.NewInmemoryStore()
	return newSession(device.NewSocket(f.identity, store), store, log)
}

// Shared reports whether sessions share one socket.
func (f *Factory) Shared() bool {
	return f.shared != nil
}
