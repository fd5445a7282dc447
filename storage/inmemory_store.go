package storage

import (
	"context"
	"sync"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

type InmemoryStore struct {
	mu     sync.RWMutex
	values []byte

	// stop will be closed when Close() is called
	stop chan struct{}
}

func NewInmemoryStore() *InmemoryStore {
	return &InmemoryStore{
		values: []byte(""),
		stop:   make(chan struct{}),
	}
}

func (i *InmemoryStore) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.isRunning() {
		close(i.stop)
	}

	return nil
}

func (i *InmemoryStore) Set(ctx context.Context, key string, value interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if !i.isRunning() {
		return ErrClosed
	}

	values, err := sjson.SetBytes(i.values, key, value)
	if err != nil {
		return err
	}

	i.values = values
	return nil
}

// Get returns the raw JSON encoded value of key.
func (i *InmemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	if !i.isRunning() {
		return nil, ErrClosed
	}

	result := gjson.GetBytes(i.values, key)
	if !result.Exists() {
		return nil, ErrNotFound
	}

	// result.Raw may alias i.values, which the next Set replaces
	raw := make([]byte, len(result.Raw))
	copy(raw, result.Raw)

	return raw, nil
}

func (i *InmemoryStore) Backup() ([]byte, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if len(i.values) == 0 {
		return []byte("{}"), nil
	}

	out := make([]byte, len(i.values))
	copy(out, i.values)

	return out, nil
}

// isRunning returns true if Close has not been called
func (i *InmemoryStore) isRunning() bool {
	select {
	case <-i.stop:
		return false

	default:
		return true
	}
}

var _ Store = (*InmemoryStore)(nil)
