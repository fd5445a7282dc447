package storage

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("Key not found")
	ErrClosed   = errors.New("Store is closed")
)

// Store holds device state as a JSON document addressed by gjson style keys.
type Store interface {
	Set(ctx context.Context, key string, value interface{}) error
	Get(ctx context.Context, key string) ([]byte, error)

	Backup() ([]byte, error)

	Close() error
}
