package transport

import (
	"runtime"
	"time"

	"go.uber.org/zap"
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on, 0 picks a free port
	Port int

	// Reuseport controls setting SO_REUSEPORT, which lets several listeners
	// share the port
	Reuseport bool

	// NumListeners is only honoured with Reuseport, it defaults to the number
	// of CPUs
	NumListeners int

	// MaxLineLength bounds a single command line on the socket protocol
	MaxLineLength int

	// ReadTimeout closes socket connections that stay idle for longer. Zero
	// disables it.
	ReadTimeout time.Duration

	// WriteTimeout bounds writing a single response. Zero disables it.
	WriteTimeout time.Duration

	Metrics *Metrics

	Log *zap.Logger
}

func (o Options) listenerCount() int {
	if !o.Reuseport {
		return 1
	}

	if o.NumListeners < 1 {
		return runtime.NumCPU()
	}

	return o.NumListeners
}

func (o Options) logger() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}

	return o.Log
}
