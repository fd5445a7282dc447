package cmd

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/luma/homelink/internal/env"
	"github.com/luma/homelink/transport"
)

// shutdownTimeout bounds how long the admin HTTP server gets to finish
// in-flight requests
const shutdownTimeout = 5 * time.Second

// server is what the socket and thermometer servers have in common
type server interface {
	Start(ctx context.Context) error
	Addr() net.Addr
	Close() error
}

// serverEnv holds everything a server command sets up before binding
type serverEnv struct {
	conf     *env.Config
	log      *zap.Logger
	registry *prometheus.Registry
	metrics  *transport.Metrics
}

func newServerEnv(ctx context.Context) (*serverEnv, error) {
	conf, err := env.LoadConfig(ctx)
	if err != nil {
		return nil, err
	}

	log, err := env.MakeLogger(conf.LogLevel)
	if err != nil {
		return nil, err
	}

	fileLimit, err := setFileLimit()
	if err != nil {
		log.Warn("Could not raise the file limit", zap.Error(err))
	} else {
		log.Info("Set file limit", zap.Uint64("fileLimit", fileLimit))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	metrics, err := transport.NewMetrics(registry)
	if err != nil {
		return nil, err
	}

	return &serverEnv{
		conf:     conf,
		log:      log,
		registry: registry,
		metrics:  metrics,
	}, nil
}

func (r *serverEnv) transportOptions(host string, port int) transport.Options {
	return transport.Options{
		Host:          host,
		Port:          port,
		Reuseport:     r.conf.Reuseport,
		NumListeners:  r.conf.NumListeners,
		MaxLineLength: r.conf.MaxLineLength,
		ReadTimeout:   r.conf.ReadTimeout,
		WriteTimeout:  r.conf.WriteTimeout,
		Metrics:       r.metrics,
		Log:           r.log.Named("transport"),
	}
}

// serve starts srv and the optional admin HTTP server, then blocks until
// SIGINT or SIGTERM and shuts both down.
func (r *serverEnv) serve(ctx context.Context, signalStop context.CancelFunc, host string, srv server) error {
	if err := srv.Start(ctx); err != nil {
		return err
	}

	var httpServer *http.Server
	if r.conf.HTTPPort != "" {
		httpServer = r.startHTTP(host)
	}

	r.log.Info("Listening",
		zap.Stringer("addr", srv.Addr()),
		zap.String("httpPort", r.conf.HTTPPort))

	// Listen for the interrupt signal.
	<-ctx.Done()

	// Restore default behavior on the interrupt signal and notify user of shutdown.
	signalStop()
	r.log.Info("Shutting down gracefully, press Ctrl+C again to force")

	if httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		httpServer.SetKeepAlivesEnabled(false)

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.log.Error("Http server forced to shutdown", zap.Error(err))
		}
	}

	if err := srv.Close(); err != nil {
		r.log.Error("Server did not shut down cleanly", zap.Error(err))
	}

	r.log.Info("Exiting")
	_ = r.log.Sync()

	return nil
}

func (r *serverEnv) adminRouter() *gin.Engine {
	router := setupRouter(r.conf.DebugHTTP, r.log.Named("http"))

	// Ping test
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))

	return router
}

func (r *serverEnv) startHTTP(host string) *http.Server {
	s := &http.Server{
		Addr:    net.JoinHostPort(host, r.conf.HTTPPort),
		Handler: r.adminRouter(),
	}

	// Initializing the server in a goroutine so that
	// it won't block the graceful shutdown handling
	go func() {
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.log.Error("Http server errored", zap.Error(err))
		}
	}()

	return s
}

func notifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func setupRouter(debugHTTP bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Add a ginzap middleware, which:
	//   - Logs all requests, like a combined access and error log.
	//   - RFC3339 with UTC time format.
	//   - Skips the scraper's /metrics and /ping noise.
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping", "/metrics"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	return r
}

func setFileLimit() (uint64, error) {
	var rLimit syscall.Rlimit

	if err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	rLimit.Cur = rLimit.Max
	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		return 0, err
	}

	return rLimit.Cur, nil
}
