package env

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

var ErrInvalidConfig = errors.New("Invalid configuration")

type Config struct {
	LogLevel string `env:"HOMELINK_LOG_LEVEL,default=info"`

	// HTTPPort enables the admin HTTP server (/ping, /metrics) when set
	HTTPPort  string `env:"HOMELINK_HTTP_PORT"`
	DebugHTTP bool   `env:"HOMELINK_DEBUG_HTTP"`

	Reuseport    bool `env:"HOMELINK_REUSEPORT"`
	NumListeners int  `env:"HOMELINK_NUM_LISTENERS"`

	MaxLineLength int           `env:"HOMELINK_MAX_LINE_LENGTH,default=1024"`
	ReadTimeout   time.Duration `env:"HOMELINK_READ_TIMEOUT"`
	WriteTimeout  time.Duration `env:"HOMELINK_WRITE_TIMEOUT,default=10s"`

	SocketName       string `env:"HOMELINK_SOCKET_NAME,default=Kitchen Socket"`
	SocketModel      string `env:"HOMELINK_SOCKET_MODEL,default=SS-1"`
	SocketRatedPower int    `env:"HOMELINK_SOCKET_RATED_POWER,default=3500"`

	// SharedState makes every connection switch the same socket
	SharedState bool `env:"HOMELINK_SOCKET_SHARED_STATE"`

	ThermometerName string  `env:"HOMELINK_THERMOMETER_NAME,default=Kitchen Thermometer"`
	MinTemp         float64 `env:"HOMELINK_THERMOMETER_MIN,default=15"`
	MaxTemp         float64 `env:"HOMELINK_THERMOMETER_MAX,default=30"`
	Seed            int64   `env:"HOMELINK_THERMOMETER_SEED"`
}

// LoadConfig reads .env.local, if there is one, and then the process
// environment.
func LoadConfig(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(".env.local"); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("Failed to load .env.local: %w", err)
		}
	}

	return LoadConfigFrom(ctx, envconfig.OsLookuper())
}

// LoadConfigFrom reads the configuration from lookuper and validates it.
func LoadConfigFrom(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	config := Config{}

	if err := envconfig.ProcessWith(ctx, &config, lookuper); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.MaxLineLength <= 0 {
		return fmt.Errorf("%w: HOMELINK_MAX_LINE_LENGTH must be positive, got %d",
			ErrInvalidConfig, c.MaxLineLength)
	}

	if c.SocketRatedPower < 0 {
		return fmt.Errorf("%w: HOMELINK_SOCKET_RATED_POWER must not be negative, got %d",
			ErrInvalidConfig, c.SocketRatedPower)
	}

	if c.MinTemp >= c.MaxTemp {
		return fmt.Errorf("%w: HOMELINK_THERMOMETER_MIN (%v) must be below HOMELINK_THERMOMETER_MAX (%v)",
			ErrInvalidConfig, c.MinTemp, c.MaxTemp)
	}

	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidConfig)
	}

	return nil
}
