package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/park285/Cheese-chess-server/internal/obslog"
)

// Game store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

// Auth backends.
const (
	AuthMemory = "memory"
	AuthRedis  = "redis"
	AuthJWT    = "jwt"
	AuthRemote = "remote"
)

type AppConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`

	GameStore   string        `env:"GAME_STORE" envDefault:"memory"`
	RedisURL    string        `env:"REDIS_URL"`
	GameTTL     time.Duration `env:"GAME_TTL" envDefault:"0s"`
	DatabaseURL string        `env:"DATABASE_URL"`
	SQLitePath  string        `env:"SQLITE_PATH" envDefault:"data/chess.db"`

	AuthBackend        string        `env:"AUTH_BACKEND" envDefault:"memory"`
	JWTSecret          string        `env:"JWT_SECRET"`
	AuthServiceURL     string        `env:"AUTH_SERVICE_URL"`
	AuthServiceKey     string        `env:"AUTH_SERVICE_KEY"`
	AuthServiceTimeout time.Duration `env:"AUTH_SERVICE_TIMEOUT" envDefault:"2s"`
	// AuthTokens seeds the memory backend: token=username pairs.
	AuthTokens map[string]string `env:"AUTH_TOKENS" envKeyValSeparator:"="`

	WSSendBuffer   int           `env:"WS_SEND_BUFFER" envDefault:"32"`
	WSPingInterval time.Duration `env:"WS_PING_INTERVAL" envDefault:"15s"`
	WSWriteTimeout time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"5s"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envSeparator:","`
	CommandTimeout time.Duration `env:"COMMAND_TIMEOUT" envDefault:"5s"`

	MessagesDir string `env:"MESSAGES_DIR"`
	// SeedGames creates this many empty games at startup when the store is empty.
	SeedGames int `env:"SEED_GAMES" envDefault:"0"`
	// SeedSeats assigns players to games at startup. See ParseSeatPlans.
	SeedSeats string `env:"SEED_SEATS"`
	seats     SeatPlans

	Log obslog.Config `envPrefix:"LOG_"`
}

// Load reads the environment and checks cross-field requirements.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.seats, _ = ParseSeatPlans(cfg.SeedSeats)
	return cfg, nil
}

// Seats returns the startup seat assignments parsed from SeedSeats.
func (c *AppConfig) Seats() SeatPlans { return c.seats }

func (c *AppConfig) normalize() {
	c.GameStore = strings.ToLower(strings.TrimSpace(c.GameStore))
	c.AuthBackend = strings.ToLower(strings.TrimSpace(c.AuthBackend))
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	origins := c.AllowedOrigins[:0]
	for _, o := range c.AllowedOrigins {
		if s := strings.TrimSpace(o); s != "" {
			origins = append(origins, s)
		}
	}
	c.AllowedOrigins = origins
}

func (c *AppConfig) Validate() error {
	var errs []error
	switch c.GameStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for GAME_STORE=redis"))
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for GAME_STORE=postgres"))
		}
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			errs = append(errs, errors.New("SQLITE_PATH is required for GAME_STORE=sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown GAME_STORE %q", c.GameStore))
	}

	switch c.AuthBackend {
	case AuthMemory:
	case AuthRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for AUTH_BACKEND=redis"))
		}
	case AuthJWT:
		if strings.TrimSpace(c.JWTSecret) == "" {
			errs = append(errs, errors.New("JWT_SECRET is required for AUTH_BACKEND=jwt"))
		}
	case AuthRemote:
		if strings.TrimSpace(c.AuthServiceURL) == "" {
			errs = append(errs, errors.New("AUTH_SERVICE_URL is required for AUTH_BACKEND=remote"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_BACKEND %q", c.AuthBackend))
	}

	if c.WSSendBuffer <= 0 {
		errs = append(errs, errors.New("WS_SEND_BUFFER must be positive"))
	}
	if c.WSPingInterval <= 0 {
		errs = append(errs, errors.New("WS_PING_INTERVAL must be positive"))
	}
	if c.SeedGames < 0 {
		errs = append(errs, errors.New("SEED_GAMES must not be negative"))
	}
	if _, err := ParseSeatPlans(c.SeedSeats); err != nil {
		errs = append(errs, fmt.Errorf("SEED_SEATS: %w", err))
	}
	return errors.Join(errs...)
}
