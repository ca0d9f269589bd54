// Package config loads server settings from .env, the environment and flags,
// in that order of increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds every tunable of the server.
type Config struct {
	HTTPAddr  string `env:"CARDS_HTTP_ADDR" envDefault:"localhost:3000"`
	LogLevel  string `env:"CARDS_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"CARDS_LOG_FORMAT" envDefault:"text"`

	RoomCodeLength  int           `env:"CARDS_ROOM_CODE_LENGTH" envDefault:"6"`
	NameTimeout     time.Duration `env:"CARDS_NAME_TIMEOUT" envDefault:"300s"`
	OutboxSize      int           `env:"CARDS_OUTBOX_SIZE" envDefault:"64"`
	MaxDecodeErrors int           `env:"CARDS_MAX_DECODE_ERRORS" envDefault:"3"`
	ReadLimit       int64         `env:"CARDS_WS_READ_LIMIT" envDefault:"4096"`
	ShutdownGrace   time.Duration `env:"CARDS_SHUTDOWN_GRACE" envDefault:"10s"`
	// AllowedOrigins are extra websocket Origin host patterns, e.g. "*.example.com".
	AllowedOrigins []string `env:"CARDS_ALLOWED_ORIGINS" envSeparator:","`

	// Optional backends. Empty disables them.
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	JournalTTL    time.Duration `env:"CARDS_JOURNAL_TTL" envDefault:"24h"`
	JournalMaxLen int64         `env:"CARDS_JOURNAL_MAX_LEN" envDefault:"5000"`
	DatabaseURL   string        `env:"DATABASE_URL"`

	// AdminJWTSecret protects GET /rooms when set.
	AdminJWTSecret string `env:"CARDS_ADMIN_JWT_SECRET"`
}

// Load reads an optional .env file, then the environment, then args.
func Load(fs *flag.FlagSet, args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	fs.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format (text, json)")
	fs.IntVar(&cfg.RoomCodeLength, "code-length", cfg.RoomCodeLength, "room code length")
	fs.DurationVar(&cfg.NameTimeout, "name-timeout", cfg.NameTimeout, "time allowed to send JoinRoom")
	fs.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "redis address for the event journal")
	fs.StringVar(&cfg.DatabaseURL, "database", cfg.DatabaseURL, "postgres URL for the session archive")
	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch {
	case c.RoomCodeLength <= 0:
		return fmt.Errorf("room code length must be positive, got %d", c.RoomCodeLength)
	case c.NameTimeout <= 0:
		return fmt.Errorf("name timeout must be positive, got %s", c.NameTimeout)
	case c.OutboxSize <= 0:
		return fmt.Errorf("outbox size must be positive, got %d", c.OutboxSize)
	case c.MaxDecodeErrors <= 0:
		return fmt.Errorf("max decode errors must be positive, got %d", c.MaxDecodeErrors)
	}
	return nil
}

// NewLogger builds the process logger from the configured level and format.
func NewLogger(c Config) (*logrus.Logger, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	switch c.LogFormat {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return log, nil
}
