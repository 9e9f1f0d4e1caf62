package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	Level       string // debug, info, warn, error; default info
	Environment string // "development" enables console output
	ServiceName string
	Version     string
}

// Logger wraps a zerolog.Logger with service-level fields attached.
type Logger struct {
	zerolog.Logger
}

// New builds a logger writing JSON to stdout, or pretty console output in
// development.
func New(cfg Config) *Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(os.Stdout)
	if cfg.Environment == "development" {
		logger = zerolog.New(out)
	}

	logger = logger.Level(level).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Str("version", cfg.Version).
		Logger()

	return &Logger{Logger: logger}
}
