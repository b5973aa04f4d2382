// Package config holds the settings of the concord binary: logging, the HTTP
// server, and the defaults the CLI falls back to. Settings come from an
// optional YAML file and are then overridden by command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-concord/infrastructure/units"
	"github.com/ahrav/go-concord/internal/ports"
)

// Config is the root of the settings file.
type Config struct {
	Log  LogConfig  `yaml:"log" validate:"required"`
	HTTP HTTPConfig `yaml:"http" validate:"required"`

	// Graph is the path of a stage graph file. Empty selects the embedded
	// default graph.
	Graph string `yaml:"graph"`

	// Output is the default report format of the run command.
	Output string `yaml:"output" validate:"omitempty,oneof=table json yaml"`

	// Input holds the limits applied when validating submissions.
	Input units.InputConfig `yaml:"input"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `yaml:"level" validate:"required,oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"required,oneof=text json"`
}

// HTTPConfig configures the API server.
type HTTPConfig struct {
	// Addr is the listen address in host:port form.
	Addr string `yaml:"addr" validate:"required"`

	// AllowedOrigins lists the CORS origins. Empty allows every origin.
	AllowedOrigins []string `yaml:"allowed_origins" validate:"dive,required"`

	// RateLimit is the sustained request rate per second. Zero disables
	// rate limiting.
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`

	// Burst is the token bucket size. It must be positive when RateLimit is.
	Burst int `yaml:"burst" validate:"gte=0,required_unless=RateLimit 0"`

	// MaxBodyBytes caps the size of a request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes" validate:"gt=0"`

	// ReadTimeout and WriteTimeout bound a single request.
	ReadTimeout  time.Duration `yaml:"read_timeout" validate:"gte=0"`
	WriteTimeout time.Duration `yaml:"write_timeout" validate:"gte=0"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gte=0"`
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		HTTP: HTTPConfig{
			Addr:            ":8080",
			RateLimit:       50,
			Burst:           100,
			MaxBodyBytes:    1 << 20,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Output: "table",
		Input:  units.DefaultInputConfig(),
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads the settings file at path over the defaults. An empty path
// returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: %s", ports.ErrConfigNotFound, path)
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, ports.NewConfigError(path, err)
	}
	return cfg, nil
}

// Parse decodes a settings document over the defaults and validates the
// result. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}
	if _, _, err := net.SplitHostPort(c.HTTP.Addr); err != nil {
		return fmt.Errorf("validate config: http.addr: %w", err)
	}
	return nil
}

// NewLogger builds a logrus logger writing to w.
func NewLogger(c LogConfig, w io.Writer) (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(level)
	switch c.Format {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text", "":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("log format %q: want text or json", c.Format)
	}
	return logger, nil
}
