package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultLogLevel   = "info"
	DefaultMaxLogSize = 50
)

var (
	ErrMissingSecret = errors.New("missing required secret")
	ErrInvalidConfig = errors.New("invalid config")
)

var validLogLevels = []string{"audit", "fatal", "error", "warn", "info", "debug", "silly"}

type Config struct {
	ApplicationID          string `toml:"application_id" env:"DISCORD_APPLICATION_ID"`
	Token                  string `toml:"token" env:"DISCORD_TOKEN"`
	LogLevel               string `toml:"log_level" env:"LOG_LEVEL"`
	MaxLogSize             int    `toml:"max_log_size" env:"MAX_LOG_SIZE"`
	LogFile                string `toml:"log_file" env:"LOG_FILE"`
	DatabaseURL            string `toml:"database_url" env:"DATABASE_URL"`
	DestroyCommandsOnClose bool   `toml:"destroy_commands_on_close" env:"DESTROY_COMMANDS_ON_CLOSE"`
}

// NewConfig returns a Config holding the defaults that Load overlays.
func NewConfig() *Config {
	return &Config{
		LogLevel:   DefaultLogLevel,
		MaxLogSize: DefaultMaxLogSize,
	}
}

// Load populates c from a .env file (if any), the TOML file at path (if path is
// not empty) and finally the process environment, then validates the result.
func (c *Config) Load(path string) error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to read .env file: %w", err)
	}

	if path != "" {
		if err = c.loadFile(path); err != nil {
			return err
		}
	}

	if err = env.Parse(c); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}

	c.applyDefaults()

	return c.Validate()
}

func (c *Config) loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}

	defer file.Close()

	err = toml.NewDecoder(file).Decode(c)
	if err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

func missingSecret(name string) error {
	return fmt.Errorf("%w: %s is a required secret; it must be set in the environment as %s", ErrMissingSecret, name, name)
}

func (c *Config) Validate() error {
	if c.ApplicationID == "" {
		return missingSecret("DISCORD_APPLICATION_ID")
	}

	if c.Token == "" {
		return missingSecret("DISCORD_TOKEN")
	}

	if !isValidLogLevel(c.LogLevel) {
		return fmt.Errorf("%w: LOG_LEVEL must be one of %s, got %q", ErrInvalidConfig, strings.Join(validLogLevels, ", "), c.LogLevel)
	}

	if c.MaxLogSize <= 0 {
		return fmt.Errorf("%w: MAX_LOG_SIZE must be positive, got %d", ErrInvalidConfig, c.MaxLogSize)
	}

	return nil
}

func isValidLogLevel(level string) bool {
	for _, l := range validLogLevels {
		if l == level {
			return true
		}
	}

	return false
}
