package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thruflo/plantree/internal/logging"
	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultServerPort     = 8374
	DefaultMatchThreshold = 0.3
	DefaultLogLevel       = "warn"
)

// Dir is the directory under the base path that holds plantree files.
const Dir = ".plantree"

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Checkpoints: CheckpointConfig{
			MatchThreshold: DefaultMatchThreshold,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Path returns the config file location for basePath.
func Path(basePath string) string {
	return filepath.Join(basePath, Dir, "config.yaml")
}

// LoadConfig reads and parses .plantree/config.yaml from the given base path.
// A missing file yields the defaults; fields absent from the file keep
// their defaults.
func LoadConfig(basePath string) (*Config, error) {
	data, err := os.ReadFile(Path(basePath))
	if err != nil {
		if os.IsNotExist(err) {
			cfg := DefaultConfig()
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	if err := ValidateServerConfig(&cfg.Server); err != nil {
		return err
	}
	if t := cfg.Checkpoints.MatchThreshold; t <= 0 || t >= 1 {
		return ValidationError{Field: "checkpoints.match_threshold", Message: "must be between 0 and 1 (exclusive)"}
	}
	if _, err := logging.ParseLevel(cfg.Logging.Level); err != nil {
		return ValidationError{Field: "logging.level", Message: "must be one of debug, info, warn, error"}
	}
	return nil
}

// ValidateServerConfig checks that server config values are valid.
func ValidateServerConfig(cfg *ServerConfig) error {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	return nil
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}

// SaveConfig writes cfg to .plantree/config.yaml under basePath, creating
// the directory if needed.
func SaveConfig(basePath string, cfg *Config) error {
	if err := ValidateConfig(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	path := Path(basePath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
