package config

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
	// PasswordHash is an argon2id hash. Empty disables authentication.
	PasswordHash string `yaml:"password_hash,omitempty"`
}

// CheckpointConfig configures checkpoint lookup.
type CheckpointConfig struct {
	// MatchThreshold is the similarity score a description must exceed to
	// select a checkpoint.
	MatchThreshold float64 `yaml:"match_threshold"`
}

// LoggingConfig configures the default logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config represents the .plantree/config.yaml file.
type Config struct {
	Server      ServerConfig     `yaml:"server"`
	Checkpoints CheckpointConfig `yaml:"checkpoints"`
	Logging     LoggingConfig    `yaml:"logging"`
}
