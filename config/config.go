// Package config loads the taskflow binary configuration from YAML.
// Command-line flags and environment variables are applied on top by cmd/taskflow.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sicko7947/taskflow/engine"
	"github.com/sicko7947/taskflow/telemetry"
)

// Backend names
const (
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
)

const defaultConfigYAML = `# taskflow configuration
server:
  addr: ":3000"

log:
  level: info
  pretty: true

engine:
  max_group_concurrency: 0
  persist_snapshots: true
  snapshot_ttl: 0s

# Snapshot store: memory or dynamodb
store:
  backend: memory
  table: taskflow
  region: us-east-1
  create_table: false

# Request history: memory or redis
history:
  backend: memory
  redis_addr: localhost:6379
  redis_key: taskflow:history

tracing:
  enabled: false
  service_name: taskflow
`

// ServerConfig configures the HTTP listener
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// LogConfig configures the zerolog output
type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty"`
}

// EngineConfig extends the engine settings with persistence
type EngineConfig struct {
	engine.EngineConfig `yaml:",inline"`

	PersistSnapshots bool `yaml:"persist_snapshots"`
}

// StoreConfig selects the snapshot store
type StoreConfig struct {
	Backend     string `yaml:"backend" validate:"oneof=memory dynamodb"`
	Table       string `yaml:"table" validate:"required_if=Backend dynamodb"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	CreateTable bool   `yaml:"create_table"`
}

// HistoryConfig selects the request history backend
type HistoryConfig struct {
	Backend       string `yaml:"backend" validate:"oneof=memory redis"`
	RedisAddr     string `yaml:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db" validate:"gte=0"`
	RedisKey      string `yaml:"redis_key" validate:"required_if=Backend redis"`
}

// Config is the complete binary configuration
type Config struct {
	Server  ServerConfig     `yaml:"server"`
	Log     LogConfig        `yaml:"log"`
	Engine  EngineConfig     `yaml:"engine"`
	Store   StoreConfig      `yaml:"store"`
	History HistoryConfig    `yaml:"history"`
	Tracing telemetry.Config `yaml:"tracing"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the built-in configuration
func Default() *Config {
	cfg, err := Parse([]byte(defaultConfigYAML))
	if err != nil {
		panic(fmt.Sprintf("invalid default config: %v", err))
	}
	return cfg
}

// DefaultYAML returns the commented default configuration file
func DefaultYAML() string {
	return defaultConfigYAML
}

// Parse decodes YAML over the zero Config and validates the result
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads path and overlays it on the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
