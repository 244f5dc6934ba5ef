package offline

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// AgentConfig is the device-side configuration read from agent.yml
type AgentConfig struct {
	DeviceID   string       `yaml:"device_id" validate:"required,max=128"`
	OperatorID int64        `yaml:"operator_id" validate:"gte=0"`
	EmployeeID int64        `yaml:"employee_id" validate:"gte=0"`
	Store      StoreFile    `yaml:"store"`
	Server     ServerConfig `yaml:"server"`
	Sync       SyncConfig   `yaml:"sync"`
	LogLevel   string       `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

type StoreFile struct {
	Path string `yaml:"path" validate:"required"`
}

type ServerConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

type SyncConfig struct {
	Interval  time.Duration `yaml:"interval" validate:"gt=0"`
	BatchSize int           `yaml:"batch_size" validate:"gt=0,lte=500"`
}

// DefaultAgentConfig holds the values used for anything agent.yml omits
func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		Store:  StoreFile{Path: "seatline-agent.db"},
		Server: ServerConfig{BaseURL: "http://localhost:8080/api/v1", Timeout: 30 * time.Second},
		Sync:   SyncConfig{Interval: time.Minute, BatchSize: 100},
	}
}

// LoadAgentConfig reads and validates the YAML file at path. A token in
// SEATLINE_TOKEN overrides the file so it need not be stored on disk.
func LoadAgentConfig(path string) (AgentConfig, error) {
	cfg := DefaultAgentConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return AgentConfig{}, fmt.Errorf("read agent config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AgentConfig{}, fmt.Errorf("parse agent config %s: %w", path, err)
	}
	if token := os.Getenv("SEATLINE_TOKEN"); token != "" {
		cfg.Server.Token = token
	}
	if err := validator.New().Struct(cfg); err != nil {
		return AgentConfig{}, fmt.Errorf("invalid agent config: %w", err)
	}
	return cfg, nil
}
