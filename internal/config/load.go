package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LoadFile loads configuration from a YAML file and applies defaults.
func LoadFile(path string) (*Config, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to unmarshal yaml: %w", err)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.StringToTimeDurationHookFunc(),
		Result:     &cfg,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build config decoder: %w", err)
	}
	if err := decoder.Decode(rawConfig); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills in defaults for every unset field.
func (c *Config) ApplyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.SSH.Port == 0 {
		c.SSH.Port = DefaultSSHPort
	}
	if c.Version == "" {
		c.Version = "latest"
	}
	if c.HealthTimeout == 0 {
		c.HealthTimeout = DefaultHealthTimeout
	}
	if c.PollInterval == 0 {
		c.PollInterval = DefaultPollInterval
	}

	if c.Commands.ServiceStop == "" {
		c.Commands.ServiceStop = DefaultServiceStopCommand
	}
	if c.Commands.ServiceStart == "" {
		c.Commands.ServiceStart = DefaultServiceStartCommand
	}
	if c.Commands.Upgrade == "" {
		c.Commands.Upgrade = DefaultUpgradeCommand
	}
	if c.Commands.UpgradeSystem == "" {
		c.Commands.UpgradeSystem = DefaultUpgradeSystemCmd
	}
	if c.Commands.LatestVersion == "" {
		c.Commands.LatestVersion = DefaultLatestVersionCmd
	}
	if c.Commands.Reboot == "" {
		c.Commands.Reboot = DefaultRebootCommand
	}
}

// Validate checks the configuration for required fields and consistency.
func (c *Config) Validate() error {
	if len(c.Nodes) == 0 {
		return fmt.Errorf("at least one node is required")
	}
	for _, node := range c.Nodes {
		if node == "" {
			return fmt.Errorf("node host cannot be empty")
		}
	}
	if c.Version == "" {
		return fmt.Errorf("version is required (explicit version or 'latest')")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.SSH.Port <= 0 || c.SSH.Port > 65535 {
		return fmt.Errorf("invalid ssh port %d", c.SSH.Port)
	}
	if c.HealthTimeout <= 0 {
		return fmt.Errorf("health_timeout must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}
