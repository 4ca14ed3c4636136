// Package handlers implements the command execution logic behind the CLI.
package handlers

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"esroll/internal/config"
)

// UpgradeOptions carries the flag values of the upgrade command. Zero
// values mean "not given"; boolean flags use pointers so an explicit
// --flag=false can still override a config file value.
type UpgradeOptions struct {
	ConfigPath string

	Nodes              []string
	Username           string
	Password           string
	Port               int
	TLS                bool
	InsecureSkipVerify bool

	SSHUser    string
	SSHPort    int
	SSHKeyFile string

	TargetVersion        string
	ServiceStopCommand   string
	ServiceStartCommand  string
	UpgradeCommand       string
	UpgradeSystemCommand string
	LatestVersionCommand string
	RebootCommand        string

	UpgradeSystem *bool
	Reboot        *bool
	ForceReboot   *bool
	Verbose       *bool

	HealthTimeout time.Duration
	PollInterval  time.Duration
}

// buildConfig merges the optional configuration file with the explicitly
// given flags (flags win) and validates the result.
func buildConfig(opts UpgradeOptions) (*config.Config, error) {
	cfg := &config.Config{}
	if opts.ConfigPath != "" {
		loaded, err := config.LoadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if len(opts.Nodes) > 0 {
		cfg.Nodes = opts.Nodes
	}
	if opts.Username != "" {
		cfg.Username = opts.Username
	}
	if opts.Password != "" {
		cfg.Password = opts.Password
	}
	if opts.Port != 0 {
		cfg.Port = opts.Port
	}
	if opts.TLS {
		cfg.TLS = true
	}
	if opts.InsecureSkipVerify {
		cfg.InsecureSkipVerify = true
	}

	if opts.SSHUser != "" {
		cfg.SSH.User = opts.SSHUser
	}
	if opts.SSHPort != 0 {
		cfg.SSH.Port = opts.SSHPort
	}
	if opts.SSHKeyFile != "" {
		cfg.SSH.KeyFile = opts.SSHKeyFile
	}

	if opts.TargetVersion != "" {
		cfg.Version = opts.TargetVersion
	}
	if opts.ServiceStopCommand != "" {
		cfg.Commands.ServiceStop = opts.ServiceStopCommand
	}
	if opts.ServiceStartCommand != "" {
		cfg.Commands.ServiceStart = opts.ServiceStartCommand
	}
	if opts.UpgradeCommand != "" {
		cfg.Commands.Upgrade = opts.UpgradeCommand
	}
	if opts.UpgradeSystemCommand != "" {
		cfg.Commands.UpgradeSystem = opts.UpgradeSystemCommand
	}
	if opts.LatestVersionCommand != "" {
		cfg.Commands.LatestVersion = opts.LatestVersionCommand
	}
	if opts.RebootCommand != "" {
		cfg.Commands.Reboot = opts.RebootCommand
	}

	if opts.UpgradeSystem != nil {
		cfg.UpgradeSystem = *opts.UpgradeSystem
	}
	if opts.Reboot != nil {
		cfg.Reboot = *opts.Reboot
	}
	if opts.ForceReboot != nil {
		cfg.ForceReboot = *opts.ForceReboot
	}
	if opts.Verbose != nil {
		cfg.Verbose = *opts.Verbose
	}

	if opts.HealthTimeout != 0 {
		cfg.HealthTimeout = opts.HealthTimeout
	}
	if opts.PollInterval != 0 {
		cfg.PollInterval = opts.PollInterval
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// defaultSSHUser falls back to the current OS user, matching what a plain
// "ssh <host>" would do.
func defaultSSHUser() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to determine current user for SSH: %w", err)
	}
	return u.Username, nil
}

// defaultSSHKeyFile picks the first standard private key that exists.
func defaultSSHKeyFile() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate home directory for SSH key: %w", err)
	}
	for _, name := range []string{"id_ed25519", "id_rsa"} {
		path := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no SSH private key found in %s; use --ssh-key", filepath.Join(home, ".ssh"))
}
