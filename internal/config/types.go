// Package config defines the configuration structure and methods for the application.
package config

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"
)

// Default command templates. They assume a package-manager-based Linux
// install with systemd; all of them can be overridden for restrictive-sudo
// or archive-based setups.
const (
	DefaultServiceStopCommand  = "sudo systemctl stop elasticsearch"
	DefaultServiceStartCommand = "sudo systemctl start elasticsearch"
	DefaultUpgradeCommand      = "sudo yum clean all && sudo yum install -y elasticsearch"
	DefaultUpgradeSystemCmd    = "sudo yum clean all && sudo yum update -y"
	DefaultRebootCommand       = "sudo /sbin/reboot"
	DefaultLatestVersionCmd    = "sudo yum clean all >/dev/null 2>&1 && yum list all elasticsearch |" +
		" grep elasticsearch | awk '{ print $2 }' | cut -d '-' -f1 |" +
		" sort --version-sort -r | head -n 1"
)

const (
	// DefaultPort is the Elasticsearch HTTP port.
	DefaultPort = 9200

	// DefaultHealthTimeout bounds every wait for the cluster to return to
	// green. A cluster that needs longer than this to recover after a single
	// node restart should not be upgraded further anyway.
	DefaultHealthTimeout = 10 * time.Minute

	// DefaultPollInterval is the delay between health polls.
	DefaultPollInterval = 5 * time.Second

	// DefaultSSHPort is the SSH port on the nodes.
	DefaultSSHPort = 22
)

// Commands holds the shell command templates executed on the nodes.
// Each template is an opaque command string; no per-node substitution is
// performed, which keeps remote invocation free of injection surface.
type Commands struct {
	ServiceStop   string `mapstructure:"service_stop" yaml:"service_stop"`
	ServiceStart  string `mapstructure:"service_start" yaml:"service_start"`
	Upgrade       string `mapstructure:"upgrade" yaml:"upgrade"`
	UpgradeSystem string `mapstructure:"upgrade_system" yaml:"upgrade_system"`
	LatestVersion string `mapstructure:"latest_version" yaml:"latest_version"`
	Reboot        string `mapstructure:"reboot" yaml:"reboot"`
}

// SSH holds the remote execution transport settings.
type SSH struct {
	User    string `mapstructure:"user" yaml:"user"`
	Port    int    `mapstructure:"port" yaml:"port"`
	KeyFile string `mapstructure:"key_file" yaml:"key_file"`
}

// Config is the immutable configuration snapshot for one upgrade run.
// It is built once by the CLI layer and passed read-only into every
// component; no component mutates it or reads ambient configuration.
type Config struct {
	// Nodes are the target hosts, in upgrade order.
	Nodes []string `mapstructure:"nodes" yaml:"nodes"`

	// HTTP API access to the nodes.
	Username           string `mapstructure:"username" yaml:"username"`
	Password           string `mapstructure:"password" yaml:"password"`
	Port               int    `mapstructure:"port" yaml:"port"`
	TLS                bool   `mapstructure:"tls" yaml:"tls"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`

	SSH      SSH      `mapstructure:"ssh" yaml:"ssh"`
	Commands Commands `mapstructure:"commands" yaml:"commands"`

	// Version is the target version for the whole fleet: "latest" resolves
	// the highest version available in the package repository, anything else
	// is used verbatim.
	Version string `mapstructure:"version" yaml:"version"`

	UpgradeSystem bool `mapstructure:"upgrade_system" yaml:"upgrade_system"`
	Reboot        bool `mapstructure:"reboot" yaml:"reboot"`
	ForceReboot   bool `mapstructure:"force_reboot" yaml:"force_reboot"`
	Verbose       bool `mapstructure:"verbose" yaml:"verbose"`

	HealthTimeout time.Duration `mapstructure:"health_timeout" yaml:"health_timeout"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
}

// NodeURL returns the base HTTP(S) URL of a node's management endpoint.
func (c *Config) NodeURL(node string) string {
	scheme := "http"
	if c.TLS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, node, c.Port)
}

// HTTPClient returns a client for the node management endpoints.
// Each query is a single request; retrying and polling are the callers'
// policy, so the client itself carries no retry behavior.
func (c *Config) HTTPClient() *http.Client {
	client := &http.Client{Timeout: 10 * time.Second}
	if c.TLS && c.InsecureSkipVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // #nosec G402
		}
	}
	return client
}

// ApplyAuth sets basic authentication on a request when credentials are
// configured.
func (c *Config) ApplyAuth(req *http.Request) {
	if c.Username != "" {
		req.SetBasicAuth(c.Username, c.Password)
	}
}
