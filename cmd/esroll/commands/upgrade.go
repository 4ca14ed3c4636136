package commands

import (
	"github.com/spf13/cobra"

	"esroll/cmd/esroll/handlers"
)

// Upgrade returns the command that performs the rolling upgrade.
//
// Nodes are processed strictly in the given order. For each node the
// installed version is compared against the target; nodes already at or
// above the target are skipped. The cluster must report green health after
// every node before the next one is touched, and the run aborts at the
// first failing node.
//
// Required flags:
//
//	--nodes, -n: Comma separated host names or IP addresses of the nodes
//	             (or a nodes list in the --config file)
//
// Optional flags mirror the configuration file; flags given explicitly
// override file values.
func Upgrade() *cobra.Command {
	var opts handlers.UpgradeOptions
	var reboot, forceReboot, upgradeSystem, verbose bool

	cmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Perform a rolling upgrade of the cluster",
		Long: `Perform a rolling upgrade of an Elasticsearch cluster.

The upgrade process per node:
1. Compare the installed version against the target version
2. Skip the node if it is already at or above the target
3. Disable shard allocation and request a synced flush
4. Stop the service, upgrade the package, start the service
5. Wait until the node rejoins and the cluster is green again

Only then is the next node processed, so at most one node is ever out of
service. The run stops at the first failure and reports the outcome of
every node; re-running is safe because up-to-date nodes are skipped.

Use --target-version to pin a version, or leave it at 'latest' to use the
highest version available in the package repository.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Only overlay booleans that were given explicitly, so a config
			// file value is not clobbered by a flag default.
			if cmd.Flags().Changed("reboot") {
				opts.Reboot = &reboot
			}
			if cmd.Flags().Changed("force-reboot") {
				opts.ForceReboot = &forceReboot
			}
			if cmd.Flags().Changed("upgrade-system") {
				opts.UpgradeSystem = &upgradeSystem
			}
			if cmd.Flags().Changed("verbose") {
				opts.Verbose = &verbose
			}
			return handlers.Upgrade(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringSliceVarP(&opts.Nodes, "nodes", "n", nil, "Comma separated host names or IP addresses of nodes")
	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "Username for basic authentication")
	cmd.Flags().StringVarP(&opts.Password, "password", "P", "", "Password for basic authentication")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "Elasticsearch HTTP port (default 9200)")
	cmd.Flags().BoolVarP(&opts.TLS, "ssl", "s", false, "Connect with https")
	cmd.Flags().BoolVar(&opts.InsecureSkipVerify, "insecure-skip-verify", false, "Skip TLS certificate verification")

	cmd.Flags().StringVar(&opts.SSHUser, "ssh-user", "", "SSH user for remote commands (default: current user)")
	cmd.Flags().IntVar(&opts.SSHPort, "ssh-port", 0, "SSH port on the nodes (default 22)")
	cmd.Flags().StringVar(&opts.SSHKeyFile, "ssh-key", "", "Path to the SSH private key (default: ~/.ssh/id_ed25519 or ~/.ssh/id_rsa)")

	cmd.Flags().StringVar(&opts.TargetVersion, "target-version", "", "Version to upgrade to, or 'latest' (default 'latest')")
	cmd.Flags().StringVar(&opts.ServiceStopCommand, "service-stop-command", "", "Shell command to stop the service on a node")
	cmd.Flags().StringVar(&opts.ServiceStartCommand, "service-start-command", "", "Shell command to start the service on a node")
	cmd.Flags().StringVar(&opts.UpgradeCommand, "upgrade-command", "", "Shell command to upgrade the package on a node")
	cmd.Flags().StringVar(&opts.UpgradeSystemCommand, "upgrade-system-command", "", "Shell command to upgrade the operating system")
	cmd.Flags().StringVar(&opts.LatestVersionCommand, "latest-version-command", "", "Shell command printing the latest version in the repository")
	cmd.Flags().StringVar(&opts.RebootCommand, "reboot-command", "", "Shell command to reboot a node")

	cmd.Flags().BoolVar(&upgradeSystem, "upgrade-system", false, "Also upgrade the operating system after the service upgrade")
	cmd.Flags().BoolVar(&reboot, "reboot", false, "Reboot a node if an actual upgrade took place")
	cmd.Flags().BoolVar(&forceReboot, "force-reboot", false, "Always reboot each node, even when no upgrade occurred")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Display more information")

	cmd.Flags().DurationVar(&opts.HealthTimeout, "health-timeout", 0, "Maximum time to wait for the cluster to return to green (default 10m)")
	cmd.Flags().DurationVar(&opts.PollInterval, "poll-interval", 0, "Delay between health polls (default 5s)")

	return cmd
}
