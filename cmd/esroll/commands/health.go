package commands

import (
	"github.com/spf13/cobra"

	"esroll/cmd/esroll/handlers"
)

// Health returns the command for displaying cluster health status.
//
// It performs a single health query against the first node and prints the
// aggregate status. The exit code is zero only when the cluster is green,
// which makes the command usable as a pre-flight check in automation.
func Health() *cobra.Command {
	var opts handlers.HealthOptions

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Show cluster health status",
		Long: `Display the aggregate health status of the cluster.

The status is queried once from the first node:
  green   - all shards allocated, full availability
  yellow  - all primaries allocated, some replicas missing
  red     - some primary shards unallocated
  unknown - the cluster did not answer or the answer was unreadable

The command exits non-zero unless the status is green.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Health(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file")
	cmd.Flags().StringSliceVarP(&opts.Nodes, "nodes", "n", nil, "Comma separated host names or IP addresses of nodes")
	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "Username for basic authentication")
	cmd.Flags().StringVarP(&opts.Password, "password", "P", "", "Password for basic authentication")
	cmd.Flags().IntVarP(&opts.Port, "port", "p", 0, "Elasticsearch HTTP port (default 9200)")
	cmd.Flags().BoolVarP(&opts.TLS, "ssl", "s", false, "Connect with https")
	cmd.Flags().BoolVar(&opts.InsecureSkipVerify, "insecure-skip-verify", false, "Skip TLS certificate verification")

	return cmd
}
