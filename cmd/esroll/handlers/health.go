package handlers

import (
	"context"
	"fmt"

	"esroll/internal/health"
)

// HealthOptions carries the flag values of the health command.
type HealthOptions struct {
	ConfigPath string

	Nodes              []string
	Username           string
	Password           string
	Port               int
	TLS                bool
	InsecureSkipVerify bool
}

// Health handles the health command: one fresh query of the aggregate
// cluster status, printed to stdout. Non-green means a non-zero exit.
func Health(ctx context.Context, opts HealthOptions) error {
	cfg, err := buildConfig(UpgradeOptions{
		ConfigPath:         opts.ConfigPath,
		Nodes:              opts.Nodes,
		Username:           opts.Username,
		Password:           opts.Password,
		Port:               opts.Port,
		TLS:                opts.TLS,
		InsecureSkipVerify: opts.InsecureSkipVerify,
	})
	if err != nil {
		return err
	}

	log := newLogger(cfg.Verbose)
	monitor := health.NewMonitor(cfg, log)

	status := monitor.CurrentStatus(ctx, cfg.Nodes[0])
	fmt.Println(status)

	if status != health.StatusGreen {
		return fmt.Errorf("cluster status is %s", status)
	}
	return nil
}
