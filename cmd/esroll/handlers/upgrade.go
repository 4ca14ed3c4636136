package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"esroll/internal/esversion"
	"esroll/internal/health"
	"esroll/internal/sshexec"
	"esroll/internal/upgrade"
)

// newLogger builds the CLI logger; verbose switches on debug output,
// including per-command stdout/stderr and every health poll.
func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

// progressPrinter adapts the logger to the coordinator's progress output.
type progressPrinter struct {
	log zerolog.Logger
}

func (p progressPrinter) Printf(format string, args ...interface{}) {
	p.log.Info().Msgf(format, args...)
}

// Upgrade handles the upgrade command.
//
// It merges configuration from file and flags, wires the SSH executor,
// health monitor and version resolver to the coordinator, runs the rolling
// upgrade and logs the per-node report. The returned error makes the
// process exit non-zero when any node failed.
func Upgrade(ctx context.Context, opts UpgradeOptions) error {
	cfg, err := buildConfig(opts)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Verbose)

	if cfg.SSH.User == "" {
		if cfg.SSH.User, err = defaultSSHUser(); err != nil {
			return err
		}
	}
	if cfg.SSH.KeyFile == "" {
		if cfg.SSH.KeyFile, err = defaultSSHKeyFile(); err != nil {
			return err
		}
	}

	executor, err := sshexec.NewExecutor(&sshexec.Config{
		User:    cfg.SSH.User,
		Port:    cfg.SSH.Port,
		KeyFile: cfg.SSH.KeyFile,
	})
	if err != nil {
		return fmt.Errorf("failed to set up SSH executor: %w", err)
	}

	monitor := health.NewMonitor(cfg, log)
	resolver := esversion.NewResolver(cfg, executor, log)
	coordinator := upgrade.NewCoordinator(cfg, executor, monitor, resolver, progressPrinter{log})

	log.Info().Strs("nodes", cfg.Nodes).Str("target", cfg.Version).Msg("starting rolling upgrade")

	report, runErr := coordinator.Run(ctx)
	logReport(log, report)

	if runErr != nil {
		return fmt.Errorf("rolling upgrade failed: %w", runErr)
	}
	return nil
}

// logReport prints the final outcome of every node plus a summary.
func logReport(log zerolog.Logger, report *upgrade.Report) {
	for _, n := range report.Nodes {
		ev := log.Info()
		if n.State == upgrade.StateFailed {
			ev = log.Error().Err(n.Err).Str("failed_step", n.FailedStep)
		}
		ev.Str("node", n.Host).
			Str("state", string(n.State)).
			Str("version", n.CurrentVersion).
			Bool("upgraded", n.Upgraded).
			Bool("rebooted", n.Rebooted).
			Msg("node outcome")
	}

	s := report.Summarize()
	log.Info().
		Int("upgraded", s.Upgraded).
		Int("skipped", s.Skipped).
		Int("rebooted", s.Rebooted).
		Int("failed", s.Failed).
		Int("untouched", s.Pending).
		Msg("run summary")
}
