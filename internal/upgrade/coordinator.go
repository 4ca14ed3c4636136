// Package upgrade drives the rolling upgrade of the cluster, one node at a
// time, gated on the cluster's own health signal between nodes so at most
// one node is ever out of service.
package upgrade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"esroll/internal/config"
	"esroll/internal/esversion"
	"esroll/internal/health"
	"esroll/internal/sshexec"
)

// Step names used in failure reports.
const (
	stepVersionCheck      = "version-check"
	stepDisableAllocation = "disable-allocation"
	stepStopService       = "stop-service"
	stepUpgrade           = "upgrade"
	stepUpgradeSystem     = "upgrade-system"
	stepStartService      = "start-service"
	stepEnableAllocation  = "enable-allocation"
	stepHealthWait        = "health-wait"
)

// Markers in package manager output meaning no package was changed.
const (
	yumNothingToDo = "Nothing to do"
	yumNoUpdates   = "No packages marked for update"
)

// Runner executes a shell command on a remote node.
// Implemented by sshexec.Executor.
type Runner interface {
	Run(ctx context.Context, host, command string) (sshexec.Result, error)
}

// HealthMonitor provides the cluster health signal used to gate progress
// between nodes. Implemented by health.Monitor.
type HealthMonitor interface {
	CurrentStatus(ctx context.Context, node string) health.Status
	WaitForGreen(ctx context.Context, node string, timeout, pollInterval time.Duration) error
	WaitForNodeJoined(ctx context.Context, node string, timeout, pollInterval time.Duration) error
	SetAllocation(ctx context.Context, node string, enable bool) error
	SyncedFlush(ctx context.Context, node string) error
}

// VersionSource resolves the fleet target version and per-node installed
// versions. Implemented by esversion.Resolver.
type VersionSource interface {
	ResolveTarget(ctx context.Context) (string, error)
	CurrentVersion(ctx context.Context, node string) (string, error)
}

// Printer receives human-readable progress lines during a run.
type Printer interface {
	Printf(format string, args ...interface{})
}

type nopPrinter struct{}

func (nopPrinter) Printf(string, ...interface{}) {}

// Coordinator performs the rolling upgrade. Nodes are processed strictly
// sequentially in the caller-supplied order; the run stops at the first
// failing node and leaves the remaining nodes untouched.
type Coordinator struct {
	cfg      *config.Config
	runner   Runner
	health   HealthMonitor
	versions VersionSource
	out      Printer
}

// NewCoordinator creates a coordinator. A nil printer discards progress output.
func NewCoordinator(cfg *config.Config, runner Runner, monitor HealthMonitor, versions VersionSource, out Printer) *Coordinator {
	if out == nil {
		out = nopPrinter{}
	}
	return &Coordinator{
		cfg:      cfg,
		runner:   runner,
		health:   monitor,
		versions: versions,
		out:      out,
	}
}

// Run upgrades the fleet. The returned report always covers every node;
// on error, nodes after the failing one remain pending. The target version
// is resolved exactly once, before any node is touched.
func (c *Coordinator) Run(ctx context.Context) (*Report, error) {
	report := NewReport(c.cfg.Nodes)

	target, err := c.versions.ResolveTarget(ctx)
	if err != nil {
		return report, err
	}
	report.Target = target
	c.out.Printf("Upgrading cluster to version %s", target)

	// Only start touching nodes when the cluster has full availability;
	// a rolling upgrade of a degraded cluster risks an outage.
	if status := c.health.CurrentStatus(ctx, c.cfg.Nodes[0]); status != health.StatusGreen {
		return report, fmt.Errorf("cluster status is %s, not green; refusing to start", status)
	}

	for i := range report.Nodes {
		node := &report.Nodes[i]
		if err := c.processNode(ctx, node, target); err != nil {
			return report, fmt.Errorf("node %s failed at %s: %w", node.Host, node.FailedStep, err)
		}
	}

	c.out.Printf("Successfully processed all %d nodes", len(report.Nodes))
	return report, nil
}

// processNode runs the state machine for a single node.
func (c *Coordinator) processNode(ctx context.Context, n *NodeResult, target string) error {
	c.out.Printf("# Node %s", n.Host)

	current, err := c.versions.CurrentVersion(ctx, n.Host)
	if err != nil {
		return c.fail(n, stepVersionCheck, err)
	}
	n.CurrentVersion = current
	n.State = StateVersionChecked

	cmp, err := esversion.Compare(current, target)
	if err != nil {
		return c.fail(n, stepVersionCheck, err)
	}

	needsUpgrade := cmp < 0
	if !needsUpgrade {
		if !c.cfg.ForceReboot {
			c.out.Printf("- Already at version %s, skipping", current)
			n.State = StateSkipped
			return nil
		}
		// Force reboot overrides the skip decision, but only for the
		// reboot: the node is not upgraded.
		c.out.Printf("- Already at version %s, rebooting anyway", current)
	} else {
		c.out.Printf("- Upgrading from %s to %s", current, target)
		if err := c.upgradeNode(ctx, n); err != nil {
			return err
		}
	}

	if c.shouldReboot(n) {
		if err := c.rebootNode(ctx, n); err != nil {
			return err
		}
	}

	n.State = StateDone
	return nil
}

// upgradeNode performs stop, upgrade, optional system upgrade and start,
// then gates on cluster recovery.
func (c *Coordinator) upgradeNode(ctx context.Context, n *NodeResult) error {
	if err := c.prepareRestart(ctx, n); err != nil {
		return err
	}

	n.State = StateStopping
	c.out.Printf("- Stopping service")
	if _, err := c.command(ctx, n, stepStopService, c.cfg.Commands.ServiceStop); err != nil {
		return err
	}

	n.State = StateUpgrading
	c.out.Printf("- Upgrading package")
	result, err := c.command(ctx, n, stepUpgrade, c.cfg.Commands.Upgrade)
	if err != nil {
		return err
	}
	n.Upgraded = !strings.Contains(result.Stdout, yumNothingToDo)

	if c.cfg.UpgradeSystem {
		n.State = StateSystemUpgrading
		c.out.Printf("- Upgrading operating system")
		result, err := c.command(ctx, n, stepUpgradeSystem, c.cfg.Commands.UpgradeSystem)
		if err != nil {
			return err
		}
		n.OSUpgraded = !strings.Contains(result.Stdout, yumNoUpdates)
		if !n.OSUpgraded {
			c.out.Printf("  No operating system upgrades available")
		}
	}

	n.State = StateStarting
	c.out.Printf("- Starting service")
	if _, err := c.command(ctx, n, stepStartService, c.cfg.Commands.ServiceStart); err != nil {
		return err
	}

	n.State = StateHealthWait
	return c.waitForRecovery(ctx, n)
}

// rebootNode reboots a node and gates on cluster recovery before the run
// moves on, so the reboot cannot overlap the next node's downtime.
func (c *Coordinator) rebootNode(ctx context.Context, n *NodeResult) error {
	if err := c.prepareRestart(ctx, n); err != nil {
		return err
	}

	n.State = StateRebooting
	c.out.Printf("- Rebooting")
	// The SSH connection is usually torn down by the reboot itself, so
	// neither a transport error nor the exit status is meaningful here.
	if _, err := c.runner.Run(ctx, n.Host, c.cfg.Commands.Reboot); err != nil {
		c.out.Printf("  connection closed during reboot: %v", err)
	}
	n.Rebooted = true

	n.State = StateHealthWait
	return c.waitForRecovery(ctx, n)
}

// prepareRestart disables shard allocation and requests a synced flush so
// the cluster neither relocates the node's shards while it is down nor
// replays more operations than necessary when it returns.
func (c *Coordinator) prepareRestart(ctx context.Context, n *NodeResult) error {
	c.out.Printf("- Disabling shard allocation")
	if err := c.health.SetAllocation(ctx, n.Host, false); err != nil {
		return c.fail(n, stepDisableAllocation, err)
	}

	c.out.Printf("- Performing a synced flush")
	if err := c.health.SyncedFlush(ctx, n.Host); err != nil {
		// Best effort: recovery is slower without it but still correct.
		c.out.Printf("  Synced flush failed: %v", err)
	}
	return nil
}

// waitForRecovery is the safety gate between nodes: the node must rejoin
// the cluster, shard allocation is re-enabled, and the cluster must report
// green before the coordinator proceeds.
func (c *Coordinator) waitForRecovery(ctx context.Context, n *NodeResult) error {
	c.out.Printf("- Waiting until node joins the cluster")
	if err := c.health.WaitForNodeJoined(ctx, n.Host, c.cfg.HealthTimeout, c.cfg.PollInterval); err != nil {
		return c.fail(n, stepHealthWait, err)
	}

	c.out.Printf("- Enabling shard allocation")
	if err := c.health.SetAllocation(ctx, n.Host, true); err != nil {
		return c.fail(n, stepEnableAllocation, err)
	}

	c.out.Printf("- Waiting until cluster status is green")
	if err := c.health.WaitForGreen(ctx, n.Host, c.cfg.HealthTimeout, c.cfg.PollInterval); err != nil {
		return c.fail(n, stepHealthWait, err)
	}
	return nil
}

// shouldReboot decides the reboot for a node: an actual upgrade combined
// with the reboot flag, or the unconditional force flag.
func (c *Coordinator) shouldReboot(n *NodeResult) bool {
	if c.cfg.ForceReboot {
		return true
	}
	return c.cfg.Reboot && (n.Upgraded || n.OSUpgraded)
}

// command runs one remote command and fails the node on transport error or
// non-zero exit.
func (c *Coordinator) command(ctx context.Context, n *NodeResult, step, cmd string) (sshexec.Result, error) {
	result, err := c.runner.Run(ctx, n.Host, cmd)
	if err != nil {
		return result, c.fail(n, step, err)
	}
	if c.cfg.Verbose {
		c.out.Printf("  stdout: %s", strings.TrimSpace(result.Stdout))
		c.out.Printf("  stderr: %s", strings.TrimSpace(result.Stderr))
	}
	if result.ExitCode != 0 {
		return result, c.fail(n, step, fmt.Errorf("command exited with status %d: %s",
			result.ExitCode, strings.TrimSpace(result.Stderr)))
	}
	return result, nil
}

// fail marks the node failed at the given step and returns the error.
func (c *Coordinator) fail(n *NodeResult, step string, err error) error {
	n.State = StateFailed
	n.FailedStep = step
	n.Err = err
	return err
}
