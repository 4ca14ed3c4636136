package upgrade

// State is the position of a node in the per-node upgrade state machine.
// Skipped, Done and Failed are terminal.
type State string

const (
	StatePending         State = "pending"
	StateVersionChecked  State = "version-checked"
	StateSkipped         State = "skipped"
	StateStopping        State = "stopping"
	StateUpgrading       State = "upgrading"
	StateSystemUpgrading State = "system-upgrading"
	StateStarting        State = "starting"
	StateHealthWait      State = "health-wait"
	StateRebooting       State = "rebooting"
	StateDone            State = "done"
	StateFailed          State = "failed"
)

// NodeResult is the outcome of one node in a run.
type NodeResult struct {
	Host           string
	State          State
	CurrentVersion string

	// Upgraded is true when the upgrade command ran and actually changed
	// the installed package.
	Upgraded bool

	// OSUpgraded is true when the system upgrade command ran and changed
	// at least one package.
	OSUpgraded bool

	Rebooted bool

	// FailedStep names the step at which the node failed, empty otherwise.
	FailedStep string
	Err        error
}

// Report is the ordered record of a run across the fleet. Nodes after a
// failing node remain in StatePending.
type Report struct {
	Target string
	Nodes  []NodeResult
}

// NewReport creates a report with every node pending, in upgrade order.
func NewReport(hosts []string) *Report {
	nodes := make([]NodeResult, len(hosts))
	for i, host := range hosts {
		nodes[i] = NodeResult{Host: host, State: StatePending}
	}
	return &Report{Nodes: nodes}
}

// Summary aggregates per-node outcomes.
type Summary struct {
	Upgraded int
	Skipped  int
	Rebooted int
	Failed   int
	Pending  int
}

// Summarize counts the node outcomes of the run.
func (r *Report) Summarize() Summary {
	var s Summary
	for _, n := range r.Nodes {
		if n.Upgraded {
			s.Upgraded++
		}
		if n.Rebooted {
			s.Rebooted++
		}
		switch n.State {
		case StateSkipped:
			s.Skipped++
		case StateFailed:
			s.Failed++
		case StatePending:
			s.Pending++
		}
	}
	return s
}

// Failed reports whether any node failed during the run.
func (r *Report) Failed() bool {
	for _, n := range r.Nodes {
		if n.State == StateFailed {
			return true
		}
	}
	return false
}
