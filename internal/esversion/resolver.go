package esversion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"esroll/internal/config"
	"esroll/internal/sshexec"
)

// Runner executes a shell command on a remote node.
// Implemented by sshexec.Executor.
type Runner interface {
	Run(ctx context.Context, host, command string) (sshexec.Result, error)
}

// ResolutionError indicates the target version for the run could not be
// determined.
type ResolutionError struct {
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to resolve target version: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to resolve target version: %s", e.Reason)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// QueryError indicates a node's installed version could not be determined.
type QueryError struct {
	Host string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("failed to query version of node %s: %v", e.Host, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Resolver determines the installed version on a node and the target
// version for the fleet.
type Resolver struct {
	cfg    *config.Config
	runner Runner
	client *http.Client
	log    zerolog.Logger
}

// NewResolver creates a resolver using the given remote runner for the
// latest-version query and the configured HTTP endpoint for node versions.
func NewResolver(cfg *config.Config, runner Runner, log zerolog.Logger) *Resolver {
	return &Resolver{
		cfg:    cfg,
		runner: runner,
		client: cfg.HTTPClient(),
		log:    log,
	}
}

// ResolveTarget determines the version every node should end up running.
// An explicit version is returned unchanged; "latest" runs the configured
// latest-version command on the first node of the list and takes the first
// line of its output.
func (r *Resolver) ResolveTarget(ctx context.Context) (string, error) {
	if r.cfg.Version != "latest" {
		return r.cfg.Version, nil
	}

	host := r.cfg.Nodes[0]
	r.log.Debug().Str("node", host).Msg("determining latest available version")

	result, err := r.runner.Run(ctx, host, r.cfg.Commands.LatestVersion)
	if err != nil {
		return "", &ResolutionError{Reason: "latest-version command failed", Err: err}
	}
	if result.ExitCode != 0 {
		return "", &ResolutionError{
			Reason: fmt.Sprintf("latest-version command exited %d on %s: %s",
				result.ExitCode, host, strings.TrimSpace(result.Stderr)),
		}
	}

	line, _, _ := strings.Cut(result.Stdout, "\n")
	version := strings.TrimSpace(line)
	if version == "" {
		return "", &ResolutionError{Reason: "latest-version command produced no output"}
	}
	if _, err := Parse(version); err != nil {
		return "", &ResolutionError{Reason: "latest-version command produced unparseable output", Err: err}
	}

	return version, nil
}

// nodeInfo is the subset of the Elasticsearch root endpoint response we need.
type nodeInfo struct {
	Version struct {
		Number string `json:"number"`
	} `json:"version"`
}

// CurrentVersion queries the node's management endpoint for the installed
// version.
func (r *Resolver) CurrentVersion(ctx context.Context, node string) (string, error) {
	url := r.cfg.NodeURL(node) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &QueryError{Host: node, Err: err}
	}
	r.cfg.ApplyAuth(req)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", &QueryError{Host: node, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &QueryError{Host: node, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	var info nodeInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", &QueryError{Host: node, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	if info.Version.Number == "" {
		return "", &QueryError{Host: node, Err: fmt.Errorf("response has no version.number field")}
	}

	r.log.Debug().Str("node", node).Str("version", info.Version.Number).Msg("resolved node version")
	return info.Version.Number, nil
}
