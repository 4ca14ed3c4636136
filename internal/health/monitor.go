// Package health queries and polls the aggregate health of the cluster.
package health

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"esroll/internal/config"
)

// Status is the aggregate cluster health.
type Status string

const (
	StatusGreen   Status = "green"
	StatusYellow  Status = "yellow"
	StatusRed     Status = "red"
	StatusUnknown Status = "unknown"
)

// TimeoutError indicates the cluster did not return to green within the
// allotted time. It carries the last status observed before giving up.
type TimeoutError struct {
	LastStatus Status
	Waited     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("cluster did not reach green status within %s (last observed: %s)", e.Waited, e.LastStatus)
}

// Monitor queries cluster health through a node's HTTP endpoint.
// Every query is fresh; nothing is cached between polls.
type Monitor struct {
	cfg    *config.Config
	client *http.Client
	log    zerolog.Logger
}

// NewMonitor creates a health monitor for the configured cluster.
func NewMonitor(cfg *config.Config, log zerolog.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		client: cfg.HTTPClient(),
		log:    log,
	}
}

// CurrentStatus performs a single synchronous health query against the
// given node. Any network or parse failure maps to StatusUnknown.
func (m *Monitor) CurrentStatus(ctx context.Context, node string) Status {
	body, err := m.get(ctx, node, "/_cat/health")
	if err != nil {
		m.log.Debug().Str("node", node).Err(err).Msg("health query failed")
		return StatusUnknown
	}

	switch {
	case strings.Contains(body, string(StatusGreen)):
		return StatusGreen
	case strings.Contains(body, string(StatusYellow)):
		return StatusYellow
	case strings.Contains(body, string(StatusRed)):
		return StatusRed
	}
	return StatusUnknown
}

// WaitForGreen polls the cluster health until it is green. A cluster that
// is already green returns immediately without sleeping. On timeout a
// TimeoutError carrying the last observed status is returned.
func (m *Monitor) WaitForGreen(ctx context.Context, node string, timeout, pollInterval time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		status := m.CurrentStatus(ctx, node)
		if status == StatusGreen {
			return nil
		}

		if time.Now().After(deadline) {
			return &TimeoutError{LastStatus: status, Waited: timeout}
		}

		m.log.Debug().Str("node", node).Str("status", string(status)).Msg("cluster not green yet")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// WaitForNodeJoined polls the cluster node listing until the given node
// appears in it, meaning the node rejoined the cluster after a restart.
func (m *Monitor) WaitForNodeJoined(ctx context.Context, node string, timeout, pollInterval time.Duration) error {
	deadline := time.Now().Add(timeout)

	for {
		body, err := m.get(ctx, node, "/_cat/nodes")
		if err == nil && strings.Contains(body, node) {
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("node %s did not rejoin the cluster within %s", node, timeout)
		}

		m.log.Debug().Str("node", node).Msg("node has not rejoined the cluster yet")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// SetAllocation enables or disables shard allocation for the whole cluster.
// Allocation is disabled around a node restart so the cluster does not
// start relocating that node's shards while it is down.
func (m *Monitor) SetAllocation(ctx context.Context, node string, enable bool) error {
	value := "none"
	if enable {
		value = "all"
	}
	body := fmt.Sprintf(`{"transient":{"cluster.routing.allocation.enable":%q}}`, value)

	resp, err := m.do(ctx, http.MethodPut, node, "/_cluster/settings", strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to set shard allocation to %s: %w", value, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to set shard allocation to %s: unexpected status %s", value, resp.Status)
	}
	return nil
}

// SyncedFlush asks the cluster for a synced flush, which speeds up shard
// recovery after the restart. The operation is best effort; a non-OK
// response is not an error.
func (m *Monitor) SyncedFlush(ctx context.Context, node string) error {
	resp, err := m.do(ctx, http.MethodPost, node, "/_flush/synced", bytes.NewReader(nil))
	if err != nil {
		return fmt.Errorf("synced flush failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		m.log.Debug().Str("node", node).Str("status", resp.Status).Msg("synced flush not acknowledged")
	}
	return nil
}

func (m *Monitor) get(ctx context.Context, node, path string) (string, error) {
	resp, err := m.do(ctx, http.MethodGet, node, path, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (m *Monitor) do(ctx context.Context, method, node, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, m.cfg.NodeURL(node)+path, body)
	if err != nil {
		return nil, err
	}
	m.cfg.ApplyAuth(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return m.client.Do(req)
}
