package health

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"esroll/internal/config"
)

func monitorFor(t *testing.T, srv *httptest.Server) (*Monitor, string) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	cfg := &config.Config{Nodes: []string{u.Hostname()}, Port: port}
	cfg.ApplyDefaults()
	return NewMonitor(cfg, zerolog.Nop()), u.Hostname()
}

func TestCurrentStatus_Mapping(t *testing.T) {
	tests := []struct {
		name string
		body string
		code int
		want Status
	}{
		{"green", "1510000000 12:00:00 elasticsearch green 3 3 6 3 0 0 0 0 - 100.0%\n", http.StatusOK, StatusGreen},
		{"yellow", "1510000000 12:00:00 elasticsearch yellow 3 3 6 3 0 0 2 0 - 83.3%\n", http.StatusOK, StatusYellow},
		{"red", "1510000000 12:00:00 elasticsearch red 2 2 4 2 0 0 4 0 - 50.0%\n", http.StatusOK, StatusRed},
		{"unrecognized body", "something else\n", http.StatusOK, StatusUnknown},
		{"server error", "green", http.StatusInternalServerError, StatusUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/_cat/health", r.URL.Path)
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m, host := monitorFor(t, srv)
			assert.Equal(t, tt.want, m.CurrentStatus(context.Background(), host))
		})
	}
}

func TestCurrentStatus_ConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	m, host := monitorFor(t, srv)
	srv.Close()

	assert.Equal(t, StatusUnknown, m.CurrentStatus(context.Background(), host))
}

func TestWaitForGreen_ImmediateGreen(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		polls.Add(1)
		_, _ = w.Write([]byte("elasticsearch green\n"))
	}))
	defer srv.Close()

	m, host := monitorFor(t, srv)

	start := time.Now()
	err := m.WaitForGreen(context.Background(), host, time.Minute, time.Minute)

	require.NoError(t, err)
	assert.Equal(t, int32(1), polls.Load())
	assert.Less(t, time.Since(start), time.Second, "green on first poll must not sleep")
}

func TestWaitForGreen_EventuallyGreen(t *testing.T) {
	var polls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if polls.Add(1) < 3 {
			_, _ = w.Write([]byte("elasticsearch yellow\n"))
			return
		}
		_, _ = w.Write([]byte("elasticsearch green\n"))
	}))
	defer srv.Close()

	m, host := monitorFor(t, srv)
	err := m.WaitForGreen(context.Background(), host, time.Minute, time.Millisecond)

	require.NoError(t, err)
	assert.Equal(t, int32(3), polls.Load())
}

func TestWaitForGreen_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("elasticsearch yellow\n"))
	}))
	defer srv.Close()

	m, host := monitorFor(t, srv)
	err := m.WaitForGreen(context.Background(), host, 10*time.Millisecond, time.Millisecond)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, StatusYellow, timeoutErr.LastStatus)
}

func TestWaitForGreen_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("elasticsearch red\n"))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m, host := monitorFor(t, srv)
	err := m.WaitForGreen(ctx, host, time.Minute, time.Minute)

	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitForNodeJoined(t *testing.T) {
	var polls atomic.Int32
	var host string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/_cat/nodes", r.URL.Path)
		if polls.Add(1) < 2 {
			_, _ = w.Write([]byte("10.0.0.2 mdi - es2\n"))
			return
		}
		_, _ = w.Write([]byte("10.0.0.2 mdi - es2\n" + host + " mdi * es1\n"))
	}))
	defer srv.Close()

	m, h := monitorFor(t, srv)
	host = h

	err := m.WaitForNodeJoined(context.Background(), host, time.Minute, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, int32(2), polls.Load())
}

func TestWaitForNodeJoined_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("10.0.0.2 mdi - es2\n"))
	}))
	defer srv.Close()

	m, host := monitorFor(t, srv)
	err := m.WaitForNodeJoined(context.Background(), host, 10*time.Millisecond, time.Millisecond)
	require.Error(t, err)
}

func TestSetAllocation(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/_cluster/settings", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	}))
	defer srv.Close()

	m, host := monitorFor(t, srv)

	require.NoError(t, m.SetAllocation(context.Background(), host, false))
	assert.Contains(t, gotBody, `"cluster.routing.allocation.enable":"none"`)

	require.NoError(t, m.SetAllocation(context.Background(), host, true))
	assert.Contains(t, gotBody, `"cluster.routing.allocation.enable":"all"`)
}

func TestSetAllocation_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	m, host := monitorFor(t, srv)
	assert.Error(t, m.SetAllocation(context.Background(), host, false))
}

func TestSyncedFlush_BestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/_flush/synced", r.URL.Path)
		// A conflict here means some shards had pending operations; the
		// flush is still best effort.
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	m, host := monitorFor(t, srv)
	assert.NoError(t, m.SyncedFlush(context.Background(), host))
}
