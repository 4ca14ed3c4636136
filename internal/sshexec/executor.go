// Package sshexec executes shell commands on cluster nodes over SSH.
// It handles connection establishment with retry logic, key-based
// authentication, and keeps transport failures distinct from remote
// commands that ran but exited non-zero.
//
// Security: Host key verification is disabled by default. Configure
// HostKeyCallback for environments where the node host keys are pinned.
package sshexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/ssh"

	"esroll/internal/util/retry"
)

const (
	defaultPort        = 22
	defaultDialTimeout = 10 * time.Second
	defaultMaxRetries  = 3
	defaultRetryDelay  = 2 * time.Second
	defaultMaxDelay    = 10 * time.Second
)

// Result is the uniform outcome of a remote command invocation.
// A populated Result with a non-zero ExitCode is not an error at this
// layer; interpreting the exit code is the caller's policy decision.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Config holds SSH transport configuration shared by all nodes.
type Config struct {
	User    string
	Port    int
	KeyFile string

	// PrivateKey takes precedence over KeyFile when set.
	PrivateKey []byte

	// DialTimeout is the timeout for establishing the TCP connection.
	// If zero, defaultDialTimeout is used.
	DialTimeout time.Duration

	// MaxRetries is the maximum number of connection retry attempts.
	// This retries the dial only, never the command itself.
	// If zero, defaultMaxRetries is used.
	MaxRetries int

	// RetryDelay is the initial delay between dial retry attempts.
	// If zero, defaultRetryDelay is used.
	RetryDelay time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used.
	HostKeyCallback ssh.HostKeyCallback
}

// Executor runs commands on remote nodes via SSH.
// It parses the private key once during construction and creates a
// connection per Run call.
type Executor struct {
	config *Config
	signer ssh.Signer
}

// NewExecutor creates a new SSH executor and validates the private key.
func NewExecutor(cfg *Config) (*Executor, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}

	// Copy config to avoid mutating caller's struct
	configCopy := *cfg

	if configCopy.Port == 0 {
		configCopy.Port = defaultPort
	}
	if configCopy.DialTimeout == 0 {
		configCopy.DialTimeout = defaultDialTimeout
	}
	if configCopy.MaxRetries == 0 {
		configCopy.MaxRetries = defaultMaxRetries
	}
	if configCopy.RetryDelay == 0 {
		configCopy.RetryDelay = defaultRetryDelay
	}
	if configCopy.HostKeyCallback == nil {
		configCopy.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // Opt-in pinning via Config.HostKeyCallback
	}

	key := configCopy.PrivateKey
	if len(key) == 0 {
		if configCopy.KeyFile == "" {
			return nil, fmt.Errorf("config requires a private key or key file")
		}
		data, err := os.ReadFile(configCopy.KeyFile) // #nosec G304
		if err != nil {
			return nil, fmt.Errorf("failed to read private key file: %w", err)
		}
		key = data
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &Executor{
		config: &configCopy,
		signer: signer,
	}, nil
}

// Run executes a command on the given host and blocks until it completes.
// A transport or authentication failure is returned as an error; a command
// that ran and exited non-zero is returned as a Result with nil error.
func (e *Executor) Run(ctx context.Context, host, command string) (Result, error) {
	client, err := e.connect(ctx, host)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = client.Close() }()

	return e.runCommand(client, host, command)
}

// connect establishes the SSH connection with retry on transient dial failures.
func (e *Executor) connect(ctx context.Context, host string) (*ssh.Client, error) {
	config := &ssh.ClientConfig{
		User: e.config.User,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(e.signer),
		},
		HostKeyCallback: e.config.HostKeyCallback,
		Timeout:         e.config.DialTimeout,
	}

	addr := fmt.Sprintf("%s:%d", host, e.config.Port)
	var client *ssh.Client

	err := retry.Do(ctx, func() error {
		var dialErr error
		client, dialErr = ssh.Dial("tcp", addr, config)
		return dialErr
	},
		retry.WithMaxRetries(e.config.MaxRetries),
		retry.WithInitialDelay(e.config.RetryDelay),
		retry.WithMaxDelay(defaultMaxDelay),
	)

	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}

	return client, nil
}

// runCommand executes a command on an established SSH connection.
func (e *Executor) runCommand(client *ssh.Client, host, command string) (Result, error) {
	session, err := client.NewSession()
	if err != nil {
		return Result{}, fmt.Errorf("failed to create SSH session on %s: %w", host, err)
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	err = session.Run(command)
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *ssh.ExitError
		if errors.As(err, &exitErr) {
			// The command ran and returned a status.
			result.ExitCode = exitErr.ExitStatus()
			return result, nil
		}
		return result, fmt.Errorf("command did not complete on %s: %w", host, err)
	}

	return result, nil
}
