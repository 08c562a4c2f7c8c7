// Package executor runs patterns through the Fabric CLI.
//
// Content is written to the child's stdin and the child's stdout is returned.
// Failures are reported as one of three distinct kinds: ErrTimeout, *ExitError
// and *SpawnError.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"atelier/internal/logging"
)

// BinaryName is the Fabric CLI executable name.
const BinaryName = "fabric"

// DefaultTimeout bounds a pattern run when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// fallbackPaths are checked when the binary is not on PATH.
var fallbackPaths = []string{"/usr/local/bin/fabric", "/usr/bin/fabric"}

var (
	// ErrTimeout is returned when a run exceeds the executor timeout.
	ErrTimeout = errors.New("pattern execution timed out")

	// ErrBinaryNotFound is returned when no Fabric CLI can be located.
	ErrBinaryNotFound = errors.New("fabric CLI not found, install fabric or set fabric.cli_path in config")
)

// ExitError reports a run that completed with a non-zero exit status.
type ExitError struct {
	Pattern  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("pattern %q failed with exit code %d: %s", e.Pattern, e.ExitCode, strings.TrimSpace(e.Stderr))
}

// SpawnError reports a process that could not be started or communicated with.
type SpawnError struct {
	Pattern string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to run fabric for pattern %q: %v", e.Pattern, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// Executor runs a named pattern over content.
type Executor interface {
	Execute(ctx context.Context, pattern, content string) (string, error)
}

// Observer is told about each run.
type Observer interface {
	ObserveExecution(backend string, duration time.Duration, err error)
}

// FabricExecutor invokes `fabric --pattern <name>`.
type FabricExecutor struct {
	path     string
	timeout  time.Duration
	logger   *logging.AppLogger
	observer Observer

	// command builds the child process; replaced in tests
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// Option configures a FabricExecutor.
type Option func(*FabricExecutor)

// WithObserver installs an execution observer.
func WithObserver(o Observer) Option {
	return func(e *FabricExecutor) { e.observer = o }
}

// New locates the Fabric CLI (configured path first) and returns an executor.
func New(configuredPath string, timeout time.Duration, logger *logging.AppLogger, opts ...Option) (*FabricExecutor, error) {
	path, err := FindBinary(configuredPath)
	if err != nil {
		return nil, err
	}
	return WithPath(path, timeout, logger, opts...), nil
}

// WithPath returns an executor for a known binary path.
func WithPath(path string, timeout time.Duration, logger *logging.AppLogger, opts ...Option) *FabricExecutor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = logging.GetDefault()
	}
	e := &FabricExecutor{
		path:    path,
		timeout: timeout,
		logger:  logger,
		command: exec.CommandContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Path returns the binary used by the executor.
func (e *FabricExecutor) Path() string {
	return e.path
}

// Timeout returns the per-run timeout.
func (e *FabricExecutor) Timeout() time.Duration {
	return e.timeout
}

// FindBinary resolves the Fabric CLI: the configured path when set, then
// PATH, then the well-known install locations.
func FindBinary(configured string) (string, error) {
	if configured != "" {
		if isExecutable(configured) {
			return configured, nil
		}
		return "", fmt.Errorf("configured fabric CLI %q is not executable: %w", configured, ErrBinaryNotFound)
	}

	if path, err := exec.LookPath(BinaryName); err == nil {
		return path, nil
	}

	for _, candidate := range fallbackPaths {
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	return "", ErrBinaryNotFound
}

// Execute runs the pattern with content on stdin and returns stdout.
func (e *FabricExecutor) Execute(ctx context.Context, pattern, content string) (string, error) {
	start := time.Now()
	out, err := e.execute(ctx, pattern, content)
	if e.observer != nil {
		e.observer.ObserveExecution(BinaryName, time.Since(start), err)
	}
	return out, err
}

func (e *FabricExecutor) execute(ctx context.Context, pattern, content string) (string, error) {
	e.logger.Debug("Executing pattern", "pattern", pattern, "contentBytes", len(content))

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := e.command(runCtx, e.path, "--pattern", pattern)
	cmd.Stdin = strings.NewReader(content)
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	switch {
	case err == nil:
	case errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil:
		e.logger.Warn("Pattern execution timed out", "pattern", pattern, "timeout", e.timeout)
		return "", fmt.Errorf("pattern %q after %s: %w", pattern, e.timeout, ErrTimeout)
	case ctx.Err() != nil:
		return "", ctx.Err()
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			e.logger.Warn("Pattern execution failed", "pattern", pattern, "exitCode", exitErr.ExitCode(), "stderr", stderr.String())
			return "", &ExitError{Pattern: pattern, ExitCode: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		return "", &SpawnError{Pattern: pattern, Err: err}
	}

	e.logger.Debug("Pattern execution successful", "pattern", pattern, "outputBytes", stdout.Len())
	return strings.ToValidUTF8(stdout.String(), "\uFFFD"), nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0111 != 0
}
