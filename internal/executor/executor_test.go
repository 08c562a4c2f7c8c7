package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"atelier/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// helperCommand re-executes the test binary as a fake fabric CLI. The
// behaviour is selected by the pattern name.
func helperCommand(ctx context.Context, name string, args ...string) *exec.Cmd {
	cs := append([]string{"-test.run=TestHelperProcess", "--", name}, args...)
	cmd := exec.CommandContext(ctx, os.Args[0], cs...)
	cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1")
	return cmd
}

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)

	args := os.Args
	for len(args) > 0 && args[0] != "--" {
		args = args[1:]
	}
	// args: -- <binary> --pattern <name>
	if len(args) < 4 {
		fmt.Fprintln(os.Stderr, "bad args")
		os.Exit(2)
	}
	pattern := args[3]

	input, _ := io.ReadAll(os.Stdin)
	switch pattern {
	case "echo":
		fmt.Printf("processed: %s", input)
	case "fail":
		fmt.Fprint(os.Stderr, "pattern exploded")
		os.Exit(3)
	case "sleep":
		time.Sleep(10 * time.Second)
	}
}

func newTestExecutor(t *testing.T, timeout time.Duration, opts ...Option) *FabricExecutor {
	t.Helper()
	logger, _ := logging.NewTestLogger()
	e := WithPath("fabric", timeout, logger, opts...)
	e.command = helperCommand
	return e
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []error
}

func (r *recordingObserver) ObserveExecution(backend string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, err)
}

func TestExecute_Success(t *testing.T) {
	obs := &recordingObserver{}
	e := newTestExecutor(t, 5*time.Second, WithObserver(obs))

	out, err := e.Execute(context.Background(), "echo", "hello world")
	require.NoError(t, err)
	assert.Equal(t, "processed: hello world", out)
	require.Len(t, obs.calls, 1)
	assert.NoError(t, obs.calls[0])
}

func TestExecute_NonZeroExit(t *testing.T) {
	e := newTestExecutor(t, 5*time.Second)

	_, err := e.Execute(context.Background(), "fail", "x")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.ExitCode)
	assert.Equal(t, "fail", exitErr.Pattern)
	assert.Contains(t, exitErr.Stderr, "pattern exploded")
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestExecute_Timeout(t *testing.T) {
	e := newTestExecutor(t, 200*time.Millisecond)

	start := time.Now()
	_, err := e.Execute(context.Background(), "sleep", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExecute_ParentCancelled(t *testing.T) {
	e := newTestExecutor(t, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Execute(ctx, "echo", "x")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, ErrTimeout))
}

func TestExecute_SpawnFailure(t *testing.T) {
	logger, _ := logging.NewTestLogger()
	e := WithPath(filepath.Join(t.TempDir(), "no-such-fabric"), time.Second, logger)

	_, err := e.Execute(context.Background(), "echo", "x")
	require.Error(t, err)

	var spawnErr *SpawnError
	require.True(t, errors.As(err, &spawnErr))
	assert.Equal(t, "echo", spawnErr.Pattern)
}

func TestWithPath_DefaultTimeout(t *testing.T) {
	e := WithPath("/usr/bin/fabric", 0, nil)
	assert.Equal(t, DefaultTimeout, e.Timeout())
	assert.Equal(t, "/usr/bin/fabric", e.Path())
}

func TestFindBinary(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, BinaryName)
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0755))
	notExec := filepath.Join(dir, "plain")
	require.NoError(t, os.WriteFile(notExec, []byte("x"), 0644))

	t.Run("configured path", func(t *testing.T) {
		got, err := FindBinary(bin)
		require.NoError(t, err)
		assert.Equal(t, bin, got)
	})

	t.Run("configured path not executable", func(t *testing.T) {
		_, err := FindBinary(notExec)
		assert.ErrorIs(t, err, ErrBinaryNotFound)
	})

	t.Run("found on PATH", func(t *testing.T) {
		t.Setenv("PATH", dir)
		got, err := FindBinary("")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(got, BinaryName))
	})
}

func TestErrorMessages(t *testing.T) {
	exitErr := &ExitError{Pattern: "summarize", ExitCode: 1, Stderr: "  no model configured\n"}
	assert.Equal(t, `pattern "summarize" failed with exit code 1: no model configured`, exitErr.Error())

	inner := errors.New("permission denied")
	spawnErr := &SpawnError{Pattern: "summarize", Err: inner}
	assert.ErrorIs(t, spawnErr, inner)
}
