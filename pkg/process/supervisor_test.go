package process

import (
	"bytes"
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shellBinary(t *testing.T) (string, func(script string) []string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("supervisor tests assume a POSIX shell")
	}
	return "/bin/sh", func(script string) []string { return []string{"-c", script} }
}

func TestRunCapturesExitCode(t *testing.T) {
	sh, args := shellBinary(t)
	result, err := Run(context.Background(), sh, args("exit 7"), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 7, result.ExitCode)
	assert.False(t, result.Canceled)
}

func TestRunStreamsStdoutLineByLine(t *testing.T) {
	sh, args := shellBinary(t)
	var out bytes.Buffer
	result, err := Run(context.Background(), sh, args("printf 'one\\ntwo\\n'"), nil, &out, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "one\ntwo\n", out.String())
}

func TestRunSharedSinkSerializesWrites(t *testing.T) {
	sh, args := shellBinary(t)
	var combined bytes.Buffer
	result, err := Run(context.Background(), sh, args("echo out-line; echo err-line 1>&2"), nil, &combined, &combined)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, combined.String(), "out-line")
	assert.Contains(t, combined.String(), "err-line")
}

func TestRunCancellationTerminatesChild(t *testing.T) {
	sh, args := shellBinary(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := Run(ctx, sh, args("sleep 30"), nil, nil, nil)
	require.NoError(t, err)
	assert.True(t, result.Canceled)
}

func TestRunAndCaptureOnFailureReturnsDescriptiveError(t *testing.T) {
	sh, args := shellBinary(t)
	err := RunAndCaptureOnFailure(context.Background(), sh, args("echo boom 1>&2; exit 2"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with code 2")
	assert.Contains(t, err.Error(), "boom")
}

func TestRunAndCaptureOnFailureTruncatesLongOutput(t *testing.T) {
	sh, args := shellBinary(t)
	err := RunAndCaptureOnFailure(context.Background(), sh, args("yes x | head -c 5000; exit 1"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "...")
}

func TestRunAndCaptureOnFailureSucceedsOnZeroExit(t *testing.T) {
	sh, args := shellBinary(t)
	err := RunAndCaptureOnFailure(context.Background(), sh, args("exit 0"), nil)
	assert.NoError(t, err)
}
