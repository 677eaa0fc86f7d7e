// File: cmd/single/main_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"testing"

	"github.com/momentics/hioload-omp/api"
	"github.com/stretchr/testify/require"
)

var lineRE = regexp.MustCompile(`^single (\d+) from thread id is (\d+) (\d+)$`)

type line struct{ construct, thread, threads int }

func runSingle(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := command(&stdout, &stderr).Run(context.Background(), append([]string{"single"}, args...))
	return stdout.String(), stderr.String(), err
}

func parseLines(t *testing.T, out string) []line {
	t.Helper()
	var lines []line
	for _, raw := range bytes.Split(bytes.TrimSuffix([]byte(out), []byte("\n")), []byte("\n")) {
		m := lineRE.FindStringSubmatch(string(raw))
		require.NotNil(t, m, "unexpected output line %q", raw)
		var l line
		l.construct, _ = strconv.Atoi(m[1])
		l.thread, _ = strconv.Atoi(m[2])
		l.threads, _ = strconv.Atoi(m[3])
		lines = append(lines, l)
	}
	return lines
}

func TestDefaultRunPrintsOneLine(t *testing.T) {
	for i := 0; i < 20; i++ {
		stdout, stderr, err := runSingle(t)
		require.NoError(t, err)
		require.Empty(t, stderr)

		lines := parseLines(t, stdout)
		require.Len(t, lines, 1)
		require.Equal(t, 1, lines[0].construct)
		require.GreaterOrEqual(t, lines[0].thread, 0)
		require.Less(t, lines[0].thread, 10)
		require.Equal(t, 10, lines[0].threads)
	}
}

func TestThreadsAndConstructsFlags(t *testing.T) {
	for _, pooled := range []string{"--pooled=false", "--pooled"} {
		stdout, _, err := runSingle(t, "-n", "7", "-c", "3", pooled)
		require.NoError(t, err)

		lines := parseLines(t, stdout)
		require.Len(t, lines, 3)
		var constructs []int
		for _, l := range lines {
			constructs = append(constructs, l.construct)
			require.Less(t, l.thread, 7)
			require.Equal(t, 7, l.threads)
		}
		sort.Ints(constructs)
		require.Equal(t, []int{1, 2, 3}, constructs)
	}
}

func TestConfigFileWithFlagOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "single.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: 3\nconstructs: 2\npooled: true\n"), 0o600))

	stdout, _, err := runSingle(t, "--config", path)
	require.NoError(t, err)
	lines := parseLines(t, stdout)
	require.Len(t, lines, 2)
	require.Equal(t, 3, lines[0].threads)

	stdout, _, err = runSingle(t, "--config", path, "--threads", "5")
	require.NoError(t, err)
	lines = parseLines(t, stdout)
	require.Len(t, lines, 2)
	require.Equal(t, 5, lines[0].threads)
}

func TestMetricsGoToStderr(t *testing.T) {
	stdout, stderr, err := runSingle(t, "--metrics")
	require.NoError(t, err)
	require.Len(t, parseLines(t, stdout), 1)
	require.Contains(t, stderr, "hioload_omp_single_claims_total 1")
	require.Contains(t, stderr, "hioload_omp_single_skips_total 9")
}

func TestInvalidThreads(t *testing.T) {
	stdout, _, err := runSingle(t, "--threads", "0")
	require.ErrorIs(t, err, api.ErrInvalidTeamSize)
	require.Empty(t, stdout)
}

func TestInvalidLogLevel(t *testing.T) {
	_, _, err := runSingle(t, "--log-level", "chatty")
	require.ErrorIs(t, err, api.ErrInvalidArgument)
}

type failingWriter struct{}

var errClosed = errors.New("stdout closed")

func (failingWriter) Write([]byte) (int, error) { return 0, errClosed }

func TestOutputFailureIsAnError(t *testing.T) {
	var stderr bytes.Buffer
	err := command(failingWriter{}, &stderr).Run(context.Background(), []string{"single"})
	require.ErrorIs(t, err, errClosed)
}

func TestDebugLoggingDumpsProbes(t *testing.T) {
	_, stderr, err := runSingle(t, "--log-level", "debug", "--pooled")
	require.NoError(t, err)
	require.Contains(t, stderr, "probes.platform.cpus=")
	require.Contains(t, stderr, "region joined")
}
