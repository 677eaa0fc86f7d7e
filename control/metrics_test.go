// control/metrics_test.go
// Author: momentics <momentics@gmail.com>

package control

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := NewMetrics()
	m.RegionForked(10)
	m.SingleClaimed()
	for i := 0; i < 9; i++ {
		m.SingleSkipped()
	}
	m.RegionJoined(time.Millisecond, nil)
	m.RegionJoined(time.Millisecond, errors.New("boom"))

	require.Equal(t, 10.0, testutil.ToFloat64(m.members))
	require.Equal(t, 10.0, testutil.ToFloat64(m.teamSize))
	require.Equal(t, 1.0, testutil.ToFloat64(m.claims))
	require.Equal(t, 9.0, testutil.ToFloat64(m.skips))
	require.Equal(t, 2.0, testutil.ToFloat64(m.regions))
	require.Equal(t, 1.0, testutil.ToFloat64(m.errors))
}

func TestMetricsWriteText(t *testing.T) {
	m := NewMetrics()
	m.SingleClaimed()

	var buf bytes.Buffer
	require.NoError(t, m.WriteText(&buf))
	require.Contains(t, buf.String(), "hioload_omp_single_claims_total 1")
	require.Contains(t, buf.String(), "# TYPE hioload_omp_region_duration_seconds histogram")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RegionForked(1)
	m.SingleClaimed()
	m.SingleSkipped()
	m.RegionJoined(time.Second, nil)
	require.NoError(t, m.WriteText(&bytes.Buffer{}))
}

func TestDebugProbesLogValue(t *testing.T) {
	dp := NewDebugProbes()
	RegisterPlatformProbes(dp)
	dp.RegisterProbe("a.first", func() any { return 1 })

	state := dp.DumpState()
	require.Contains(t, state, "platform.cpus")
	require.Contains(t, state, "affinity.allowed")

	var buf bytes.Buffer
	slog.New(slog.NewTextHandler(&buf, nil)).Info("probes", "state", dp)
	out := buf.String()
	require.Less(t, strings.Index(out, "state.a.first=1"), strings.Index(out, "state.platform.cpus="))
}
