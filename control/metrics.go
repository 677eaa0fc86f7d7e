// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics for thread teams, kept on a private Prometheus registry.
// All methods are safe on a nil *Metrics, which records nothing.

package control

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const namespace = "hioload_omp"

// Metrics holds the team collectors.
type Metrics struct {
	registry *prometheus.Registry

	regions  prometheus.Counter
	members  prometheus.Counter
	claims   prometheus.Counter
	skips    prometheus.Counter
	errors   prometheus.Counter
	duration prometheus.Histogram
	teamSize prometheus.Gauge
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		regions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regions_total",
			Help:      "Parallel regions joined.",
		}),
		members: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_members_total",
			Help:      "Team members forked across all regions.",
		}),
		claims: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "single_claims_total",
			Help:      "Single constructs executed by the claiming member.",
		}),
		skips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "single_skips_total",
			Help:      "Single constructs skipped by members that lost the claim.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "region_errors_total",
			Help:      "Parallel regions that joined with an error.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "region_duration_seconds",
			Help:      "Wall time from fork to join.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		teamSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "team_size",
			Help:      "Size of the most recently forked team.",
		}),
	}
	m.registry.MustRegister(m.regions, m.members, m.claims, m.skips, m.errors, m.duration, m.teamSize)
	return m
}

// Registry exposes the underlying registry, e.g. for promhttp.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegionForked records the fork of a team of size n.
func (m *Metrics) RegionForked(n int) {
	if m == nil {
		return
	}
	m.members.Add(float64(n))
	m.teamSize.Set(float64(n))
}

// RegionJoined records a completed region.
func (m *Metrics) RegionJoined(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.regions.Inc()
	m.duration.Observe(d.Seconds())
	if err != nil {
		m.errors.Inc()
	}
}

// SingleClaimed records a member winning a single construct.
func (m *Metrics) SingleClaimed() {
	if m == nil {
		return
	}
	m.claims.Inc()
}

// SingleSkipped records a member losing a single construct.
func (m *Metrics) SingleSkipped() {
	if m == nil {
		return
	}
	m.skips.Inc()
}

// WriteText writes every collector in the Prometheus text exposition format.
func (m *Metrics) WriteText(w io.Writer) error {
	if m == nil {
		return nil
	}
	mfs, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("control: gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range mfs {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("control: encoding metrics: %w", err)
		}
	}
	return nil
}
