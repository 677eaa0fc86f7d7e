// File: team/team.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package team

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/momentics/hioload-omp/affinity"
	"github.com/momentics/hioload-omp/api"
	"github.com/momentics/hioload-omp/control"
	"github.com/momentics/hioload-omp/internal/concurrency"
	"golang.org/x/sync/errgroup"
)

// Body is the parallel body every member runs.
type Body = func(ctx context.Context, m api.Member) error

var _ api.Team = (*Team)(nil)

// Option configures optional Team collaborators.
type Option func(*Team)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(t *Team) { t.log = l }
}

// WithMetrics records regions and single constructs on m.
func WithMetrics(m *control.Metrics) Option {
	return func(t *Team) { t.metrics = m }
}

// Team is a fixed-size set of members that runs one parallel region at a time.
type Team struct {
	cfg     Config
	exec    *concurrency.Executor // nil unless cfg.Pooled
	plan    []int                 // per-member CPU for forked members, nil unless pinning
	log     *slog.Logger
	metrics *control.Metrics

	mu      sync.Mutex // serializes regions against each other and Close
	closed  atomic.Bool
	regions atomic.Uint64
}

// New creates a team. Pooled teams start their workers here, so a strict
// pinning failure is reported by New.
func New(cfg *Config, opts ...Option) (*Team, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	t := &Team{cfg: *cfg, log: slog.Default()}
	t.cfg.CPUs = slices.Clone(cfg.CPUs)
	for _, opt := range opts {
		opt(t)
	}

	if t.cfg.Pooled {
		exec, err := concurrency.NewExecutor(concurrency.Config{
			NumWorkers: t.cfg.Size,
			Pin:        t.cfg.Pin,
			CPUs:       t.cfg.CPUs,
			Strict:     t.cfg.StrictAffinity,
			Logger:     t.log,
		})
		if err != nil {
			return nil, fmt.Errorf("team: starting %d workers: %w", t.cfg.Size, err)
		}
		t.exec = exec
	} else if t.cfg.Pin {
		t.plan = affinity.Plan(t.cfg.Size, t.cfg.CPUs)
		if t.cfg.StrictAffinity {
			if err := checkPlan(t.plan); err != nil {
				return nil, err
			}
		}
	}
	t.log.Debug("team created", "size", t.cfg.Size, "pooled", t.cfg.Pooled, "pin", t.cfg.Pin)
	return t, nil
}

// checkPlan rejects CPUs the process is not allowed to run on.
func checkPlan(plan []int) error {
	allowed, err := affinity.Allowed()
	if err != nil {
		return api.NewError(api.ErrCodeNotSupported, "team: cannot pin members").Wrap(err)
	}
	for i, cpu := range plan {
		if !slices.Contains(allowed, cpu) {
			return api.NewError(api.ErrCodeResourceExhausted, "team: cpu not in allowed set").
				WithContext("member", i).
				WithContext("cpu", cpu)
		}
	}
	return nil
}

// Size returns the number of members.
func (t *Team) Size() int {
	return t.cfg.Size
}

// Regions returns the number of regions joined so far.
func (t *Team) Regions() uint64 {
	return t.regions.Load()
}

// Parallel forks every member into body and blocks until all of them have
// returned, whatever their outcome. The context passed to body is cancelled
// as soon as any member fails. Parallel returns the first member error; a
// member panic becomes an *api.Error with code ErrCodeMemberPanic.
func (t *Team) Parallel(ctx context.Context, body Body) error {
	if body == nil {
		return fmt.Errorf("%w: nil body", api.ErrInvalidArgument)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed.Load() {
		return api.ErrTeamClosed
	}

	r := newRegion(t.cfg.Size, t.metrics)
	_, err := t.run(ctx, r, body)
	return err
}

// run executes one region and returns it joined, for inspection.
func (t *Team) run(ctx context.Context, r *region, body Body) (*region, error) {
	r.advance(NotStarted, Running)
	start := time.Now()
	t.metrics.RegionForked(r.size)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.size; i++ {
		m := &Member{id: i, region: r}
		if t.exec != nil {
			done := make(chan error, 1)
			if err := t.exec.SubmitTo(i, func(int) { done <- t.runMember(gctx, m, body) }); err != nil {
				done <- err
			}
			g.Go(func() error { return <-done })
			continue
		}
		g.Go(func() error { return t.forkMember(gctx, m, body) })
	}
	err := g.Wait()

	r.advance(Running, Joined)
	elapsed := time.Since(start)
	t.metrics.RegionJoined(elapsed, err)
	n := t.regions.Add(1)
	t.log.Debug("region joined",
		"region", n,
		"size", r.size,
		"winners", r.gates.winners(),
		"elapsed", elapsed,
		"err", err,
	)
	return r, err
}

// forkMember runs a member on the current, freshly forked goroutine. A pinned
// member keeps its OS thread locked until the goroutine ends, so the thread
// and its affinity are discarded with it.
func (t *Team) forkMember(ctx context.Context, m *Member, body Body) error {
	if t.plan != nil {
		runtime.LockOSThread()
		cpu := t.plan[m.id]
		if err := affinity.SetAffinity(cpu); err != nil {
			if t.cfg.StrictAffinity {
				return api.NewError(api.ErrCodeResourceExhausted, "team: pinning member").
					WithContext("member", m.id).
					WithContext("cpu", cpu).
					Wrap(err)
			}
			t.log.Warn("member running unpinned", "member", m.id, "cpu", cpu, "err", err)
		}
	}
	return t.runMember(ctx, m, body)
}

func (t *Team) runMember(ctx context.Context, m *Member, body Body) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = api.NewError(api.ErrCodeMemberPanic, "team: member panicked").
				WithContext("member", m.id).
				WithContext("panic", fmt.Sprint(p))
		}
	}()
	return body(ctx, m)
}

// Close stops pooled workers once the running region, if any, has joined.
// Further calls to Parallel fail with api.ErrTeamClosed.
func (t *Team) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t.exec != nil {
		t.exec.Close()
	}
	t.log.Debug("team closed", "regions", t.regions.Load())
	return nil
}

// Run is a convenience that creates a team of size n, runs one region and
// closes the team.
func Run(ctx context.Context, n int, body Body, opts ...Option) error {
	cfg := DefaultConfig()
	cfg.Size = n
	t, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	defer t.Close()
	return t.Parallel(ctx, body)
}
