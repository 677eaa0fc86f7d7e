// File: team/region.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package team

import (
	"sync/atomic"

	"github.com/momentics/hioload-omp/control"
)

// State is the lifecycle of one parallel region.
type State int32

const (
	NotStarted State = iota
	Running
	Joined
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case Joined:
		return "joined"
	default:
		return "unknown"
	}
}

// region is the shared state of one fork-join execution.
type region struct {
	size    int
	state   atomic.Int32
	gates   gateSet
	metrics *control.Metrics
}

func newRegion(size int, metrics *control.Metrics) *region {
	return &region{size: size, metrics: metrics}
}

func (r *region) State() State {
	return State(r.state.Load())
}

// advance moves the region from one state to the next, reporting false when
// the region was not in the expected state.
func (r *region) advance(from, to State) bool {
	return r.state.CompareAndSwap(int32(from), int32(to))
}

// Member is one member's handle on a running region. It must only be used
// by the goroutine the region handed it to.
type Member struct {
	id     int
	region *region
	seq    int // next construct this member will enter
}

// ThreadNum returns the member index, 0 <= n < NumThreads().
func (m *Member) ThreadNum() int { return m.id }

// NumThreads returns the team size.
func (m *Member) NumThreads() int { return m.region.size }

// Single enters the member's next single construct. The member that claims
// the construct runs fn and returns true with fn's error; every other member
// returns false, nil at once. A nil fn only elects.
func (m *Member) Single(fn func() error) (bool, error) {
	g := m.region.gates.at(m.seq)
	m.seq++
	if !g.Claim(m.id) {
		m.region.metrics.SingleSkipped()
		return false, nil
	}
	m.region.metrics.SingleClaimed()
	if fn == nil {
		return true, nil
	}
	return true, fn()
}
