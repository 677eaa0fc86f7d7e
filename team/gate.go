// File: team/gate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package team

import (
	"sync"
	"sync/atomic"
)

// Gate is a one-time claim token. The first Claim wins; every later Claim
// fails without blocking. A Gate is never reset.
type Gate struct {
	claimed atomic.Bool
	winner  atomic.Int32
}

// NewGate returns an unclaimed gate.
func NewGate() *Gate {
	g := &Gate{}
	g.winner.Store(-1)
	return g
}

// Claim tries to take the gate on behalf of member id.
func (g *Gate) Claim(id int) bool {
	if !g.claimed.CompareAndSwap(false, true) {
		return false
	}
	g.winner.Store(int32(id))
	return true
}

// Claimed reports whether some member has taken the gate.
func (g *Gate) Claimed() bool {
	return g.claimed.Load()
}

// Winner returns the id of the member that claimed the gate, or -1.
// It is only stable once the claiming member's Claim has returned.
func (g *Gate) Winner() int {
	return int(g.winner.Load())
}

// gateSet hands out the gate for each construct of one region, created on
// first arrival.
type gateSet struct {
	mu    sync.Mutex
	gates []*Gate
}

func (s *gateSet) at(seq int) *Gate {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.gates) <= seq {
		s.gates = append(s.gates, NewGate())
	}
	return s.gates[seq]
}

// winners lists the winner of every construct entered so far.
func (s *gateSet) winners() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int, len(s.gates))
	for i, g := range s.gates {
		out[i] = g.Winner()
	}
	return out
}
