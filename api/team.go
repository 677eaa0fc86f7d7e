// Package api
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread team contracts: fork-join parallel regions and the single construct.

package api

import "context"

// Team runs parallel regions on a fixed-size set of members.
type Team interface {
	// Parallel forks every member into body and blocks until all of them return.
	Parallel(ctx context.Context, body func(ctx context.Context, m Member) error) error

	// Size returns the fixed number of members.
	Size() int

	// Close releases pooled workers. Parallel fails afterwards.
	Close() error
}

// Member is one team member's view of a running region.
type Member interface {
	// ThreadNum returns the member index, 0 <= n < NumThreads().
	ThreadNum() int

	// NumThreads returns the team size.
	NumThreads() int

	// Single runs fn on exactly one member per construct. Members that lose
	// the claim return false immediately without waiting.
	Single(fn func() error) (bool, error)
}
