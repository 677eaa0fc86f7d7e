//go:build linux

// File: team/team_linux_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package team

import (
	"context"
	"testing"

	"github.com/momentics/hioload-omp/affinity"
	"github.com/momentics/hioload-omp/api"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestPooled_MemberKeepsItsThreadAcrossRegions(t *testing.T) {
	tm := newTeam(t, &Config{Size: 4, Pooled: true})

	collect := func() []int {
		tids := make([]int, tm.Size())
		require.NoError(t, tm.Parallel(context.Background(), func(ctx context.Context, m api.Member) error {
			tids[m.ThreadNum()] = unix.Gettid()
			return nil
		}))
		return tids
	}
	first := collect()
	for i := 0; i < 5; i++ {
		require.Equal(t, first, collect())
	}
}

func TestPinnedMembersRunOnTheirCPU(t *testing.T) {
	allowed, err := affinity.Allowed()
	require.NoError(t, err)
	cpu := allowed[len(allowed)-1]

	for _, pooled := range []bool{false, true} {
		tm := newTeam(t, &Config{Size: 3, Pooled: pooled, Pin: true, CPUs: []int{cpu}, StrictAffinity: true})
		masks := make([]unix.CPUSet, tm.Size())
		require.NoError(t, tm.Parallel(context.Background(), func(ctx context.Context, m api.Member) error {
			return unix.SchedGetaffinity(0, &masks[m.ThreadNum()])
		}))
		for i := range masks {
			require.Equal(t, 1, masks[i].Count(), "member %d", i)
			require.True(t, masks[i].IsSet(cpu), "member %d", i)
		}
	}
}

func TestStrictAffinityRejectsUnknownCPU(t *testing.T) {
	_, err := New(&Config{Size: 2, Pin: true, CPUs: []int{1000}, StrictAffinity: true})
	require.Error(t, err)
	require.Equal(t, api.ErrCodeResourceExhausted, api.CodeOf(err))

	_, err = New(&Config{Size: 2, Pooled: true, Pin: true, CPUs: []int{1000}, StrictAffinity: true})
	require.Error(t, err)
	require.Equal(t, api.ErrCodeResourceExhausted, api.CodeOf(err))
}
