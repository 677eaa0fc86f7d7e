// File: team/team_bench_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package team

import (
	"context"
	"fmt"
	"testing"

	"github.com/momentics/hioload-omp/api"
)

func BenchmarkParallelSingle(b *testing.B) {
	body := func(ctx context.Context, m api.Member) error {
		_, err := m.Single(nil)
		return err
	}
	for _, pooled := range []bool{false, true} {
		for _, n := range []int{1, 10, 64} {
			b.Run(fmt.Sprintf("pooled=%v/n=%d", pooled, n), func(b *testing.B) {
				tm, err := New(&Config{Size: n, Pooled: pooled})
				if err != nil {
					b.Fatal(err)
				}
				defer tm.Close()
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if err := tm.Parallel(context.Background(), body); err != nil {
						b.Fatal(err)
					}
				}
			})
		}
	}
}

func BenchmarkGateClaim(b *testing.B) {
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			g := NewGate()
			g.Claim(0)
			g.Claim(1)
		}
	})
}
