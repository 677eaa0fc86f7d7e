// File: cmd/single/announce.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/momentics/hioload-omp/api"
	"github.com/momentics/hioload-omp/team"
)

// announce returns a body that enters constructs successive single
// constructs; the winner of construct k writes one line naming itself.
func announce(constructs int, out io.Writer) team.Body {
	return func(ctx context.Context, m api.Member) error {
		for k := 1; k <= constructs; k++ {
			_, err := m.Single(func() error {
				_, err := fmt.Fprintf(out, "single %d from thread id is %d %d\n", k, m.ThreadNum(), m.NumThreads())
				return err
			})
			if err != nil {
				return fmt.Errorf("single %d: %w", k, err)
			}
		}
		return nil
	}
}

// lockedWriter serializes writes from the winners of different constructs,
// keeping each line whole.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
