// File: team/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package team

import (
	"fmt"

	"github.com/momentics/hioload-omp/api"
)

// Config holds parameters fixed for the lifetime of a Team.
type Config struct {
	Size           int   // Number of members N, at least 1
	Pooled         bool  // Reuse N persistent workers instead of forking goroutines per region
	Pin            bool  // Lock members to OS threads and bind each to a CPU
	CPUs           []int // CPUs to cycle through when pinning; empty means the allowed set
	StrictAffinity bool  // A pin failure is an error rather than a warning
}

// DefaultConfig returns a team of ten unpinned, forked members.
func DefaultConfig() *Config {
	return &Config{
		Size: 10,
	}
}

func (c *Config) validate() error {
	if c.Size < 1 {
		return fmt.Errorf("%w: %d", api.ErrInvalidTeamSize, c.Size)
	}
	for _, cpu := range c.CPUs {
		if cpu < 0 {
			return fmt.Errorf("%w: cpu %d", api.ErrInvalidArgument, cpu)
		}
	}
	return nil
}
