// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files (affinity_linux.go, affinity_windows.go, etc.) guarded by build tags.

package affinity

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrNotSupported is returned on platforms without thread affinity control.
var ErrNotSupported = errors.New("affinity: not supported on this platform")

// SetAffinity pins the calling OS thread to a given logical CPU.
// The caller must hold runtime.LockOSThread, otherwise the goroutine may
// migrate away from the pinned thread.
func SetAffinity(cpuID int) error {
	if cpuID < 0 {
		return fmt.Errorf("affinity: invalid cpu %d", cpuID)
	}
	return setAffinityPlatform(cpuID)
}

// Allowed returns the logical CPUs the process may run on, in ascending order.
func Allowed() ([]int, error) {
	return allowedPlatform()
}

// Plan assigns one CPU to each of n workers, cycling through cpus.
// An empty cpus list resolves to Allowed(), and then to every logical CPU.
func Plan(n int, cpus []int) []int {
	if len(cpus) == 0 {
		var err error
		if cpus, err = Allowed(); err != nil || len(cpus) == 0 {
			cpus = make([]int, runtime.NumCPU())
			for i := range cpus {
				cpus[i] = i
			}
		}
	}
	out := make([]int, n)
	for i := range out {
		out[i] = cpus[i%len(cpus)]
	}
	return out
}
