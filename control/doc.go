// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for hioload-omp.
//
// Provides:
//   - Config with defaults, YAML loading and validation
//   - Prometheus collectors for regions and single constructs
//   - Debug probes dumped through slog
package control
