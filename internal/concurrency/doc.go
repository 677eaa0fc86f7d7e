// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Persistent worker pool backing pooled thread teams. Each worker is a
// goroutine locked to its own OS thread, optionally pinned to a CPU, and fed
// through a per-worker mailbox so a team member lands on the same thread in
// every parallel region.
package concurrency
