// File: team/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package team implements fork-join thread teams.
//
// A Team of size N runs a parallel body on N members at once and blocks the
// caller until every member has returned. Inside the body a member may enter
// a single construct: exactly one member, whichever claims the construct's
// gate first, runs the block while the others skip it and carry on without
// waiting.
//
// Each Single call is its own construct. A member's k-th call competes only
// with the other members' k-th calls, so successive constructs elect their
// winners independently, and a new region always starts with fresh gates.
//
// Members either run on fresh goroutines forked per region or, with
// Config.Pooled, on persistent workers that keep member i on the same OS
// thread across regions. Either way members can be pinned to CPUs.
package team
