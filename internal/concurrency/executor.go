// File: internal/concurrency/executor.go
// Package concurrency implements a fixed-size pool of persistent, optionally pinned workers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Executor keeps one long-lived goroutine per worker, each locked to its own OS
// thread. Every worker owns a FIFO mailbox, so a caller can address work to a
// specific worker and get the same thread back on every dispatch.

package concurrency

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
	"github.com/momentics/hioload-omp/affinity"
	"github.com/momentics/hioload-omp/api"
)

// TaskFunc is a unit of work. It receives the index of the worker running it.
type TaskFunc func(workerID int)

// Config holds executor parameters fixed at construction.
type Config struct {
	NumWorkers int          // Number of persistent workers, must be positive
	Pin        bool         // Bind each worker thread to one CPU
	CPUs       []int        // CPUs to cycle through when pinning; empty means the allowed set
	Strict     bool         // Treat a pin failure as a construction failure
	Logger     *slog.Logger // Defaults to slog.Default()
}

// Executor manages a fixed pool of worker goroutines.
type Executor struct {
	workers []*worker
	closeCh chan struct{} // signals executor shutdown
	mu      sync.RWMutex  // orders submissions against Close
	closed  bool
	wg      sync.WaitGroup
	log     *slog.Logger
	next    atomic.Uint64 // round-robin cursor for Submit

	// statistics
	totalTasks     atomic.Int64
	completedTasks atomic.Int64
	panics         atomic.Int64
}

// NewExecutor starts cfg.NumWorkers workers and waits until every one of them
// is running on its own thread. With cfg.Strict set, a worker that cannot be
// pinned makes the whole executor fail.
func NewExecutor(cfg Config) (*Executor, error) {
	if cfg.NumWorkers <= 0 {
		return nil, fmt.Errorf("%w: %d workers", api.ErrInvalidArgument, cfg.NumWorkers)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	e := &Executor{
		workers: make([]*worker, cfg.NumWorkers),
		closeCh: make(chan struct{}),
		log:     log,
	}
	var plan []int
	if cfg.Pin {
		plan = affinity.Plan(cfg.NumWorkers, cfg.CPUs)
	}

	ready := make(chan startResult, cfg.NumWorkers)
	for i := range e.workers {
		w := &worker{
			id:       i,
			cpu:      -1,
			executor: e,
			mailbox:  queue.New(),
			wake:     make(chan struct{}, 1),
		}
		if plan != nil {
			w.cpu = plan[i]
		}
		e.workers[i] = w
		e.wg.Add(1)
		go w.run(ready)
	}

	var startErr error
	for range e.workers {
		res := <-ready
		if res.err == nil {
			continue
		}
		if cfg.Strict {
			if startErr == nil {
				startErr = api.NewError(api.ErrCodeResourceExhausted, "worker start failed").
					WithContext("worker", res.id).
					WithContext("cpu", res.cpu).
					Wrap(res.err)
			}
			continue
		}
		log.Warn("worker running unpinned", "worker", res.id, "cpu", res.cpu, "err", res.err)
	}
	if startErr != nil {
		e.Close()
		return nil, startErr
	}
	log.Debug("executor started", "workers", cfg.NumWorkers, "pinned", cfg.Pin)
	return e, nil
}

// SubmitTo enqueues task on the mailbox of worker id.
func (e *Executor) SubmitTo(id int, task TaskFunc) error {
	if id < 0 || id >= len(e.workers) {
		return fmt.Errorf("%w: worker %d of %d", api.ErrInvalidArgument, id, len(e.workers))
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return api.ErrExecutorClosed
	}
	e.totalTasks.Add(1)
	e.workers[id].push(task)
	return nil
}

// Submit enqueues task on the next worker in round-robin order.
func (e *Executor) Submit(task TaskFunc) error {
	id := int(e.next.Add(1)-1) % len(e.workers)
	return e.SubmitTo(id, task)
}

// NumWorkers returns the number of workers.
func (e *Executor) NumWorkers() int {
	return len(e.workers)
}

// Close stops accepting work, lets every worker finish its mailbox and waits
// for all of them to exit. It is safe to call more than once.
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	close(e.closeCh)
	e.mu.Unlock()
	e.wg.Wait()
}

// Stats returns basic executor metrics.
func (e *Executor) Stats() map[string]int64 {
	total := e.totalTasks.Load()
	done := e.completedTasks.Load()
	return map[string]int64{
		"total_tasks":     total,
		"completed_tasks": done,
		"pending_tasks":   total - done,
		"panics":          e.panics.Load(),
		"num_workers":     int64(e.NumWorkers()),
	}
}

type startResult struct {
	id  int
	cpu int
	err error
}

// worker represents a single executor goroutine.
type worker struct {
	id       int
	cpu      int // -1 when unpinned
	executor *Executor

	mu      sync.Mutex
	mailbox *queue.Queue // of TaskFunc, guarded by mu
	wake    chan struct{}
}

func (w *worker) push(task TaskFunc) {
	w.mu.Lock()
	w.mailbox.Add(task)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *worker) pop() (TaskFunc, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.mailbox.Length() == 0 {
		return nil, false
	}
	return w.mailbox.Remove().(TaskFunc), true
}

// run is the main loop for a worker. The OS thread lock is never released:
// when the worker exits its thread exits with it, taking any pin along.
func (w *worker) run(ready chan<- startResult) {
	defer w.executor.wg.Done()
	runtime.LockOSThread()

	res := startResult{id: w.id, cpu: w.cpu}
	if w.cpu >= 0 {
		res.err = affinity.SetAffinity(w.cpu)
	}
	ready <- res

	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.executor.closeCh:
			w.drain()
			return
		}
	}
}

func (w *worker) drain() {
	for {
		task, ok := w.pop()
		if !ok {
			return
		}
		w.safeExecute(task)
	}
}

// safeExecute runs the task and updates statistics, recovering from panics
// to keep the worker alive.
func (w *worker) safeExecute(task TaskFunc) {
	defer func() {
		if r := recover(); r != nil {
			w.executor.panics.Add(1)
			w.executor.log.Error("task panicked", "worker", w.id, "panic", r)
		}
		w.executor.completedTasks.Add(1)
	}()
	task(w.id)
}
