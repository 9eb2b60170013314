// SPDX-License-Identifier: MIT
// Package task runs background work for the tile engine.
package task

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"spectro/internal/log"
)

// Scheduler runs functions in the background. Schedule must not block and
// every scheduled function must eventually run.
type Scheduler interface {
	Schedule(fn func())
}

// Pool is a Scheduler that runs at most a fixed number of jobs at once.
// Jobs beyond the limit wait for a free slot; Schedule itself returns
// immediately. A job that panics is logged and does not affect others.
type Pool struct {
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
	pending atomic.Int64
	panics  atomic.Int64
}

var _ Scheduler = (*Pool)(nil)

// NewPool returns a pool running up to workers jobs concurrently. A
// non-positive count selects runtime.NumCPU().
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

func (p *Pool) Schedule(fn func()) {
	p.wg.Add(1)
	p.pending.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.pending.Add(-1)

		// Acquire only fails on context cancellation.
		_ = p.sem.Acquire(context.Background(), 1)
		defer p.sem.Release(1)

		defer func() {
			if r := recover(); r != nil {
				p.panics.Add(1)
				log.Errorf("Task panicked: %v\n%s", r, debug.Stack())
			}
		}()
		fn()
	}()
}

// Pending returns the number of scheduled jobs that have not finished.
func (p *Pool) Pending() int { return int(p.pending.Load()) }

// Panics returns how many jobs have panicked since the pool was created.
func (p *Pool) Panics() int { return int(p.panics.Load()) }

// Wait blocks until every job scheduled so far has finished.
func (p *Pool) Wait() { p.wg.Wait() }

// Inline runs each job on the caller's goroutine. It is meant for tests and
// tools that want deterministic completion.
type Inline struct{}

func (Inline) Schedule(fn func()) { fn() }
