// Package scheduler implements the two independent FIFO admission queues
// from spec §4.1: explorer-API traffic and node-RPC traffic, each with its
// own concurrency cap and jittered inter-dispatch delay. Design Notes row
// 3: "two worker pools (or two goroutines reading from two channels), each
// gated by a semaphore sized to maxConcurrent."
package scheduler

import (
	"context"
	"math/rand"
	"time"

	"github.com/kismp123/bugchainindexer-go/internal/metrics"
)

type job struct {
	run  func(ctx context.Context) (any, error)
	resC chan result
	ctx  context.Context
}

type result struct {
	val any
	err error
}

// Queue is a single FIFO admission-controlled queue.
type Queue struct {
	name       string
	maxInFlight int
	minDelay   time.Duration
	maxDelay   time.Duration

	jobs chan job
	sem  chan struct{}
}

// NewQueue starts a queue with the given concurrency cap and per-dispatch
// delay range, and launches its background dispatcher goroutine. Callers
// must limit their own producers — the queue applies no backpressure on
// Enqueue itself (spec §4.1: "no backpressure on enqueue").
func NewQueue(name string, maxInFlight int, minDelay, maxDelay time.Duration) *Queue {
	q := &Queue{
		name:        name,
		maxInFlight: maxInFlight,
		minDelay:    minDelay,
		maxDelay:    maxDelay,
		jobs:        make(chan job, 4096),
		sem:         make(chan struct{}, maxInFlight),
	}
	go q.dispatch()
	return q
}

func (q *Queue) dispatch() {
	for j := range q.jobs {
		q.sem <- struct{}{}
		go func(j job) {
			defer func() {
				<-q.sem
				metrics.SchedulerQueueDepth.WithLabelValues(q.name).Dec()
			}()
			val, err := j.run(j.ctx)
			j.resC <- result{val: val, err: err}
			close(j.resC)
		}(j)
		sleepJitter(q.minDelay, q.maxDelay)
	}
}

func sleepJitter(min, max time.Duration) {
	if max <= min {
		time.Sleep(min)
		return
	}
	time.Sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}

// Future resolves to the enqueued job's result.
type Future struct {
	resC chan result
}

// Wait blocks until the job completes or ctx is cancelled. Cancellation is
// best-effort: the underlying call may still run to completion, but the
// caller's wait returns immediately (spec §5: "the scheduler drops the
// promise of a cancelled caller").
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case r := <-f.resC:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Enqueue submits fn for execution on this queue and returns a Future.
func (q *Queue) Enqueue(ctx context.Context, fn func(ctx context.Context) (any, error)) *Future {
	resC := make(chan result, 1)
	metrics.SchedulerQueueDepth.WithLabelValues(q.name).Inc()
	q.jobs <- job{run: fn, resC: resC, ctx: ctx}
	return &Future{resC: resC}
}

// Scheduler bundles the explorer and rpc queues (spec §4.1 defaults:
// explorer maxConcurrent=3, rpc maxConcurrent=8).
type Scheduler struct {
	Explorer *Queue
	RPC      *Queue
}

// New constructs a Scheduler with spec-default concurrency caps and a
// conservative jitter window; callers needing different caps should use
// NewQueue directly.
func New() *Scheduler {
	return &Scheduler{
		Explorer: NewQueue("explorer", 3, 150*time.Millisecond, 400*time.Millisecond),
		RPC:      NewQueue("rpc", 8, 50*time.Millisecond, 200*time.Millisecond),
	}
}
