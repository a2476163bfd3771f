// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package job

import (
	"context"
	"errors"
	"sync"

	"github.com/ManuGH/vidmark/internal/log"
	"github.com/ManuGH/vidmark/internal/metrics"
)

var (
	// ErrBusy is returned by Submit when the queue is full.
	ErrBusy = errors.New("job queue full")
	// ErrClosed is returned by Submit after Shutdown.
	ErrClosed = errors.New("job pool closed")
)

// Runner executes one job.
type Runner interface {
	Run(ctx context.Context, spec Spec) Result
}

// Admission describes an accepted submission. Position counts the jobs
// ahead of this one; it is 0 when a worker picks it up immediately.
type Admission struct {
	Queued   bool
	Position int
}

// Pool runs jobs on a fixed set of workers fed by a bounded queue.
type Pool struct {
	runner    Runner
	workers   int
	queueSize int

	queue chan Spec
	ctx   context.Context // parent of every job context
	stop  context.CancelFunc
	wg    sync.WaitGroup

	mu      sync.Mutex
	closed  bool
	waiting int // submitted, not yet picked up
	idle    int
}

// NewPool starts workers goroutines. Jobs run under a context owned by the
// pool so they outlive the request that submitted them.
func NewPool(runner Runner, workers, queueSize int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		runner:    runner,
		workers:   workers,
		queueSize: queueSize,
		// room for every idle worker plus the queue keeps Submit non-blocking
		queue: make(chan Spec, workers+queueSize),
		ctx:   ctx,
		stop:  cancel,
		idle:  workers,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Submit enqueues spec without blocking.
func (p *Pool) Submit(spec Spec) (Admission, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		metrics.RecordAdmission("closed")
		return Admission{}, ErrClosed
	}
	ahead := p.waiting - p.idle // jobs that will not find a free worker
	if ahead < 0 {
		ahead = 0
	}
	free := p.idle - p.waiting
	if free <= 0 && ahead >= p.queueSize {
		metrics.RecordAdmission("busy")
		return Admission{}, ErrBusy
	}

	p.waiting++
	p.queue <- spec
	metrics.QueueDepth.Set(float64(p.waiting))

	if free > 0 {
		metrics.RecordAdmission("started")
		return Admission{}, nil
	}
	metrics.RecordAdmission("queued")
	return Admission{Queued: true, Position: ahead + 1}, nil
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for spec := range p.queue {
		p.mu.Lock()
		p.waiting--
		p.idle--
		metrics.QueueDepth.Set(float64(p.waiting))
		p.mu.Unlock()

		p.run(spec)

		p.mu.Lock()
		p.idle++
		p.mu.Unlock()
	}
}

func (p *Pool) run(spec Spec) {
	defer func() {
		// Runner implementations recover their own panics; this keeps the
		// worker alive if one does not.
		if r := recover(); r != nil {
			metrics.RecordPanic("pool")
			logger := log.WithComponent("job")
			logger.Error().Str(log.FieldJobID, spec.ID).Interface("panic", r).Msg("worker recovered from panic")
		}
	}()
	p.runner.Run(p.ctx, spec)
}

// Load reports the number of running and waiting jobs.
func (p *Pool) Load() (running, waiting int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.workers - p.idle, p.waiting
}

// Shutdown stops accepting jobs and waits for queued and running jobs to
// finish. When ctx expires first, running jobs are canceled (which kills
// their transcoder) and Shutdown still waits for their cleanup.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.stop()
		return nil
	case <-ctx.Done():
		p.stop()
		<-done
		return ctx.Err()
	}
}
