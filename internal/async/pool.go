package async

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dococr/dococr/constants"
	"github.com/dococr/dococr/internal/logger"
)

// ProcessFunc executes one claimed job to its terminal state.
type ProcessFunc func(ctx context.Context, t Ticket) error

// Pool runs claimed tickets on a fixed set of workers. Each execution gets
// its own timeout; there is no retry on failure.
type Pool struct {
	proc    ProcessFunc
	log     zerolog.Logger
	workers int
	timeout time.Duration

	ch   chan Ticket
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type PoolOption func(*Pool)

// WithWorkers sets the number of concurrent workers.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithQueueSize sets the in-memory buffer between claim and execution.
func WithQueueSize(n int) PoolOption {
	return func(p *Pool) {
		if n > 0 {
			p.ch = make(chan Ticket, n)
		}
	}
}

// WithJobTimeout caps how long a single job may run.
func WithJobTimeout(d time.Duration) PoolOption {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPool(proc ProcessFunc, opts ...PoolOption) *Pool {
	p := &Pool{
		proc:    proc,
		log:     logger.WithComponent("async.pool"),
		workers: 1,
		timeout: 8 * time.Hour,
		ch:      make(chan Ticket, 64),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.log.Info().Int("worker_id", workerID).Msg("worker started")

				for t := range p.ch {
					ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
					p.log.Info().Int("worker_id", workerID).
						Str("job_id", t.Job.ID.String()).Str("path", t.Job.Path).
						Str("status", string(constants.JobStatusRunning)).Msg("job started")

					err := p.proc(ctx, t)
					cancel()

					if err != nil {
						p.log.Error().Err(err).Int("worker_id", workerID).
							Str("job_id", t.Job.ID.String()).
							Str("status", string(constants.JobStatusFailed)).Msg("job failed")
					} else {
						p.log.Info().Int("worker_id", workerID).
							Str("job_id", t.Job.ID.String()).
							Str("status", string(constants.JobStatusDone)).Msg("job done")
					}
				}

				p.log.Info().Int("worker_id", workerID).Msg("worker stopped")
			}(i + 1)
		}
	})
}

// Submit hands a claimed ticket to the workers, blocking when the buffer is
// full. Tickets submitted after Shutdown are dropped with a warning.
func (p *Pool) Submit(_ context.Context, t Ticket) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.log.Warn().Str("job_id", t.Job.ID.String()).Msg("cannot submit: pool is shutting down")
		return
	}
	select {
	case p.ch <- t:
	default:
		p.log.Warn().Str("job_id", t.Job.ID.String()).Msg("pool full, applying backpressure")
		p.ch <- t
	}
}

// Shutdown stops intake and waits for in-flight jobs until ctx expires.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		p.wg.Wait()
	}()

	select {
	case <-ctx.Done():
		p.log.Warn().Msg("shutdown interrupted by context")
	case <-done:
		p.log.Info().Msg("pool drained, shutdown complete")
	}
}
