package search

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"

	"github.com/stephrichter/tesserae-v5/core"
	"github.com/stephrichter/tesserae-v5/matcher"
	"github.com/stephrichter/tesserae-v5/storage"
)

const defaultQueueCapacity = 1024

// request is one queued search. A request with stop set tells the
// worker that receives it to exit.
type request struct {
	resultsID string
	algorithm string
	params    core.SearchParams
	stop      bool
}

// Pool runs search jobs on a fixed set of workers fed by a bounded FIFO.
// Every worker holds its own storage session for its whole lifetime.
type Pool struct {
	connector storage.Connector
	registry  *matcher.Registry
	workers   int
	capacity  int
	logger    *slog.Logger
	monitor   JobMonitor

	queue   chan request
	pending atomic.Int64
	done    chan struct{}

	mu     sync.RWMutex
	closed bool

	ants     *ants.Pool
	wg       sync.WaitGroup
	started  int
	shutdown sync.Once
}

// PoolOption configures a Pool.
type PoolOption func(*Pool) error

// WithWorkers sets the number of workers.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(n int) PoolOption {
	return func(p *Pool) error {
		if n < 1 {
			return fmt.Errorf("worker count must be positive, got %d", n)
		}
		p.workers = n
		return nil
	}
}

// WithQueueCapacity sets how many requests may wait for a worker before
// Enqueue blocks. Default is 1024.
func WithQueueCapacity(n int) PoolOption {
	return func(p *Pool) error {
		if n < 1 {
			return fmt.Errorf("queue capacity must be positive, got %d", n)
		}
		p.capacity = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMonitor sets the monitor notified of job lifecycle events.
func WithMonitor(monitor JobMonitor) PoolOption {
	return func(p *Pool) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		p.monitor = monitor
		return nil
	}
}

// NewPool connects one session per worker and starts the workers.
// If any session cannot be opened, the sessions opened so far are closed
// and an error wrapping ErrWorkerBootstrap is returned.
func NewPool(connector storage.Connector, registry *matcher.Registry, opts ...PoolOption) (*Pool, error) {
	if connector == nil {
		return nil, ErrConnectorRequired
	}
	if registry == nil {
		return nil, ErrRegistryRequired
	}

	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}

	p := &Pool{
		connector: connector,
		registry:  registry,
		workers:   workers,
		capacity:  defaultQueueCapacity,
		logger:    slog.Default(),
		monitor:   &noopMonitor{},
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.queue = make(chan request, p.capacity)

	sessions := make([]storage.Session, 0, p.workers)
	closeSessions := func(sessions []storage.Session) {
		for _, sess := range sessions {
			if err := sess.Close(); err != nil {
				p.logger.Warn("error closing worker session", "err", err)
			}
		}
	}
	for i := range p.workers {
		sess, err := connector.Connect(context.Background())
		if err != nil {
			closeSessions(sessions)
			return nil, fmt.Errorf("%w: worker %d: %w", ErrWorkerBootstrap, i, err)
		}
		sessions = append(sessions, sess)
	}

	antsPool, err := ants.NewPool(p.workers,
		ants.WithLogger(&antsLogger{logger: p.logger}),
		ants.WithPanicHandler(func(v any) {
			p.logger.Error("worker loop panicked", "panic", v)
		}),
	)
	if err != nil {
		closeSessions(sessions)
		return nil, fmt.Errorf("%w: %w", ErrWorkerBootstrap, err)
	}
	p.ants = antsPool

	for i, sess := range sessions {
		p.wg.Add(1)
		err := p.ants.Submit(func() {
			defer p.wg.Done()
			p.work(i, sess)
		})
		if err != nil {
			p.wg.Done()
			closeSessions(sessions[i:])
			p.Shutdown()
			return nil, fmt.Errorf("%w: worker %d: %w", ErrWorkerBootstrap, i, err)
		}
		p.started++
	}

	p.logger.Debug("search pool started", "workers", p.workers, "capacity", p.capacity)
	return p, nil
}

// Enqueue appends a request to the queue. Parameters are not validated here;
// the worker that claims the request does so.
//
// Enqueue returns immediately while the queue has room. When it is full,
// Enqueue blocks until a worker frees a slot, ctx is done, or Shutdown begins.
func (p *Pool) Enqueue(ctx context.Context, resultsID, algorithm string, params core.SearchParams) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	req := request{resultsID: resultsID, algorithm: algorithm, params: params}
	p.pending.Add(1)
	select {
	case p.queue <- req:
		p.monitor.Enqueued(algorithm)
		return nil
	case <-p.done:
		p.pending.Add(-1)
		return ErrPoolClosed
	case <-ctx.Done():
		p.pending.Add(-1)
		return ctx.Err()
	}
}

// Pending returns the number of requests not yet claimed by a worker,
// including callers blocked in Enqueue.
func (p *Pool) Pending() int {
	return int(p.pending.Load())
}

// Workers returns the number of workers.
func (p *Pool) Workers() int {
	return p.workers
}

// Shutdown stops the pool. Further enqueues are rejected, every request
// still queued is discarded without running, and Shutdown returns once each
// worker has finished its current job and exited. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.shutdown.Do(func() {
		close(p.done)
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()

		dropped := p.drain()

		exited := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(exited)
		}()
	stopping:
		for range p.started {
			select {
			case p.queue <- request{stop: true}:
			case <-exited:
				break stopping
			}
		}
		<-exited

		p.ants.Release()
		p.logger.Debug("search pool stopped", "dropped", dropped)
	})
}

// drain discards every queued request.
func (p *Pool) drain() int {
	dropped := 0
	for {
		select {
		case req := <-p.queue:
			p.pending.Add(-1)
			p.monitor.Dropped(req.algorithm)
			p.logger.Debug("dropped unclaimed request", "results_id", req.resultsID, "algorithm", req.algorithm)
			dropped++
		default:
			return dropped
		}
	}
}

func (p *Pool) work(id int, sess storage.Session) {
	logger := p.logger.With("worker", id)
	defer func() {
		if err := sess.Close(); err != nil {
			logger.Warn("error closing worker session", "err", err)
		}
	}()

	for {
		req := <-p.queue
		if req.stop {
			logger.Debug("worker exiting")
			return
		}
		p.pending.Add(-1)
		p.run(context.Background(), sess, logger, req)
	}
}

// antsLogger routes ants pool messages to slog.
type antsLogger struct {
	logger *slog.Logger
}

func (l *antsLogger) Printf(format string, args ...any) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}
