package services

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/demandcast/demandcast/internal/forecast"
	"github.com/demandcast/demandcast/internal/logging"
)

const defaultFitQueueDepth = 64

var errPoolStopped = errors.New("fit pool stopped")

// PoolSaturatedError indicates the fit queue was full and the request was
// shed instead of queued.
type PoolSaturatedError struct {
	Depth int
}

func (e *PoolSaturatedError) Error() string {
	return fmt.Sprintf("fit pool saturated: %d fits already queued", e.Depth)
}

// fitTask is one model fit waiting for a pool worker.
type fitTask struct {
	key    string
	ctx    context.Context
	run    func(context.Context) (*forecast.Result, error)
	done   chan struct{}
	result *forecast.Result
	err    error
}

// FitPool bounds concurrent model fits. Fitting is CPU-heavy, so a fixed
// number of workers drain a bounded queue and requests are shed with
// PoolSaturatedError once the queue fills. Requests for the same key
// coalesce: while a fit for a product is running, later requests wait for
// it and then run their own pass, which lands on the freshly warmed cache
// instead of fitting again.
type FitPool struct {
	logger *logging.Logger

	tasks   chan *fitTask
	workers int

	mu       sync.Mutex
	inflight map[string]*fitTask

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewFitPool creates a fit pool. workers defaults to GOMAXPROCS and
// queueDepth to 64 when non-positive.
func NewFitPool(workers, queueDepth int, logger *logging.Logger) *FitPool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if queueDepth <= 0 {
		queueDepth = defaultFitQueueDepth
	}

	return &FitPool{
		logger:   logger.With(logging.String("component", "fitpool")),
		tasks:    make(chan *fitTask, queueDepth),
		workers:  workers,
		inflight: make(map[string]*fitTask),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the pool workers.
func (p *FitPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.runWorker()
	}

	p.logger.Info("fit pool started",
		"workers", p.workers,
		"queue_depth", cap(p.tasks))
}

// Stop shuts the pool down. Queued fits that have not started are
// abandoned; their callers unblock with an error.
func (p *FitPool) Stop() {
	close(p.stopCh)
	p.wg.Wait()

	p.logger.Info("fit pool stopped")
}

// Do runs fn on a pool worker and returns its result. Concurrent calls
// with the same key do not fit twice: the first becomes the leader and the
// rest wait for it before taking their own turn.
func (p *FitPool) Do(ctx context.Context, key string, fn func(context.Context) (*forecast.Result, error)) (*forecast.Result, error) {
	for {
		p.mu.Lock()
		leader, running := p.inflight[key]
		if !running {
			task := &fitTask{key: key, ctx: ctx, run: fn, done: make(chan struct{})}
			p.inflight[key] = task
			p.mu.Unlock()

			select {
			case p.tasks <- task:
			default:
				p.mu.Lock()
				delete(p.inflight, key)
				p.mu.Unlock()

				p.logger.Warn("fit pool saturated, shedding request",
					"key", key,
					"queue_depth", cap(p.tasks))
				return nil, &PoolSaturatedError{Depth: cap(p.tasks)}
			}

			select {
			case <-task.done:
				return task.result, task.err
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-p.stopCh:
				return nil, errPoolStopped
			}
		}
		p.mu.Unlock()

		// Another request is already fitting this key. Wait for it, then
		// loop: the next pass either finds the slot free or a new leader.
		select {
		case <-leader.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.stopCh:
			return nil, errPoolStopped
		}
	}
}

// Stats returns pool statistics for monitoring.
func (p *FitPool) Stats() map[string]interface{} {
	p.mu.Lock()
	inflight := len(p.inflight)
	p.mu.Unlock()

	return map[string]interface{}{
		"workers":     p.workers,
		"queue_depth": cap(p.tasks),
		"queued":      len(p.tasks),
		"inflight":    inflight,
	}
}

func (p *FitPool) runWorker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case task := <-p.tasks:
			p.runTask(task)
		}
	}
}

func (p *FitPool) runTask(task *fitTask) {
	defer func() {
		// Drop the inflight entry before signaling completion so waiters
		// that loop back find the slot free.
		p.mu.Lock()
		delete(p.inflight, task.key)
		p.mu.Unlock()
		close(task.done)
	}()

	// The caller may have given up while the task sat in the queue.
	if err := task.ctx.Err(); err != nil {
		task.err = err
		return
	}

	task.result, task.err = task.run(task.ctx)
}
