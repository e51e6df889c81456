package task

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	// taskQueue provides read access to the tasks to be processed
	taskQueue TaskQueueReader

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is passed to every task and canceled by Stop
	ctx context.Context

	// cancel is the function to call to cancel the context
	cancel context.CancelFunc

	startOnce sync.Once

	// logger for structured logging
	logger *slog.Logger

	// errorHandler is called when a task execution fails
	// If nil, errors are only logged
	errorHandler func(task Task, err error)
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start
	// If zero or negative, defaults to 1
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{
		WorkerCount: 2,
	}
}

// NewWorkerPool creates a new worker pool with the specified configuration
func NewWorkerPool(taskQueue TaskQueueReader, config WorkerPoolConfig, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "worker_pool")

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler allows setting a custom error handler for task execution failures.
// It must be called before Start.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// Start launches the workers. Calling Start more than once has no effect.
func (p *WorkerPool) Start() {
	p.startOnce.Do(func() {
		p.logger.Info("starting worker pool", "worker_count", p.workerCount)
		for i := 0; i < p.workerCount; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
	})
}

// Wait blocks until every worker has exited, which happens once the queue
// is closed and drained or the pool is stopped.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Stop cancels in-flight tasks and waits for the workers to exit. Tasks
// still buffered in the queue are not run.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
	p.logger.Info("worker pool stopped")
}

// Drain waits up to timeout for the workers to finish the queued tasks,
// then stops the pool. The queue must already be closed. It reports
// whether the queue was fully drained.
func (p *WorkerPool) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("worker pool drained")
		return true
	case <-time.After(timeout):
		p.logger.Warn("worker pool drain timed out, canceling remaining tasks", "timeout", timeout)
		p.Stop()
		<-done
		return false
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()
	tasks := p.taskQueue.GetChannel()

	for {
		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			p.run(id, t)
		}
	}
}

func (p *WorkerPool) run(workerID int, t Task) {
	start := time.Now()
	err := p.execute(t)

	if err == nil {
		p.logger.Debug("task completed",
			"worker_id", workerID,
			"task_id", t.ID(),
			"task_type", t.Type(),
			"duration", time.Since(start))
		return
	}

	p.logger.Error("task failed",
		"worker_id", workerID,
		"task_id", t.ID(),
		"task_type", t.Type(),
		"duration", time.Since(start),
		"error", err)
	if p.errorHandler != nil {
		p.errorHandler(t, err)
	}
}

// execute runs a task, turning a panic into an error so one bad task
// cannot take a worker down.
func (p *WorkerPool) execute(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked",
				"task_id", t.ID(),
				"task_type", t.Type(),
				"panic", r,
				"stack", string(debug.Stack()))
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return t.Execute(p.ctx)
}
