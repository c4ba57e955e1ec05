package concurrency

import (
	"fmt"
	"time"

	"botfarm/internal/core"

	"github.com/alitto/pond"
)

// PoolConfig sizes a worker pool. Zero values fall back to the defaults
// applied in NewWorkerPool.
type PoolConfig struct {
	Name        string
	MaxWorkers  int
	MaxCapacity int
	IdleTimeout time.Duration
	NonBlocking bool // If true, Submit() returns error instead of blocking when full
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = 8
	}
	if c.MaxCapacity <= 0 {
		c.MaxCapacity = 128
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = 60 * time.Second
	}
	return c
}

// WorkerPool wraps alitto/pond with panic recovery and standardized config.
// Detached background work (deferred limiter releases, fire-and-forget
// scans) runs here so failures are logged instead of crashing the caller.
type WorkerPool struct {
	pool   *pond.WorkerPool
	config PoolConfig
	logger core.ILogger
}

func NewWorkerPool(cfg PoolConfig, logger core.ILogger) *WorkerPool {
	cfg = cfg.withDefaults()

	pool := pond.New(
		cfg.MaxWorkers,
		cfg.MaxCapacity,
		pond.MinWorkers(1),
		pond.IdleTimeout(cfg.IdleTimeout),
		pond.Strategy(pond.Balanced()),
		pond.PanicHandler(func(p interface{}) {
			logger.Error("Worker pool panic recovered", "pool", cfg.Name, "panic", p)
		}),
	)

	return &WorkerPool{
		pool:   pool,
		config: cfg,
		logger: logger.WithField("component", "worker_pool").WithField("pool", cfg.Name),
	}
}

// Submit hands a task to the pool. With NonBlocking set it fails fast
// when the queue is full instead of waiting for a slot.
func (wp *WorkerPool) Submit(task func()) error {
	if wp.config.NonBlocking {
		if !wp.pool.TrySubmit(task) {
			return fmt.Errorf("worker pool '%s' is full (capacity: %d)", wp.config.Name, wp.config.MaxCapacity)
		}
		return nil
	}

	wp.pool.Submit(task)
	return nil
}

// SubmitAfter schedules a task to run after the given delay. The waiting
// itself happens on a pool worker; the caller never blocks.
func (wp *WorkerPool) SubmitAfter(delay time.Duration, task func()) error {
	return wp.Submit(func() {
		time.Sleep(delay)
		task()
	})
}

// Stop drains queued tasks and waits for in-flight ones to finish.
func (wp *WorkerPool) Stop() {
	wp.pool.StopAndWait()
}

// Stats snapshots pool counters for logging.
func (wp *WorkerPool) Stats() map[string]interface{} {
	return map[string]interface{}{
		"running_workers": wp.pool.RunningWorkers(),
		"idle_workers":    wp.pool.IdleWorkers(),
		"submitted_tasks": wp.pool.SubmittedTasks(),
		"waiting_tasks":   wp.pool.WaitingTasks(),
		"failed_tasks":    wp.pool.FailedTasks(),
	}
}
