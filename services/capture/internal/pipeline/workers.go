package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"jobsnap/services/capture/internal/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type captureTask struct {
	captureID string
	tabID     string
}

type runnerStats struct {
	succeeded int32
	failed    int32
}

// Runner executes captures in the background so the caller can go away
// right after submitting. Outcomes are only reported through the Notifier.
type Runner struct {
	pipeline *Pipeline
	logger   *zap.Logger
	workers  int

	mu     sync.RWMutex
	tasks  chan captureTask
	closed bool
	wg     sync.WaitGroup
	stats  runnerStats
}

func NewRunner(pipeline *Pipeline, workers, queueSize int, logger *zap.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{
		pipeline: pipeline,
		logger:   logger,
		workers:  workers,
		tasks:    make(chan captureTask, queueSize),
	}
}

// Start launches the workers. Runs are detached from ctx.
func (r *Runner) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			for task := range r.tasks {
				res := r.pipeline.capture(ctx, task.captureID, task.tabID)
				if res.Success() {
					atomic.AddInt32(&r.stats.succeeded, 1)
				} else {
					atomic.AddInt32(&r.stats.failed, 1)
				}
			}
		}()
	}
}

// Submit queues a capture of tabID and returns its ID immediately.
func (r *Runner) Submit(tabID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return "", errors.Unavailable("capture runner is shut down", nil)
	}

	task := captureTask{captureID: uuid.NewString(), tabID: tabID}
	select {
	case r.tasks <- task:
		return task.captureID, nil
	default:
		return "", errors.Unavailable("too many captures in progress, try again shortly", nil)
	}
}

// Stop refuses new work and waits for queued captures to finish or for ctx
// to expire.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.tasks)
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("capture runner stopped",
			zap.Int32("succeeded", atomic.LoadInt32(&r.stats.succeeded)),
			zap.Int32("failed", atomic.LoadInt32(&r.stats.failed)))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
