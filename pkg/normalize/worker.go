package normalize

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WorkerPool processes claimable raw records using a pool of goroutines.
// Workers are mutually exclusive per record through the claim lease, so the
// pool is safe to run concurrently with ingestion and with other pools.
type WorkerPool struct {
	pipeline *Pipeline
	cfg      *Config
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(pipeline *Pipeline, cfg *Config, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkerPool{pipeline: pipeline, cfg: cfg, logger: logger}
}

// Run starts the worker pool. It spawns cfg.Concurrency goroutines, each
// polling for claimable records, blocks until the context is cancelled, then
// waits for all workers to finish.
func (wp *WorkerPool) Run(ctx context.Context) {
	if !wp.cfg.Enabled {
		wp.logger.Info("normalization worker pool disabled")
		return
	}

	wp.logger.Info("normalization worker pool starting",
		"concurrency", wp.cfg.Concurrency,
		"pollInterval", wp.cfg.PollInterval.String())

	for i := 0; i < wp.cfg.Concurrency; i++ {
		wp.wg.Add(1)
		go func(workerID int) {
			defer wp.wg.Done()
			wp.workerLoop(ctx, workerID)
		}(i)
	}

	<-ctx.Done()
	wp.logger.Info("normalization worker pool shutting down")
	wp.wg.Wait()
	wp.logger.Info("normalization worker pool stopped")
}

func (wp *WorkerPool) workerLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(wp.cfg.PollInterval)
	defer ticker.Stop()

	wp.logger.Info("normalization worker started", "workerID", workerID)

	for {
		select {
		case <-ctx.Done():
			wp.logger.Info("normalization worker stopped", "workerID", workerID)
			return
		case <-ticker.C:
			n, err := wp.pipeline.ProcessAvailable(ctx)
			if err != nil && ctx.Err() == nil {
				wp.logger.Error("normalization pass failed", "workerID", workerID, "error", err)
			}
			if n > 0 {
				wp.logger.Info("normalization pass complete", "workerID", workerID, "processed", n)
			}
		}
	}
}
