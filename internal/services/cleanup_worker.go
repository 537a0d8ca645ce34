package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"buggydispatch/internal/config"
	"buggydispatch/pkg/logger"
)

// CleanupWorker runs logout state cleanup off the request path. It is a
// bounded pool: a fixed number of workers drain a fixed-size queue, each job
// gets its own timeout, and a full queue drops the job with a warning rather
// than growing a backlog. Jobs have no caller to report to, so every failure
// mode ends in a log line and nothing else.
type CleanupWorker struct {
	jobs       chan cleanupJob
	workers    int
	jobTimeout time.Duration
	shutdown   time.Duration
	logger     *logger.Logger

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

type cleanupJob struct {
	name string
	run  func(ctx context.Context) error
}

func NewCleanupWorker(cfg *config.WorkerConfig, logger *logger.Logger) *CleanupWorker {
	return &CleanupWorker{
		jobs:       make(chan cleanupJob, cfg.QueueSize),
		workers:    cfg.Workers,
		jobTimeout: cfg.JobTimeout,
		shutdown:   cfg.ShutdownTimeout,
		logger:     logger,
	}
}

func (w *CleanupWorker) Start() {
	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.worker()
	}
}

// Enqueue schedules a job at most once. It reports false when the job was
// dropped because the queue is full or the worker is stopping; the caller
// decides whether that is worth logging beyond the warning emitted here.
func (w *CleanupWorker) Enqueue(name string, run func(ctx context.Context) error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		w.logger.WithField("job", name).Warn("Cleanup job rejected: worker stopped")
		return false
	}

	select {
	case w.jobs <- cleanupJob{name: name, run: run}:
		return true
	default:
		w.logger.WithField("job", name).Warn("Cleanup job dropped: queue full")
		return false
	}
}

// Stop closes the queue, lets workers finish what they hold, and waits up to
// the shutdown timeout.
func (w *CleanupWorker) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	close(w.jobs)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(w.shutdown):
		w.logger.Warn("Cleanup worker shutdown timed out; abandoning in-flight jobs")
	}
}

// QueueDepth reports how many jobs are waiting. Used by health reporting.
func (w *CleanupWorker) QueueDepth() int {
	return len(w.jobs)
}

func (w *CleanupWorker) worker() {
	defer w.wg.Done()

	for job := range w.jobs {
		w.runJob(job)
	}
}

func (w *CleanupWorker) runJob(job cleanupJob) {
	// Each job establishes its own context; the request that scheduled it
	// has already returned.
	ctx, cancel := context.WithTimeout(context.Background(), w.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			w.logger.WithField("job", job.name).WithError(fmt.Errorf("panic: %v", r)).Error("Cleanup job panicked")
		}
	}()

	if err := job.run(ctx); err != nil {
		w.logger.WithField("job", job.name).WithError(err).Error("Cleanup job failed")
	}
}
