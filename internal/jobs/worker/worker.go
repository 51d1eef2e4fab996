package worker

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/replygen-backend/internal/data/repos"
	"github.com/yungbote/replygen-backend/internal/data/repos/dberr"
	types "github.com/yungbote/replygen-backend/internal/domain/jobs"
	"github.com/yungbote/replygen-backend/internal/jobs/runtime"
	"github.com/yungbote/replygen-backend/internal/platform/dbctx"
	"github.com/yungbote/replygen-backend/internal/platform/logger"
	"github.com/yungbote/replygen-backend/internal/services"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	// Attempts beyond this fail the run with "retries exhausted".
	MaxAttempts int
	BackoffUnit time.Duration
	// A running job whose heartbeat is older than this is claimable again.
	StaleRunning   time.Duration
	HeartbeatEvery time.Duration
}

func DefaultConfig() Config {
	return Config{
		Concurrency:    4,
		PollInterval:   time.Second,
		MaxAttempts:    3,
		BackoffUnit:    time.Second,
		StaleRunning:   30 * time.Minute,
		HeartbeatEvery: 30 * time.Second,
	}
}

type Worker struct {
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier
	cfg      Config
	now      func() time.Time
}

func NewWorker(baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier, cfg Config) *Worker {
	def := DefaultConfig()
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffUnit <= 0 {
		cfg.BackoffUnit = def.BackoffUnit
	}
	if cfg.StaleRunning <= 0 {
		cfg.StaleRunning = def.StaleRunning
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = def.HeartbeatEvery
	}
	return &Worker{
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		cfg:      cfg,
		now:      time.Now,
	}
}

// WithClock replaces the worker's time source.
func (w *Worker) WithClock(now func() time.Time) *Worker {
	w.now = now
	return w
}

// Run polls for jobs on cfg.Concurrency loops until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			w.runLoop(gctx, workerID)
			return nil
		})
	}
	return g.Wait()
}

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain everything runnable before sleeping again.
			for ctx.Err() == nil {
				ran, err := w.RunOnce(ctx)
				if err != nil {
					w.log.Warn("ClaimNextRunnable failed", "worker_id", workerID, "error", err)
					break
				}
				if !ran {
					break
				}
			}
		}
	}
}

// RunOnce claims and executes at most one job. It reports whether a job ran.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.repo.ClaimNextRunnable(dbctx.Background(ctx), w.now(), w.cfg.StaleRunning)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}
	w.execute(ctx, job)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, job *types.JobRun) {
	log := w.log.With("job_id", job.ID, "job_type", job.JobType, "attempt", job.Attempts)
	jc := runtime.NewContext(ctx, job, w.repo, w.notify)
	jc.Now = w.now

	h, ok := w.registry.Get(job.JobType)
	if !ok {
		log.Warn("No handler registered for job_type")
		jc.Fail("dispatch", &missingHandlerError{JobType: job.JobType})
		return
	}

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go w.heartbeat(hbCtx, job)
	runErr := w.safeRun(h, jc, log)
	stopHeartbeat()

	switch {
	case runErr == nil:
		if !jc.Settled() {
			jc.Succeed("done", nil)
		}
	case runtime.IsRetry(runErr) || dberr.IsTransient(runErr):
		if job.Attempts >= w.cfg.MaxAttempts {
			log.Error("Job retries exhausted", "error", runErr)
			jc.Fail("retry", fmt.Errorf("retries exhausted after %d attempts: %w", job.Attempts, runErr))
			return
		}
		delay := runtime.BackoffAfter(job.Attempts, w.cfg.BackoffUnit)
		log.Info("Job rescheduled", "delay", delay, "error", runErr)
		jc.Reschedule("retry", runErr, w.now().Add(delay))
	default:
		// Most handlers settle their own failures; this is a safety net.
		jc.Fail("run", runErr)
	}
}

func (w *Worker) safeRun(h runtime.Handler, jc *runtime.Context, log *logger.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job handler panic", "panic", r)
			err = &panicError{Val: r}
		}
	}()
	return h.Run(jc)
}

func (w *Worker) heartbeat(ctx context.Context, job *types.JobRun) {
	ticker := time.NewTicker(w.cfg.HeartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.repo.Heartbeat(dbctx.Background(ctx), job.ID, w.now().UTC()); err != nil {
				w.log.Warn("Job heartbeat failed", "job_id", job.ID, "error", err)
			}
		}
	}
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
