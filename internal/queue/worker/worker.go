package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/domain/job"
	"github.com/TharinduDesh/incidenthub/internal/notifications"
	"github.com/TharinduDesh/incidenthub/internal/observability"
)

// JobsRepository is the queue surface the worker drives.
type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	Concurrency   int
	ShutdownGrace time.Duration
}

type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	prom     *observability.Prom
	log      *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, notifier notifications.Notifier, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		prom:     prom,
		log:      log,
	}
}

// Run polls the queue until the context is cancelled. Each goroutine
// claims independently; SKIP LOCKED on the repo side keeps them from
// stepping on each other.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	var wg sync.WaitGroup

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()
			w.poll(ctx, n)
		}(i)
	}

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker received shutdown signal")

	done := make(chan struct{})
	go func() {
		defer close(done)
		wg.Wait()
	}()

	select {
	case <-done:
		w.log.Info("worker drained")
	case <-time.After(w.cfg.ShutdownGrace):
		w.log.Error("worker shutdown grace elapsed before drain")
	}

	return nil
}

func (w *Worker) poll(ctx context.Context, n int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			// Drain the backlog before going back to sleep.
			for {
				processed, err := w.ProcessOne(ctx)
				if err != nil {
					w.log.Error("job processing error", "goroutine", n, "err", err)
					break
				}
				if !processed {
					break
				}
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
