package match

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Worker drains match tasks: for each claimed task it matches the candidate
// against the owner's active postings. It runs on a periodic cron sweep so
// retries and tasks left behind by a crash are picked up, plus an in-process
// kick channel so fresh resumes are matched without waiting for a tick.
type Worker struct {
	matches      Repository
	orchestrator *Orchestrator
	log          *zap.Logger

	cron        *cron.Cron
	kickCh      chan struct{}
	done        chan struct{}
	batchSize   int
	maxAttempts int
}

func NewWorker(matches Repository, orchestrator *Orchestrator, batchSize, maxAttempts int, log *zap.Logger) *Worker {
	if batchSize <= 0 {
		batchSize = 5
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Worker{
		matches:      matches,
		orchestrator: orchestrator,
		log:          log,
		cron:         cron.New(),
		kickCh:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
	}
}

// Start registers the sweep and begins listening for kicks. sweepSpec is a
// cron spec, e.g. "@every 30s".
func (w *Worker) Start(ctx context.Context, sweepSpec string) error {
	_, err := w.cron.AddFunc(sweepSpec, func() {
		w.ProcessPending(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}
	w.cron.Start()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case <-w.kickCh:
				w.ProcessPending(ctx)
			}
		}
	}()

	w.log.Info("match worker started", zap.String("sweep", sweepSpec))
	return nil
}

// Stop shuts the worker down. In-flight tasks finish; their claims are not
// revoked.
func (w *Worker) Stop() {
	w.cron.Stop()
	close(w.done)
	w.log.Info("match worker stopped")
}

// Kick nudges the worker to drain the queue now. Non-blocking; a pending
// nudge is enough.
func (w *Worker) Kick() {
	select {
	case w.kickCh <- struct{}{}:
	default:
	}
}

// ProcessPending claims and runs one batch of tasks. It keeps claiming until
// the queue is empty so a single kick drains everything enqueued meanwhile.
func (w *Worker) ProcessPending(ctx context.Context) {
	for {
		tasks, err := w.matches.ClaimTasks(ctx, w.batchSize, w.maxAttempts)
		if err != nil {
			w.log.Error("claim match tasks", zap.Error(err))
			return
		}
		if len(tasks) == 0 {
			return
		}
		for _, t := range tasks {
			w.runTask(ctx, t)
		}
	}
}

func (w *Worker) runTask(ctx context.Context, t Task) {
	err := w.orchestrator.MatchCandidate(ctx, t.OwnerID, t.CandidateID)
	if err == nil {
		if err := w.matches.CompleteTask(ctx, t.ID); err != nil {
			w.log.Error("complete match task", zap.String("taskId", t.ID.String()), zap.Error(err))
		}
		w.log.Info("match task done",
			zap.String("taskId", t.ID.String()),
			zap.String("candidateId", t.CandidateID.String()))
		return
	}

	attempts := t.Attempts + 1
	retry := attempts < w.maxAttempts
	if ferr := w.matches.FailTask(ctx, t.ID, attempts, err.Error(), retry); ferr != nil {
		w.log.Error("record match task failure", zap.String("taskId", t.ID.String()), zap.Error(ferr))
	}
	w.log.Warn("match task failed",
		zap.String("taskId", t.ID.String()),
		zap.Int("attempts", attempts),
		zap.Bool("willRetry", retry),
		zap.Error(err))
}
