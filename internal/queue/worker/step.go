package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/domain/job"
	"github.com/TharinduDesh/incidenthub/internal/jobs"
	"github.com/TharinduDesh/incidenthub/internal/notifications"
)

// ProcessOne claims and executes a single job. It reports whether a
// job was actually claimed so the poll loop knows when the queue is
// drained. Execution failures are absorbed into retries and never
// returned; only claim/bookkeeping errors bubble up.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}
		return false, err
	}

	err = w.prom.ObserveJob(j.Type, func() error {
		return w.execute(ctx, j)
	})

	if err != nil {
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	if err := w.repo.MarkDone(ctx, j.ID); err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.log.Info("job done", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts)
	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	decoded, err := jobs.Decode(j.Type, j.Payload)
	if err != nil {
		return err
	}

	switch p := decoded.(type) {
	case jobs.VerificationEmailPayload:
		return w.notifier.SendVerificationEmail(ctx, notifications.VerificationEmailInput{
			Email: p.Email,
			Name:  p.Name,
			Code:  p.Code,
		})

	case jobs.WelcomeEmailPayload:
		return w.notifier.SendWelcomeEmail(ctx, notifications.WelcomeEmailInput{
			Email: p.Email,
			Name:  p.Name,
		})

	case jobs.PasswordResetEmailPayload:
		return w.notifier.SendPasswordResetEmail(ctx, notifications.PasswordResetEmailInput{
			Email:    p.Email,
			ResetURL: p.ResetURL,
		})

	case jobs.ResetSuccessEmailPayload:
		return w.notifier.SendResetSuccessEmail(ctx, notifications.ResetSuccessEmailInput{
			Email: p.Email,
		})

	default:
		return fmt.Errorf("%w: %q", jobs.ErrUnknownType, j.Type)
	}
}

// handleFailure decides between retry and burial. Undecodable jobs
// are buried immediately: the payload will not get better on retry.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) {
	if errors.Is(execErr, jobs.ErrUnknownType) || errors.Is(execErr, jobs.ErrInvalidPayload) {
		w.log.Error("job payload rejected", "job_id", j.ID, "type", j.Type, "err", execErr)
		_ = w.repo.MarkFailed(ctx, j.ID, execErr.Error())
		return
	}

	// Attempts was already incremented by the claim.
	if j.Attempts >= j.MaxAttempts {
		w.log.Error("job exhausted retries", "job_id", j.ID, "type", j.Type, "attempts", j.Attempts, "err", execErr)
		_ = w.repo.MarkFailed(ctx, j.ID, execErr.Error())
		return
	}

	delay := ExponentialBackoff(j.Attempts)
	runAt := time.Now().UTC().Add(delay)

	w.log.Warn("job failed, rescheduling",
		"job_id", j.ID,
		"type", j.Type,
		"attempts", j.Attempts,
		"retry_in", delay.String(),
		"err", execErr,
	)

	if err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error()); err != nil {
		w.log.Error("reschedule failed", "job_id", j.ID, "err", err)
		_ = w.repo.MarkFailed(ctx, j.ID, "reschedule_failed: "+err.Error())
	}
}
