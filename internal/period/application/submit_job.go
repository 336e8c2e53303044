package application

import (
	"context"
	"fmt"
	"log"

	period "settlement-periods/internal/period/domain"
)

// SubmitJob drives submitted -> closing -> closed. Promotion of the staged
// rows into the permanent tables is one transaction; on failure the period
// flips to error and the staged data is preserved.
type SubmitJob struct {
	periodID int64
	repo     Repository
	staging  Staging
	logger   *log.Logger
}

// NewSubmitJob constructs a submit job for one period.
func NewSubmitJob(periodID int64, repo Repository, staging Staging, logger *log.Logger) *SubmitJob {
	return &SubmitJob{periodID: periodID, repo: repo, staging: staging, logger: logger}
}

// Name implements jobs.Job.
func (j *SubmitJob) Name() string { return "period_submit" }

// Execute implements jobs.Job.
func (j *SubmitJob) Execute(ctx context.Context) error {
	// Re-validate under the current state: a duplicate or stale job must
	// abort here without touching the period.
	p, err := j.repo.GetByID(ctx, j.periodID)
	if err != nil {
		return err
	}
	if p == nil {
		return period.ErrNotFound
	}
	if p.Status != period.StatusSubmitted {
		return fmt.Errorf("submit job: period %d is %s, not submitted", j.periodID, p.Status)
	}

	if _, err := j.repo.UpdateStatus(ctx, j.periodID, period.StatusClosing, nil); err != nil {
		return fmt.Errorf("mark closing: %w", err)
	}

	if err := j.staging.Promote(ctx, j.periodID); err != nil {
		// Detach the error flip from the job context: a canceled or timed
		// out job must still land in error instead of sticking in closing.
		flipCtx := context.WithoutCancel(ctx)
		if _, statusErr := j.repo.UpdateStatus(flipCtx, j.periodID, period.StatusError, nil); statusErr != nil && j.logger != nil {
			j.logger.Printf("period: submit id=%d failed and error flip also failed: %v", j.periodID, statusErr)
		}
		return fmt.Errorf("promote staged data: %w", err)
	}

	if _, err := j.repo.UpdateStatus(ctx, j.periodID, period.StatusClosed, nil); err != nil {
		return fmt.Errorf("mark closed: %w", err)
	}
	if j.logger != nil {
		j.logger.Printf("period: submit id=%d closed", j.periodID)
	}
	return nil
}
