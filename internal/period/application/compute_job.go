package application

import (
	"context"
	"fmt"
	"log"
	"time"

	period "settlement-periods/internal/period/domain"
)

// StatusTextCopyProperties is the progress message published when the
// compute job starts staging.
const StatusTextCopyProperties = "Copy to period temp properties"

// ComputeJob drives pending -> computing -> review. Any failure flips the
// period to error and leaves the staged data in place for postmortem
// inspection.
type ComputeJob struct {
	periodID   int64
	repo       Repository
	staging    Staging
	computer   Computer
	statusText StatusText
	ttl        time.Duration
	logger     *log.Logger
}

// NewComputeJob constructs a compute job for one period.
func NewComputeJob(
	periodID int64,
	repo Repository,
	staging Staging,
	computer Computer,
	statusText StatusText,
	ttl time.Duration,
	logger *log.Logger,
) *ComputeJob {
	return &ComputeJob{
		periodID:   periodID,
		repo:       repo,
		staging:    staging,
		computer:   computer,
		statusText: statusText,
		ttl:        ttl,
		logger:     logger,
	}
}

// Name implements jobs.Job.
func (j *ComputeJob) Name() string { return "period_compute" }

// Execute implements jobs.Job.
func (j *ComputeJob) Execute(ctx context.Context) error {
	// Re-validate under the current state: a duplicate or stale job must
	// abort here without touching the period.
	p, err := j.repo.GetByID(ctx, j.periodID)
	if err != nil {
		return err
	}
	if p == nil {
		return period.ErrNotFound
	}
	if p.Status != period.StatusPending {
		return fmt.Errorf("compute job: period %d is %s, not pending", j.periodID, p.Status)
	}

	if _, err := j.repo.UpdateStatus(ctx, j.periodID, period.StatusComputing, nil); err != nil {
		return fmt.Errorf("mark computing: %w", err)
	}

	if err := j.work(ctx); err != nil {
		// The pre-job flips were committed outside the compute transaction,
		// so the failure handler moves the period to error explicitly. The
		// staged rows stay as-is for inspection. The flip runs detached from
		// the job context: the failure may be that very context timing out,
		// and the period must still land in error.
		flipCtx := context.WithoutCancel(ctx)
		if _, statusErr := j.repo.UpdateStatus(flipCtx, j.periodID, period.StatusError, nil); statusErr != nil && j.logger != nil {
			j.logger.Printf("period: compute id=%d failed and error flip also failed: %v", j.periodID, statusErr)
		}
		return err
	}

	if _, err := j.repo.UpdateStatus(ctx, j.periodID, period.StatusReview, nil); err != nil {
		return fmt.Errorf("mark review: %w", err)
	}
	return nil
}

func (j *ComputeJob) work(ctx context.Context) error {
	j.statusText.Put(j.periodID, StatusTextCopyProperties, j.ttl)

	copied, err := j.staging.CopyPropertiesToTemp(ctx, j.periodID)
	if err != nil {
		return fmt.Errorf("copy properties to temp: %w", err)
	}
	if j.logger != nil {
		j.logger.Printf("period: compute id=%d staged %d properties", j.periodID, copied)
	}

	// The settlement computation is atomic in its implementation: either
	// all of its staged results commit or none do.
	if err := j.computer.Compute(ctx, j.periodID); err != nil {
		return fmt.Errorf("compute: %w", err)
	}
	return nil
}
