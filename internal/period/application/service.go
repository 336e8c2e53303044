package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"settlement-periods/internal/observability/metrics"
	period "settlement-periods/internal/period/domain"
	"settlement-periods/internal/settings"
	"settlement-periods/internal/workers"
)

// DefaultPeriodDurationDays is used when the duration setting is absent.
const DefaultPeriodDurationDays = 7

// Service is the period lifecycle facade. It performs the synchronous
// precondition checks and status flips, enqueues the long-running jobs, and
// returns immediately; the heavy work happens in the queue worker.
type Service struct {
	repo       Repository
	staging    Staging
	computer   Computer
	queue      Dispatcher
	control    QueueControl
	store      SettingsStore
	statusText StatusText
	logger     *log.Logger
	ttl        time.Duration
}

// NewService constructs a Service.
func NewService(
	repo Repository,
	staging Staging,
	computer Computer,
	queue Dispatcher,
	control QueueControl,
	store SettingsStore,
	statusText StatusText,
	ttl time.Duration,
	logger *log.Logger,
) (*Service, error) {
	if repo == nil {
		return nil, errors.New("period service: nil repository")
	}
	if staging == nil {
		return nil, errors.New("period service: nil staging")
	}
	if computer == nil {
		return nil, errors.New("period service: nil computer")
	}
	if queue == nil {
		return nil, errors.New("period service: nil dispatcher")
	}
	if control == nil {
		return nil, errors.New("period service: nil queue control")
	}
	if store == nil {
		return nil, errors.New("period service: nil settings store")
	}
	if statusText == nil {
		return nil, errors.New("period service: nil status text cache")
	}
	return &Service{
		repo:       repo,
		staging:    staging,
		computer:   computer,
		queue:      queue,
		control:    control,
		store:      store,
		statusText: statusText,
		logger:     logger,
		ttl:        ttl,
	}, nil
}

// Create admits a new period. At most one period may be active system-wide;
// when another period is neither closed nor error the call fails with
// period.ErrActiveExists and nothing is written.
func (s *Service) Create(ctx context.Context, number string, dateFrom, dateTo time.Time, userID *int64) (*period.Period, error) {
	exists, err := s.repo.ExistsActive(ctx)
	if err != nil {
		metrics.IncLifecycleRequest("create", metrics.ResultError)
		return nil, err
	}
	if exists {
		metrics.IncLifecycleRequest("create", metrics.ResultError)
		return nil, period.ErrActiveExists
	}

	if err := s.store.SetBool(ctx, settings.PeriodComputingAlias, false); err != nil {
		metrics.IncLifecycleRequest("create", metrics.ResultError)
		return nil, fmt.Errorf("reset computing flag: %w", err)
	}
	if err := s.store.SetBool(ctx, settings.ToEnableWorkersAlias, true); err != nil {
		metrics.IncLifecycleRequest("create", metrics.ResultError)
		return nil, fmt.Errorf("reset workers flag: %w", err)
	}

	p := &period.Period{
		Number:   number,
		DateFrom: dateFrom,
		DateTo:   dateTo,
		Status:   period.StatusOpen,
	}
	// The repository re-checks admission under a lock; the check above is
	// only a fast path.
	if err := s.repo.Create(ctx, p, userID); err != nil {
		metrics.IncLifecycleRequest("create", metrics.ResultError)
		return nil, err
	}
	metrics.IncLifecycleRequest("create", metrics.ResultSuccess)
	if s.logger != nil {
		s.logger.Printf("period: created id=%d number=%q range=%s", p.ID, p.Number, p.FullPeriod())
	}
	return p, nil
}

// CreateNext derives the next period from the previous one: date_from is
// the previous date_to, date_to adds the configured duration, and the
// number follows the previous id.
func (s *Service) CreateNext(ctx context.Context, prev *period.Period, userID *int64) (*period.Period, error) {
	if prev == nil {
		return nil, period.ErrNotFound
	}
	days, err := s.store.Int(ctx, settings.PeriodDurationDaysAlias, DefaultPeriodDurationDays)
	if err != nil {
		return nil, err
	}
	number := fmt.Sprintf("Period - %d", prev.ID+1)
	return s.Create(ctx, number, prev.DateTo, prev.DateTo.AddDate(0, 0, days), userID)
}

// Compute starts the settlement computation for an open period: it stops
// the other queue consumers, raises the computing flag, flips the period to
// pending and enqueues the compute job. A period in any other status fails
// with period.ErrNotOpen and nothing changes.
func (s *Service) Compute(ctx context.Context, id int64, userID *int64) (*period.Period, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		metrics.IncLifecycleRequest("compute", metrics.ResultError)
		return nil, err
	}
	if p == nil {
		metrics.IncLifecycleRequest("compute", metrics.ResultError)
		return nil, period.ErrNotFound
	}
	if p.Status != period.StatusOpen {
		metrics.IncLifecycleRequest("compute", metrics.ResultError)
		return nil, period.ErrNotOpen
	}

	if err := s.control.Toggle(ctx, false, workers.ReasonPeriodCompute); err != nil {
		metrics.IncLifecycleRequest("compute", metrics.ResultError)
		return nil, fmt.Errorf("pause queues: %w", err)
	}
	if err := s.store.SetBool(ctx, settings.PeriodComputingAlias, true); err != nil {
		metrics.IncLifecycleRequest("compute", metrics.ResultError)
		return nil, fmt.Errorf("set computing flag: %w", err)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, period.StatusPending, userID)
	if err != nil {
		metrics.IncLifecycleRequest("compute", metrics.ResultError)
		return nil, err
	}

	job := NewComputeJob(id, s.repo, s.staging, s.computer, s.statusText, s.ttl, s.logger)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		metrics.IncLifecycleRequest("compute", metrics.ResultError)
		return nil, fmt.Errorf("enqueue compute job: %w", err)
	}
	metrics.IncLifecycleRequest("compute", metrics.ResultSuccess)
	if s.logger != nil {
		s.logger.Printf("period: compute accepted id=%d", id)
	}
	return updated, nil
}

// Submit promotes a reviewed period: flips review -> submitted and enqueues
// the submit job. Any other status fails with period.ErrNotInReview.
func (s *Service) Submit(ctx context.Context, id int64, userID *int64) (*period.Period, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		metrics.IncLifecycleRequest("submit", metrics.ResultError)
		return nil, err
	}
	if p == nil {
		metrics.IncLifecycleRequest("submit", metrics.ResultError)
		return nil, period.ErrNotFound
	}
	if p.Status != period.StatusReview {
		metrics.IncLifecycleRequest("submit", metrics.ResultError)
		return nil, period.ErrNotInReview
	}

	updated, err := s.repo.UpdateStatus(ctx, id, period.StatusSubmitted, userID)
	if err != nil {
		metrics.IncLifecycleRequest("submit", metrics.ResultError)
		return nil, err
	}

	job := NewSubmitJob(id, s.repo, s.staging, s.logger)
	if err := s.queue.Enqueue(ctx, job); err != nil {
		metrics.IncLifecycleRequest("submit", metrics.ResultError)
		return nil, fmt.Errorf("enqueue submit job: %w", err)
	}
	metrics.IncLifecycleRequest("submit", metrics.ResultSuccess)
	if s.logger != nil {
		s.logger.Printf("period: submit accepted id=%d", id)
	}
	return updated, nil
}

// Reset discards a reviewed period's staged transactions and returns it to
// open, atomically. Any other status fails with period.ErrNotInReview.
func (s *Service) Reset(ctx context.Context, id int64, userID *int64) (*period.Period, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		metrics.IncLifecycleRequest("reset", metrics.ResultError)
		return nil, err
	}
	if p == nil {
		metrics.IncLifecycleRequest("reset", metrics.ResultError)
		return nil, period.ErrNotFound
	}
	if p.Status != period.StatusReview {
		metrics.IncLifecycleRequest("reset", metrics.ResultError)
		return nil, period.ErrNotInReview
	}

	updated, err := s.repo.ResetToOpen(ctx, id, userID)
	if err != nil {
		metrics.IncLifecycleRequest("reset", metrics.ResultError)
		return nil, err
	}
	metrics.IncLifecycleRequest("reset", metrics.ResultSuccess)
	if s.logger != nil {
		s.logger.Printf("period: reset id=%d", id)
	}
	return updated, nil
}

// Get returns one period.
func (s *Service) Get(ctx context.Context, id int64) (*period.Period, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, period.ErrNotFound
	}
	return p, nil
}

// List returns periods ordered by status priority, then recency.
func (s *Service) List(ctx context.Context, filter period.ListFilter) ([]period.Period, error) {
	return s.repo.ListByStatusPriority(ctx, filter)
}

// StatusLogs returns a period's audit trail newest-first.
func (s *Service) StatusLogs(ctx context.Context, id int64) ([]period.StatusLog, error) {
	return s.repo.StatusLogs(ctx, id)
}

// StatusText returns the period's last progress message, if still cached.
func (s *Service) StatusText(id int64) (string, bool) {
	return s.statusText.Get(id)
}

// ExistsActive reports whether any period is neither closed nor error.
func (s *Service) ExistsActive(ctx context.Context) (bool, error) {
	return s.repo.ExistsActive(ctx)
}

// FindLast returns the most recently created period.
func (s *Service) FindLast(ctx context.Context) (*period.Period, error) {
	return s.repo.FindLast(ctx)
}
