package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"settlement-periods/internal/observability/metrics"
	period "settlement-periods/internal/period/domain"
)

// Repository is an in-memory period store mirroring the Postgres contract.
type Repository struct {
	mu      sync.Mutex
	periods map[int64]*period.Period
	logs    []period.StatusLog
	staging *Staging

	nextPeriodID int64
	nextLogID    int64

	now func() time.Time
}

// NewRepository constructs a repository. staging may be nil when reset is
// not exercised.
func NewRepository(staging *Staging) *Repository {
	return &Repository{
		periods: make(map[int64]*period.Period),
		staging: staging,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create inserts the period as open with its initial log row.
func (r *Repository) Create(_ context.Context, p *period.Period, userID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.periods {
		if existing.Active() {
			return period.ErrActiveExists
		}
		if existing.Number == p.Number {
			return period.ErrDuplicateNumber
		}
	}

	r.nextPeriodID++
	now := r.now()
	p.ID = r.nextPeriodID
	p.Status = period.StatusOpen
	p.CreatedAt = now
	p.UpdatedAt = now
	clone := *p
	r.periods[p.ID] = &clone

	r.appendLogLocked(p.ID, period.StatusOpen, period.StatusOpen, userID)
	return nil
}

// GetByID returns a copy of the period, or nil when absent.
func (r *Repository) GetByID(_ context.Context, id int64) (*period.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.periods[id]
	if !ok {
		return nil, nil
	}
	clone := *p
	return &clone, nil
}

// FindLast returns the period with the highest id.
func (r *Repository) FindLast(_ context.Context) (*period.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var last *period.Period
	for _, p := range r.periods {
		if last == nil || p.ID > last.ID {
			last = p
		}
	}
	if last == nil {
		return nil, nil
	}
	clone := *last
	return &clone, nil
}

// SubPeriodFrom returns the period countSub positions before currentID in
// descending id order.
func (r *Repository) SubPeriodFrom(_ context.Context, currentID int64, countSub int) (*period.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []int64
	for id := range r.periods {
		if id <= currentID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if countSub < 0 || countSub >= len(ids) {
		return nil, nil
	}
	clone := *r.periods[ids[countSub]]
	return &clone, nil
}

// FindIDByDate returns the id of the period containing t, or 0.
func (r *Repository) FindIDByDate(_ context.Context, t time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.periods {
		if !p.DateFrom.After(t) && !p.DateTo.Before(t) {
			return p.ID, nil
		}
	}
	return 0, nil
}

// ExistsActive reports whether any period is neither closed nor error.
func (r *Repository) ExistsActive(_ context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.periods {
		if p.Active() {
			return true, nil
		}
	}
	return false, nil
}

// UpdateStatus applies a validated transition and appends the log row.
func (r *Repository) UpdateStatus(_ context.Context, id int64, to period.Status, userID *int64) (*period.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.periods[id]
	if !ok {
		return nil, period.ErrNotFound
	}
	from := p.Status
	if err := p.Transition(to); err != nil {
		return nil, err
	}
	if from != p.Status {
		p.UpdatedAt = r.now()
		r.appendLogLocked(id, from, p.Status, userID)
		metrics.IncTransition(string(from), string(p.Status))
	}
	clone := *p
	return &clone, nil
}

// ResetToOpen purges staged transactions and flips review -> open.
func (r *Repository) ResetToOpen(ctx context.Context, id int64, userID *int64) (*period.Period, error) {
	// Validate the flip before purging so an illegal reset leaves the
	// staged rows untouched, matching the Postgres transaction.
	p, err := r.UpdateStatus(ctx, id, period.StatusOpen, userID)
	if err != nil {
		return nil, err
	}
	if r.staging != nil {
		if _, err := r.staging.PurgeTempTransactions(ctx, id); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ListByStatusPriority lists periods by the fixed status ranking, then
// created_at descending.
func (r *Repository) ListByStatusPriority(_ context.Context, filter period.ListFilter) ([]period.Period, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var result []period.Period
	for _, p := range r.periods {
		if matches(p, filter) {
			result = append(result, *p)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		pi, pj := period.StatusPriority(result[i].Status), period.StatusPriority(result[j].Status)
		if pi != pj {
			return pi < pj
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// StatusLogs returns the period's trail newest-first.
func (r *Repository) StatusLogs(_ context.Context, periodID int64) ([]period.StatusLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []period.StatusLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		if r.logs[i].PeriodID == periodID {
			result = append(result, r.logs[i])
		}
	}
	return result, nil
}

func (r *Repository) appendLogLocked(periodID int64, from, to period.Status, userID *int64) {
	r.nextLogID++
	r.logs = append(r.logs, period.StatusLog{
		ID:         r.nextLogID,
		PeriodID:   periodID,
		StatusFrom: from,
		StatusTo:   to,
		UserID:     userID,
		CreatedAt:  r.now(),
	})
}

func matches(p *period.Period, f period.ListFilter) bool {
	if !f.DateFromAfter.IsZero() && p.DateFrom.Before(f.DateFromAfter) {
		return false
	}
	if !f.DateToBefore.IsZero() && p.DateTo.After(f.DateToBefore) {
		return false
	}
	if !f.CreatedAtFrom.IsZero() && p.CreatedAt.Before(f.CreatedAtFrom) {
		return false
	}
	if !f.CreatedAtTo.IsZero() && p.CreatedAt.After(f.CreatedAtTo) {
		return false
	}
	if f.NumberSubstring != "" && !strings.Contains(strings.ToLower(p.Number), strings.ToLower(f.NumberSubstring)) {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if p.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
