package memory

import (
	"context"
	"sync"
	"time"

	period "settlement-periods/internal/period/domain"
)

// CurrentProperty is one current account balance row, the source of the
// copy-to-temp step.
type CurrentProperty struct {
	AccountID int64
	Alias     string
	Value     float64
}

// Staging is an in-memory temp staging area mirroring the Postgres contract.
type Staging struct {
	mu sync.Mutex

	current []CurrentProperty

	tempProps map[int64][]period.TempProperty
	tempTx    map[int64][]period.TempTransaction

	permProps map[int64][]period.Property
	permTx    map[int64][]period.Transaction

	nextID int64
}

// NewStaging constructs an empty staging area.
func NewStaging() *Staging {
	return &Staging{
		tempProps: make(map[int64][]period.TempProperty),
		tempTx:    make(map[int64][]period.TempTransaction),
		permProps: make(map[int64][]period.Property),
		permTx:    make(map[int64][]period.Transaction),
	}
}

// SeedCurrentProperty adds a current account property row.
func (s *Staging) SeedCurrentProperty(accountID int64, alias string, value float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = append(s.current, CurrentProperty{AccountID: accountID, Alias: alias, Value: value})
}

// AddTempTransaction stages a transaction row, the way a computation would.
func (s *Staging) AddTempTransaction(periodID, accountID int64, kind string, amount float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.tempTx[periodID] = append(s.tempTx[periodID], period.TempTransaction{
		ID:        s.nextID,
		PeriodID:  periodID,
		AccountID: accountID,
		Kind:      kind,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	})
}

// CopyPropertiesToTemp replaces the period's temp properties with a copy of
// the current account properties.
func (s *Staging) CopyPropertiesToTemp(_ context.Context, periodID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	staged := make([]period.TempProperty, 0, len(s.current))
	for _, cp := range s.current {
		s.nextID++
		staged = append(staged, period.TempProperty{
			ID:        s.nextID,
			PeriodID:  periodID,
			AccountID: cp.AccountID,
			Alias:     cp.Alias,
			Value:     cp.Value,
			CreatedAt: time.Now().UTC(),
		})
	}
	s.tempProps[periodID] = staged
	return int64(len(staged)), nil
}

// PurgeTempTransactions deletes the period's staged transactions.
func (s *Staging) PurgeTempTransactions(_ context.Context, periodID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := int64(len(s.tempTx[periodID]))
	delete(s.tempTx, periodID)
	return count, nil
}

// Promote copies all staged rows for the period into the permanent tables.
func (s *Staging) Promote(_ context.Context, periodID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.tempTx[periodID] {
		s.nextID++
		s.permTx[periodID] = append(s.permTx[periodID], period.Transaction{
			ID:        s.nextID,
			PeriodID:  periodID,
			AccountID: tx.AccountID,
			Kind:      tx.Kind,
			Amount:    tx.Amount,
			CreatedAt: time.Now().UTC(),
		})
	}
	for _, prop := range s.tempProps[periodID] {
		s.nextID++
		s.permProps[periodID] = append(s.permProps[periodID], period.Property{
			ID:        s.nextID,
			PeriodID:  periodID,
			AccountID: prop.AccountID,
			Alias:     prop.Alias,
			Value:     prop.Value,
			CreatedAt: time.Now().UTC(),
		})
	}
	return nil
}

// TempTransactions returns the period's staged transactions.
func (s *Staging) TempTransactions(_ context.Context, periodID int64) ([]period.TempTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]period.TempTransaction, len(s.tempTx[periodID]))
	copy(result, s.tempTx[periodID])
	return result, nil
}

// TempProperties returns the period's staged properties.
func (s *Staging) TempProperties(_ context.Context, periodID int64) ([]period.TempProperty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]period.TempProperty, len(s.tempProps[periodID]))
	copy(result, s.tempProps[periodID])
	return result, nil
}

// Transactions returns the period's permanent transactions.
func (s *Staging) Transactions(_ context.Context, periodID int64) ([]period.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]period.Transaction, len(s.permTx[periodID]))
	copy(result, s.permTx[periodID])
	return result, nil
}

// Properties returns the period's permanent properties.
func (s *Staging) Properties(_ context.Context, periodID int64) ([]period.Property, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]period.Property, len(s.permProps[periodID]))
	copy(result, s.permProps[periodID])
	return result, nil
}

// CurrentProperties returns the live account balance rows.
func (s *Staging) CurrentProperties(_ context.Context) ([]period.AccountProperty, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]period.AccountProperty, 0, len(s.current))
	for _, c := range s.current {
		result = append(result, period.AccountProperty{AccountID: c.AccountID, Alias: c.Alias, Value: c.Value})
	}
	return result, nil
}
