package workers

import (
	"context"
	"errors"
	"log"
	"sync"

	"settlement-periods/internal/settings"
)

// Pause reasons recorded when consumers are toggled.
const (
	ReasonPeriodCompute = "on period calc disable"
	ReasonManual        = "manual"
)

// Pausable is a queue consumer that can be stopped and started.
type Pausable interface {
	Pause()
	Resume()
}

// Service toggles the registered queue consumers and keeps the
// workers-enabled flag in the settings store in sync.
type Service struct {
	store  settings.Store
	logger *log.Logger

	mu        sync.Mutex
	consumers []Pausable
}

// NewService constructs a Service.
func NewService(store settings.Store, logger *log.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("worker service: nil settings store")
	}
	return &Service{store: store, logger: logger}, nil
}

// Register adds a consumer under the service's control.
func (s *Service) Register(consumer Pausable) {
	if consumer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumers = append(s.consumers, consumer)
}

// Toggle pauses or resumes every registered consumer and records the new
// state in the settings store.
func (s *Service) Toggle(ctx context.Context, enabled bool, reason string) error {
	if err := s.store.SetBool(ctx, settings.ToEnableWorkersAlias, enabled); err != nil {
		return err
	}

	s.mu.Lock()
	consumers := make([]Pausable, len(s.consumers))
	copy(consumers, s.consumers)
	s.mu.Unlock()

	for _, consumer := range consumers {
		if enabled {
			consumer.Resume()
		} else {
			consumer.Pause()
		}
	}
	if s.logger != nil {
		s.logger.Printf("workers: enabled=%v reason=%s consumers=%d", enabled, reason, len(consumers))
	}
	return nil
}
