package settings

import (
	"context"
	"strconv"
	"sync"
)

// MemoryStore is an in-process settings store for tests and tooling.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Value returns the raw value for an alias, or empty string when unset.
func (s *MemoryStore) Value(_ context.Context, alias string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[alias], nil
}

// Int returns the integer value for an alias, or fallback.
func (s *MemoryStore) Int(_ context.Context, alias string, fallback int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[alias]
	if !ok {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback, nil
	}
	return parsed, nil
}

// SetValue stores a value.
func (s *MemoryStore) SetValue(_ context.Context, alias, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[alias] = value
	return nil
}

// SetBool stores a boolean flag.
func (s *MemoryStore) SetBool(ctx context.Context, alias string, enabled bool) error {
	value := FalseValue
	if enabled {
		value = TrueValue
	}
	return s.SetValue(ctx, alias, value)
}
