package budget

import (
	"context"
	"sync"
)

// MemoryStore keeps spend counters in process memory. Counters reset on
// restart, which suits development and single-instance deployments that can
// tolerate a fresh month after a crash.
type MemoryStore struct {
	mu    sync.Mutex
	spend map[string]map[string]float64 // connector -> month -> usd
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{spend: make(map[string]map[string]float64)}
}

// Add records spend for the connector in the month.
func (s *MemoryStore) Add(ctx context.Context, connector, month string, usd float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	months, ok := s.spend[connector]
	if !ok {
		months = make(map[string]float64)
		s.spend[connector] = months
	}
	months[month] += usd
	return nil
}

// Spent returns the accumulated spend for the connector in the month.
func (s *MemoryStore) Spent(ctx context.Context, connector, month string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.spend[connector][month], nil
}

// Prune discards months before keepFrom. Month keys sort lexically in
// chronological order, so a string comparison suffices.
func (s *MemoryStore) Prune(ctx context.Context, keepFrom string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for connector, months := range s.spend {
		for month := range months {
			if month < keepFrom {
				delete(months, month)
				removed++
			}
		}
		if len(months) == 0 {
			delete(s.spend, connector)
		}
	}
	return removed, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
