package store

import (
	"context"
	"sync"

	"github.com/TimurManjosov/gopaywall/internal/rules"
)

// MemoryStore is an in-memory AssignmentStorage. Suitable for tests and
// single-instance deployments where assignments may reset on restart.
type MemoryStore struct {
	mu          sync.RWMutex
	assignments map[string]string // experiment id -> variant id
}

// NewMemoryStore creates an empty in-memory assignment store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		assignments: make(map[string]string),
	}
}

// Get returns the confirmed variant id for the experiment, if any.
func (m *MemoryStore) Get(ctx context.Context, experimentID string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	variantID, ok := m.assignments[experimentID]
	return variantID, ok, nil
}

// Put records a confirmed assignment.
func (m *MemoryStore) Put(ctx context.Context, assignment rules.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assignments[assignment.ExperimentID] = assignment.VariantID
	return nil
}

// Clear removes all assignments.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.assignments = make(map[string]string)
	return nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error { return nil }
