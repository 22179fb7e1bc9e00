package identifier

import (
	"context"
	"sync"
)

// MemoryForeignRegistry keeps confirmed foreign numbers in memory for tests
// and single-shot runs.
type MemoryForeignRegistry struct {
	mu        sync.RWMutex
	confirmed map[string]struct{}
}

func NewMemoryForeignRegistry() *MemoryForeignRegistry {
	return &MemoryForeignRegistry{confirmed: make(map[string]struct{})}
}

func foreignKey(countryCode, code string) string {
	return countryCode + ":" + code
}

// Add records a confirmed (country, number) pair.
func (r *MemoryForeignRegistry) Add(_ context.Context, countryCode, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirmed[foreignKey(countryCode, code)] = struct{}{}
	return nil
}

func (r *MemoryForeignRegistry) Confirmed(_ context.Context, countryCode, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.confirmed[foreignKey(countryCode, code)]
	return ok, nil
}
