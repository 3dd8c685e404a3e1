package leads

import (
	"context"
	"sync"
)

// Repository persists validated leads.
type Repository interface {
	Create(ctx context.Context, sub *Submission) error
}

// ConfigChecker is implemented by collaborators that need server
// configuration before they can do any work.
type ConfigChecker interface {
	CheckConfig() error
}

// InMemoryRepository keeps leads in process memory, for local development
// without a content store and for tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Submission
	order []string
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads: make(map[string]*Submission),
	}
}

// Create stores a copy of the submission.
func (r *InMemoryRepository) Create(ctx context.Context, sub *Submission) error {
	stored := *sub
	r.mu.Lock()
	if _, exists := r.leads[stored.ID]; !exists {
		r.order = append(r.order, stored.ID)
	}
	r.leads[stored.ID] = &stored
	r.mu.Unlock()
	return nil
}

// List returns stored leads in insertion order.
func (r *InMemoryRepository) List() []*Submission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Submission, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.leads[id])
	}
	return out
}
