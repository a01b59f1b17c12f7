package memory

import (
	"context"
	"sync"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

const defaultAuditCapacity = 1024

// AuthEventRepository keeps the most recent audit events in a bounded buffer.
type AuthEventRepository struct {
	mu       sync.Mutex
	events   []domain.AuthEvent
	capacity int
}

var _ ports.AuthEventRepository = (*AuthEventRepository)(nil)

// NewAuthEventRepository keeps at most capacity events; older ones are
// discarded first. A non-positive capacity selects the default.
func NewAuthEventRepository(capacity int) *AuthEventRepository {
	if capacity <= 0 {
		capacity = defaultAuditCapacity
	}
	return &AuthEventRepository{capacity: capacity}
}

func (r *AuthEventRepository) InsertEvent(_ context.Context, event *domain.AuthEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.events) == r.capacity {
		r.events = append(r.events[:0], r.events[1:]...)
	}
	r.events = append(r.events, *event)
	return nil
}

// Events returns a copy of the buffered events, oldest first.
func (r *AuthEventRepository) Events() []domain.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuthEvent(nil), r.events...)
}
