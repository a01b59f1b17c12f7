package ports

import (
	"context"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
)

// AuthEventRepository persists the authentication audit trail.
type AuthEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuditService records a single authentication event.
type AuditService interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}
