package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

type auditService struct {
	repo ports.AuthEventRepository
	log  zerolog.Logger
}

// NewAuditService returns an AuditService that persists events to repo.
func NewAuditService(repo ports.AuthEventRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Record stamps and persists one authentication event.
func (s *auditService) Record(ctx context.Context, event domain.AuthEvent) error {
	if event.Kind == "" {
		return domain.ValidationError("audit event kind is required")
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	if err := s.repo.InsertEvent(ctx, &event); err != nil {
		return fmt.Errorf("record %s event: %w", event.Kind, err)
	}

	s.log.Debug().
		Str("kind", string(event.Kind)).
		Str("user_id", event.UserID).
		Str("ip", event.IP).
		Msg("auth event recorded")
	return nil
}
