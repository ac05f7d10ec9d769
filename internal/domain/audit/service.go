package audit

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a client-submitted entry synchronously.
func (s *Service) Create(ctx context.Context, e *Entry) error {
	e.Action = strings.TrimSpace(e.Action)
	e.Description = strings.TrimSpace(e.Description)
	if e.OwnerID == uuid.Nil {
		return apperr.Validation("owner is required")
	}
	if e.Action == "" {
		return apperr.Validation("action is required")
	}
	if len(e.Action) > 100 {
		return apperr.Validation("action must be at most 100 characters")
	}
	if e.Description == "" {
		return apperr.Validation("description is required")
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID, f Filter, limit, offset int) ([]*Entry, int, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, 0, apperr.Validation("to must not be before from")
	}
	items, total, err := s.repo.List(ctx, ownerID, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}
