package audit

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, ownerID uuid.UUID, f Filter, limit, offset int) ([]*Entry, int, error)
}
