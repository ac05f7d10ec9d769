package financial

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Movement) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Movement, error)
	Update(ctx context.Context, m *Movement) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	List(ctx context.Context, ownerID uuid.UUID, f Filter, limit, offset int) ([]*Movement, int, error)
	ListRange(ctx context.Context, ownerID uuid.UUID, from, to string) ([]*Movement, error)
	ListRecent(ctx context.Context, ownerID uuid.UUID, n int) ([]*Movement, error)
}
