package report

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	// Upsert inserts or overwrites the row for (r.Date, r.OwnerID) and fills
	// r with the stored id, timestamps and delivery state.
	Upsert(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Report, error)
	GetByDate(ctx context.Context, ownerID uuid.UUID, date string) (*Report, error)
	List(ctx context.Context, ownerID uuid.UUID, f ListFilter, limit, offset int) ([]*Report, int, error)
	MarkSent(ctx context.Context, ownerID, id uuid.UUID, at time.Time) error
}
