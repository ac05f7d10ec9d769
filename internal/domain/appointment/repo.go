package appointment

import (
	"context"

	"github.com/google/uuid"
)

// Repository is owner-scoped: every lookup takes the owning user and a
// record belonging to someone else behaves as missing.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	UpdateStatus(ctx context.Context, ownerID, id uuid.UUID, status string) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	List(ctx context.Context, ownerID uuid.UUID, f Filter, limit, offset int) ([]*Appointment, int, error)
	// ListRange returns every appointment between from and to inclusive,
	// ordered by date and start time.
	ListRange(ctx context.Context, ownerID uuid.UUID, from, to string) ([]*Appointment, error)
	ListForConflict(ctx context.Context, ownerID uuid.UUID, date string, excludeID uuid.UUID) ([]*Appointment, error)
	ListPendingReminders(ctx context.Context, ownerID uuid.UUID, date string) ([]*Appointment, error)
}
