package appointment

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
)

const CodeTimeSlotOccupied = "TIME_SLOT_OCCUPIED"

// Overlaps reports whether two half-open minute intervals intersect.
// Back-to-back intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// Candidate describes a time slot being booked or moved.
type Candidate struct {
	OwnerID   uuid.UUID
	Date      string
	Start     int
	End       int
	ExcludeID uuid.UUID
}

// Detector finds the owner's existing appointment that a candidate would
// collide with.
type Detector struct {
	repo Repository
}

func NewDetector(repo Repository) *Detector {
	return &Detector{repo: repo}
}

// Find returns the first non-cancelled appointment that overlaps c, or nil.
func (d *Detector) Find(ctx context.Context, c Candidate) (*Appointment, error) {
	existing, err := d.repo.ListForConflict(ctx, c.OwnerID, c.Date, c.ExcludeID)
	if err != nil {
		return nil, fmt.Errorf("list appointments for conflict check: %w", err)
	}
	for _, a := range existing {
		if a.Status == StatusCancelled || a.ID == c.ExcludeID {
			continue
		}
		start, err := dateutil.ParseClock(a.StartTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
		}
		end, err := dateutil.ParseClock(a.EndTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s: %w", a.ID, err)
		}
		if Overlaps(c.Start, c.End, start, end) {
			return a, nil
		}
	}
	return nil, nil
}

// ConflictError is returned to clients when a slot is taken. The
// conflicting appointment travels in the error details.
func ConflictError(existing *Appointment) error {
	return apperr.Conflict(CodeTimeSlotOccupied, "time slot occupied").WithDetails(map[string]interface{}{
		"conflicting_appointment": existing,
	})
}
