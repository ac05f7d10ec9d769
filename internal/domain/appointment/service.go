package appointment

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/audit"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/patient"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
)

// PatientChecker confirms a patient may be booked.
type PatientChecker interface {
	RequireActive(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientChecker
	detector *Detector
	locker   db.Locker
	zone     *dateutil.Zone
	audit    audit.Sink
}

func NewService(repo Repository, patients PatientChecker, locker db.Locker, zone *dateutil.Zone, sink audit.Sink) *Service {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Service{
		repo:     repo,
		patients: patients,
		detector: NewDetector(repo),
		locker:   locker,
		zone:     zone,
		audit:    sink,
	}
}

func lockKey(owner uuid.UUID, date string) string {
	return "appointment:" + owner.String() + ":" + date
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// validate normalizes a and returns its start and end in minutes.
func (s *Service) validate(a *Appointment) (int, int, error) {
	if a.PatientID == uuid.Nil {
		return 0, 0, apperr.Validation("patient_id is required")
	}
	if !ValidCategory(a.Category) {
		return 0, 0, apperr.Validation("category must be one of %s", strings.Join(Categories, ", "))
	}
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return 0, 0, apperr.Validation("title is required")
	}
	a.Description = trimPtr(a.Description)
	a.Notes = trimPtr(a.Notes)
	if _, err := s.zone.ParseDate(a.Date); err != nil {
		return 0, 0, apperr.Validation("invalid date: expected YYYY-MM-DD")
	}
	a.Date = strings.TrimSpace(a.Date)
	start, err := dateutil.ParseClock(a.StartTime)
	if err != nil {
		return 0, 0, apperr.Validation("invalid start_time: expected HH:MM")
	}
	end, err := dateutil.ParseClock(a.EndTime)
	if err != nil {
		return 0, 0, apperr.Validation("invalid end_time: expected HH:MM")
	}
	if start >= end {
		return 0, 0, apperr.Validation("start_time must be before end_time")
	}
	a.StartTime = dateutil.FormatClock(start)
	a.EndTime = dateutil.FormatClock(end)
	if a.Status == "" {
		a.Status = StatusScheduled
	}
	if !ValidStatus(a.Status) {
		return 0, 0, apperr.Validation("status must be one of %s", strings.Join(Statuses, ", "))
	}
	return start, end, nil
}

// withLock runs fn under the (owner, date) lock when a locker is configured.
func (s *Service) withLock(ctx context.Context, owner uuid.UUID, date string, fn func(ctx context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, lockKey(owner, date), fn)
}

func (s *Service) checkConflict(ctx context.Context, a *Appointment, start, end int) error {
	if a.Status == StatusCancelled {
		return nil
	}
	existing, err := s.detector.Find(ctx, Candidate{
		OwnerID:   a.OwnerID,
		Date:      a.Date,
		Start:     start,
		End:       end,
		ExcludeID: a.ID,
	})
	if err != nil {
		return apperr.Internal(err)
	}
	if existing != nil {
		return ConflictError(existing)
	}
	return nil
}

func (s *Service) record(ctx context.Context, owner uuid.UUID, action, description string, id uuid.UUID) {
	s.audit.Record(ctx, audit.NewEntry(owner, action, description, "appointment", id))
}

func (s *Service) Create(ctx context.Context, owner uuid.UUID, a *Appointment) error {
	a.OwnerID = owner
	a.ID = uuid.Nil
	a.ReminderSent = false
	start, end, err := s.validate(a)
	if err != nil {
		return err
	}
	p, err := s.patients.RequireActive(ctx, a.PatientID)
	if err != nil {
		return err
	}

	err = s.withLock(ctx, owner, a.Date, func(ctx context.Context) error {
		if err := s.checkConflict(ctx, a, start, end); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.PatientName = p.FullName()
	s.record(ctx, owner, "appointment.create",
		fmt.Sprintf("scheduled %s on %s %s-%s", a.Title, a.Date, a.StartTime, a.EndTime), a.ID)
	return nil
}

func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, owner, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("appointment")
		}
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, f Filter, limit, offset int) ([]*Appointment, int, error) {
	for _, d := range []string{f.Date, f.From, f.To} {
		if d != "" && !dateutil.ValidDate(d) {
			return nil, 0, apperr.Validation("invalid date %q: expected YYYY-MM-DD", d)
		}
	}
	if f.Status != "" && !ValidStatus(f.Status) {
		return nil, 0, apperr.Validation("unknown status %q", f.Status)
	}
	if f.Category != "" && !ValidCategory(f.Category) {
		return nil, 0, apperr.Validation("unknown category %q", f.Category)
	}
	items, total, err := s.repo.List(ctx, owner, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// ListByDay returns all of the owner's appointments on date ordered by
// start time.
func (s *Service) ListByDay(ctx context.Context, owner uuid.UUID, date string) ([]*Appointment, error) {
	if !dateutil.ValidDate(date) {
		return nil, apperr.Validation("invalid date %q: expected YYYY-MM-DD", date)
	}
	items, err := s.repo.ListRange(ctx, owner, date, date)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

// ListRange returns the owner's appointments between two dates inclusive.
func (s *Service) ListRange(ctx context.Context, owner uuid.UUID, from, to string) ([]*Appointment, error) {
	if !dateutil.ValidDate(from) || !dateutil.ValidDate(to) {
		return nil, apperr.Validation("invalid date range %s..%s", from, to)
	}
	items, err := s.repo.ListRange(ctx, owner, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, patch Patch) (*Appointment, error) {
	current, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	a := *current
	if patch.PatientID != nil {
		a.PatientID = *patch.PatientID
	}
	if patch.Category != nil {
		a.Category = *patch.Category
	}
	if patch.Title != nil {
		a.Title = *patch.Title
	}
	if patch.Description != nil {
		a.Description = patch.Description
	}
	if patch.Notes != nil {
		a.Notes = patch.Notes
	}
	if patch.Date != nil {
		a.Date = *patch.Date
	}
	if patch.StartTime != nil {
		a.StartTime = *patch.StartTime
	}
	if patch.EndTime != nil {
		a.EndTime = *patch.EndTime
	}
	if patch.Status != nil {
		a.Status = *patch.Status
		if a.Status == "" {
			return nil, apperr.Validation("status cannot be empty")
		}
	}

	start, end, err := s.validate(&a)
	if err != nil {
		return nil, err
	}
	if patch.PatientID != nil && *patch.PatientID != current.PatientID {
		p, err := s.patients.RequireActive(ctx, a.PatientID)
		if err != nil {
			return nil, err
		}
		a.PatientName = p.FullName()
	}

	recheck := patch.touchesTime() || (current.Status == StatusCancelled && a.Status != StatusCancelled)
	err = s.withLock(ctx, owner, a.Date, func(ctx context.Context) error {
		if recheck {
			if err := s.checkConflict(ctx, &a, start, end); err != nil {
				return err
			}
		}
		if err := s.repo.Update(ctx, &a); err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("appointment")
			}
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.record(ctx, owner, "appointment.update", "updated "+a.Title, a.ID)
	return &a, nil
}

// ChangeStatus sets any valid status. Transitions are not restricted, but
// reviving a cancelled appointment re-checks its slot.
func (s *Service) ChangeStatus(ctx context.Context, owner, id uuid.UUID, status string) (*Appointment, error) {
	status = strings.TrimSpace(status)
	if !ValidStatus(status) {
		return nil, apperr.Validation("status must be one of %s", strings.Join(Statuses, ", "))
	}
	a, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	previous := a.Status

	err = s.withLock(ctx, owner, a.Date, func(ctx context.Context) error {
		if previous == StatusCancelled && status != StatusCancelled {
			start, _ := dateutil.ParseClock(a.StartTime)
			end, _ := dateutil.ParseClock(a.EndTime)
			probe := *a
			probe.Status = status
			if err := s.checkConflict(ctx, &probe, start, end); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateStatus(ctx, owner, id, status); err != nil {
			if db.IsNoRows(err) {
				return apperr.NotFound("appointment")
			}
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.Status = status
	s.record(ctx, owner, "appointment.status", fmt.Sprintf("status %s -> %s", previous, status), a.ID)
	return a, nil
}

func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound("appointment")
		}
		return apperr.Internal(err)
	}
	s.record(ctx, owner, "appointment.delete", "deleted appointment", id)
	return nil
}

// ListPendingReminders returns scheduled appointments on date that have not
// been reminded yet.
func (s *Service) ListPendingReminders(ctx context.Context, owner uuid.UUID, date string) ([]*Appointment, error) {
	if !dateutil.ValidDate(date) {
		return nil, apperr.Validation("invalid date %q", date)
	}
	items, err := s.repo.ListPendingReminders(ctx, owner, date)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}
