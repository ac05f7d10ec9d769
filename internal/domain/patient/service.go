package patient

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/audit"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
)

const maxAge = 150

type Service struct {
	repo  Repository
	zone  *dateutil.Zone
	audit audit.Sink
}

func NewService(repo Repository, zone *dateutil.Zone, sink audit.Sink) *Service {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Service{repo: repo, zone: zone, audit: sink}
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

// normalize trims text fields, validates them and derives Age from
// BirthDate when one is present.
func (s *Service) normalize(p *Patient) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Surname = strings.TrimSpace(p.Surname)
	if p.Name == "" {
		return apperr.Validation("name is required")
	}
	if p.Surname == "" {
		return apperr.Validation("surname is required")
	}
	p.Phone = trimPtr(p.Phone)
	p.Email = trimPtr(p.Email)
	p.Address = trimPtr(p.Address)
	p.EmergencyContactName = trimPtr(p.EmergencyContactName)
	p.EmergencyContactPhone = trimPtr(p.EmergencyContactPhone)
	p.MedicalHistory = trimPtr(p.MedicalHistory)
	p.BirthDate = trimPtr(p.BirthDate)

	if p.Email != nil {
		lower := strings.ToLower(*p.Email)
		if !strings.Contains(lower, "@") || strings.HasPrefix(lower, "@") || strings.HasSuffix(lower, "@") {
			return apperr.Validation("invalid email %q", *p.Email)
		}
		p.Email = &lower
	}

	if p.BirthDate != nil {
		born, err := s.zone.ParseDate(*p.BirthDate)
		if err != nil {
			return apperr.Validation("invalid birth_date: expected YYYY-MM-DD")
		}
		today, _ := s.zone.ParseDate(s.zone.Today())
		if born.After(today) {
			return apperr.Validation("birth_date cannot be in the future")
		}
		age := yearsBetween(born.Year(), int(born.Month()), born.Day(), today.Year(), int(today.Month()), today.Day())
		p.Age = &age
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > maxAge) {
		return apperr.Validation("age must be between 0 and %d", maxAge)
	}
	return nil
}

func yearsBetween(by, bm, bd, ty, tm, td int) int {
	age := ty - by
	if tm < bm || (tm == bm && td < bd) {
		age--
	}
	return age
}

func (s *Service) record(ctx context.Context, action, description string, id uuid.UUID) {
	owner := auth.UserIDFromContext(ctx)
	if owner == uuid.Nil {
		return
	}
	s.audit.Record(ctx, audit.NewEntry(owner, action, description, "patient", id))
}

func (s *Service) Create(ctx context.Context, p *Patient) error {
	if err := s.normalize(p); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return apperr.Internal(err)
	}
	s.record(ctx, "patient.create", "registered patient "+p.Code, p.ID)
	return nil
}

// Get returns a patient regardless of its active flag so that historical
// appointments can still resolve their patient.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("patient")
		}
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// RequireActive returns the patient if it exists and is active.
func (s *Service) RequireActive(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperr.Validation("patient %s is inactive", p.Code)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, patch Patch) (*Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperr.NotFound("patient")
	}
	patch.apply(p)
	if err := s.normalize(p); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	s.record(ctx, "patient.update", "updated patient "+p.Code, p.ID)
	return p, nil
}

// Delete deactivates the patient. Appointments and movements keep their
// reference.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !p.Active {
		return apperr.NotFound("patient")
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound("patient")
		}
		return apperr.Internal(err)
	}
	s.record(ctx, "patient.delete", "deactivated patient "+p.Code, p.ID)
	return nil
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, apperr.Validation("search query is required")
	}
	items, total, err := s.repo.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) CountActive(ctx context.Context) (int, error) {
	n, err := s.repo.CountActive(ctx)
	if err != nil {
		return 0, apperr.Internal(err)
	}
	return n, nil
}
