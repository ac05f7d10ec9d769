package report

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/audit"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/user"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/blobstore"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
)

type OwnerLookup interface {
	Profile(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type Service struct {
	builder *Builder
	repo    Repository
	store   blobstore.Store
	users   OwnerLookup
	zone    *dateutil.Zone
	audit   audit.Sink
}

func NewService(builder *Builder, repo Repository, store blobstore.Store, users OwnerLookup, zone *dateutil.Zone, sink audit.Sink) *Service {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Service{builder: builder, repo: repo, store: store, users: users, zone: zone, audit: sink}
}

func (s *Service) owner(ctx context.Context, id uuid.UUID) (Owner, error) {
	u, err := s.users.Profile(ctx, id)
	if err != nil {
		return Owner{}, err
	}
	return Owner{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}

// Generate builds the owner's report for date, or today when date is empty.
func (s *Service) Generate(ctx context.Context, ownerID uuid.UUID, date string) (*Report, *DayData, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.zone.Today()
	}
	if !dateutil.ValidDate(date) {
		return nil, nil, apperr.Validation("invalid date %q: expected YYYY-MM-DD", date)
	}
	owner, err := s.owner(ctx, ownerID)
	if err != nil {
		return nil, nil, err
	}
	return s.GenerateFor(ctx, owner, date)
}

// GenerateFor is Generate for a caller that already resolved the owner, such
// as the daily job iterating over active users.
func (s *Service) GenerateFor(ctx context.Context, owner Owner, date string) (*Report, *DayData, error) {
	rep, data, err := s.builder.Generate(ctx, owner, date)
	if err != nil {
		return nil, nil, apperr.Internal(err)
	}
	s.audit.Record(ctx, audit.NewEntry(owner.ID, "report.generate", "generated report for "+date, "report", rep.ID))
	return rep, data, nil
}

func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*Report, error) {
	rep, err := s.repo.GetByID(ctx, owner, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("report")
		}
		return nil, apperr.Internal(err)
	}
	return rep, nil
}

func (s *Service) GetByDate(ctx context.Context, owner uuid.UUID, date string) (*Report, error) {
	if !dateutil.ValidDate(date) {
		return nil, apperr.Validation("invalid date %q: expected YYYY-MM-DD", date)
	}
	rep, err := s.repo.GetByDate(ctx, owner, date)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("report")
		}
		return nil, apperr.Internal(err)
	}
	return rep, nil
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, f ListFilter, limit, offset int) ([]*Report, int, error) {
	for _, d := range []string{f.From, f.To} {
		if d != "" && !dateutil.ValidDate(d) {
			return nil, 0, apperr.Validation("invalid date %q: expected YYYY-MM-DD", d)
		}
	}
	items, total, err := s.repo.List(ctx, owner, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// Download opens the stored artifact of a report. The caller closes the
// reader.
func (s *Service) Download(ctx context.Context, owner, id uuid.UUID) (io.ReadCloser, string, error) {
	rep, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, "", err
	}
	if rep.FilePath == nil || *rep.FilePath == "" {
		return nil, "", apperr.NotFound("report file")
	}
	rc, err := s.store.Open(ctx, *rep.FilePath)
	if err != nil {
		if errors.Is(err, blobstore.ErrBlobNotFound) {
			return nil, "", apperr.NotFound("report file")
		}
		return nil, "", apperr.Internal(err)
	}
	return rc, path.Base(*rep.FilePath), nil
}

// MarkSent records delivery to the owner.
func (s *Service) MarkSent(ctx context.Context, owner, id uuid.UUID, at time.Time) error {
	if err := s.repo.MarkSent(ctx, owner, id, at); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound("report")
		}
		return apperr.Internal(err)
	}
	return nil
}
