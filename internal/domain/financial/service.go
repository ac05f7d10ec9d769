package financial

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/appointment"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/audit"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/patient"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
)

// MaxHistoryDays bounds the range accepted by History.
const MaxHistoryDays = 366

type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type AppointmentLookup interface {
	Get(ctx context.Context, owner, id uuid.UUID) (*appointment.Appointment, error)
}

type Service struct {
	repo         Repository
	patients     PatientLookup
	appointments AppointmentLookup
	zone         *dateutil.Zone
	audit        audit.Sink
}

func NewService(repo Repository, patients PatientLookup, appointments AppointmentLookup, zone *dateutil.Zone, sink audit.Sink) *Service {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Service{repo: repo, patients: patients, appointments: appointments, zone: zone, audit: sink}
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

func (s *Service) validate(ctx context.Context, m *Movement) error {
	m.Direction = strings.TrimSpace(m.Direction)
	if !ValidDirection(m.Direction) {
		return apperr.Validation("direction must be income or expense")
	}
	m.Category = strings.TrimSpace(m.Category)
	if m.Category == "" {
		return apperr.Validation("category is required")
	}
	m.Description = strings.TrimSpace(m.Description)
	if m.Description == "" {
		return apperr.Validation("description is required")
	}
	if err := ValidateAmount(m.Amount); err != nil {
		return apperr.Validation("%s", err.Error())
	}
	m.Date = strings.TrimSpace(m.Date)
	if m.Date == "" {
		m.Date = s.zone.Today()
	}
	if !dateutil.ValidDate(m.Date) {
		return apperr.Validation("invalid date: expected YYYY-MM-DD")
	}
	m.PaymentMethod = trimPtr(m.PaymentMethod)
	if m.PaymentMethod != nil && !ValidPaymentMethod(*m.PaymentMethod) {
		return apperr.Validation("payment_method must be one of cash, card, transfer, check, deposit")
	}
	m.ReceiptRef = trimPtr(m.ReceiptRef)
	if m.PatientID != nil && *m.PatientID == uuid.Nil {
		m.PatientID = nil
	}
	if m.AppointmentID != nil && *m.AppointmentID == uuid.Nil {
		m.AppointmentID = nil
	}
	if m.PatientID != nil && s.patients != nil {
		if _, err := s.patients.Get(ctx, *m.PatientID); err != nil {
			return err
		}
	}
	if m.AppointmentID != nil && s.appointments != nil {
		if _, err := s.appointments.Get(ctx, m.OwnerID, *m.AppointmentID); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, owner uuid.UUID, action string, m *Movement) {
	desc := fmt.Sprintf("%s %s %s (%s)", action, m.Direction, m.Amount.StringFixed(2), m.Category)
	s.audit.Record(ctx, audit.NewEntry(owner, "movement."+action, desc, "financial_movement", m.ID))
}

func (s *Service) Create(ctx context.Context, owner uuid.UUID, m *Movement) error {
	m.OwnerID = owner
	if err := s.validate(ctx, m); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return apperr.Internal(err)
	}
	s.record(ctx, owner, "create", m)
	return nil
}

func (s *Service) Get(ctx context.Context, owner, id uuid.UUID) (*Movement, error) {
	m, err := s.repo.GetByID(ctx, owner, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("movement")
		}
		return nil, apperr.Internal(err)
	}
	return m, nil
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, f Filter, limit, offset int) ([]*Movement, int, error) {
	for _, d := range []string{f.Date, f.From, f.To} {
		if d != "" && !dateutil.ValidDate(d) {
			return nil, 0, apperr.Validation("invalid date %q: expected YYYY-MM-DD", d)
		}
	}
	if f.Direction != "" && !ValidDirection(f.Direction) {
		return nil, 0, apperr.Validation("unknown direction %q", f.Direction)
	}
	if f.PaymentMethod != "" && !ValidPaymentMethod(f.PaymentMethod) {
		return nil, 0, apperr.Validation("unknown payment_method %q", f.PaymentMethod)
	}
	items, total, err := s.repo.List(ctx, owner, f, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) Update(ctx context.Context, owner, id uuid.UUID, patch Patch) (*Movement, error) {
	current, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	m := *current
	patch.apply(&m)
	if err := s.validate(ctx, &m); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &m); err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("movement")
		}
		return nil, apperr.Internal(err)
	}
	s.record(ctx, owner, "update", &m)
	return &m, nil
}

func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	m, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, owner, id); err != nil {
		if db.IsNoRows(err) {
			return apperr.NotFound("movement")
		}
		return apperr.Internal(err)
	}
	s.record(ctx, owner, "delete", m)
	return nil
}

// Range returns the owner's movements between two dates inclusive.
func (s *Service) Range(ctx context.Context, owner uuid.UUID, from, to string) ([]*Movement, error) {
	items, err := s.repo.ListRange(ctx, owner, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

// Recent returns the owner's n most recently recorded movements.
func (s *Service) Recent(ctx context.Context, owner uuid.UUID, n int) ([]*Movement, error) {
	items, err := s.repo.ListRecent(ctx, owner, n)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

// Balance is the diurnal balance for one date.
type Balance struct {
	Date   string `json:"date"`
	Totals Totals `json:"totals"`
}

func (s *Service) BalanceByDate(ctx context.Context, owner uuid.UUID, date string) (*Balance, error) {
	if !dateutil.ValidDate(date) {
		return nil, apperr.Validation("invalid date %q: expected YYYY-MM-DD", date)
	}
	items, err := s.Range(ctx, owner, date, date)
	if err != nil {
		return nil, err
	}
	totals, err := Summarize(items)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Balance{Date: date, Totals: totals}, nil
}

type History struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Totals Totals      `json:"totals"`
	Days   []DayBucket `json:"days"`
}

// History rolls up the owner's movements per day between from and to. An
// empty from defaults to six days before to, and an empty to to today.
func (s *Service) History(ctx context.Context, owner uuid.UUID, from, to string) (*History, error) {
	if to == "" {
		to = s.zone.Today()
	}
	if from == "" {
		var err error
		if from, err = s.zone.AddDays(to, -6); err != nil {
			return nil, apperr.Validation("%s", err.Error())
		}
	}
	dates, err := s.zone.DatesBetween(from, to)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}
	if len(dates) > MaxHistoryDays {
		return nil, apperr.Validation("range cannot exceed %d days", MaxHistoryDays)
	}
	items, err := s.Range(ctx, owner, from, to)
	if err != nil {
		return nil, err
	}
	totals, err := Summarize(items)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	days, err := DailyBuckets(s.zone, items, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &History{From: from, To: to, Totals: totals, Days: days}, nil
}

// Weekly is History over the seven days ending today.
func (s *Service) Weekly(ctx context.Context, owner uuid.UUID) (*History, error) {
	return s.History(ctx, owner, "", "")
}
