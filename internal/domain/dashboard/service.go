// Package dashboard computes the read-only overview shown on the home
// screen. Nothing here is persisted; every figure is derived on request.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/appointment"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/financial"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
)

const (
	UpcomingDays   = 7
	UpcomingLimit  = 10
	RecentLimit    = 5
	UpcomingWindow = 2 * time.Hour
)

const (
	AlertUpcoming        = "upcoming"
	AlertPending         = "pending"
	AlertNegativeBalance = "negative_balance"
)

type PatientCounter interface {
	CountActive(ctx context.Context) (int, error)
}

type AppointmentSource interface {
	ListRange(ctx context.Context, owner uuid.UUID, from, to string) ([]*appointment.Appointment, error)
}

type MovementSource interface {
	Range(ctx context.Context, owner uuid.UUID, from, to string) ([]*financial.Movement, error)
	Recent(ctx context.Context, owner uuid.UUID, n int) ([]*financial.Movement, error)
}

type Alert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

type Today struct {
	Date         string                     `json:"date"`
	Appointments []*appointment.Appointment `json:"appointments"`
	ByStatus     map[string]int             `json:"by_status"`
}

type Summary struct {
	ActivePatients  int                        `json:"active_patients"`
	Today           Today                      `json:"today"`
	FinanceToday    financial.Totals           `json:"finance_today"`
	Upcoming        []*appointment.Appointment `json:"upcoming"`
	RecentMovements []*financial.Movement      `json:"recent_movements"`
	Alerts          []Alert                    `json:"alerts"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}

type Service struct {
	patients     PatientCounter
	appointments AppointmentSource
	movements    MovementSource
	zone         *dateutil.Zone
}

func NewService(patients PatientCounter, appointments AppointmentSource, movements MovementSource, zone *dateutil.Zone) *Service {
	return &Service{patients: patients, appointments: appointments, movements: movements, zone: zone}
}

func countByStatus(items []*appointment.Appointment) map[string]int {
	counts := make(map[string]int, len(appointment.Statuses))
	for _, s := range appointment.Statuses {
		counts[s] = 0
	}
	for _, a := range items {
		counts[a.Status]++
	}
	return counts
}

func (s *Service) Summary(ctx context.Context, owner uuid.UUID) (*Summary, error) {
	now := s.zone.Now()
	today := s.zone.DateOf(now)
	tomorrow, err := s.zone.AddDays(today, 1)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	horizon, err := s.zone.AddDays(today, UpcomingDays)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	active, err := s.patients.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.ListRange(ctx, owner, today, horizon)
	if err != nil {
		return nil, err
	}
	todayMovements, err := s.movements.Range(ctx, owner, today, today)
	if err != nil {
		return nil, err
	}
	finance, err := financial.Summarize(todayMovements)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	recent, err := s.movements.Recent(ctx, owner, RecentLimit)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		ActivePatients:  active,
		Today:           Today{Date: today, Appointments: []*appointment.Appointment{}},
		FinanceToday:    finance,
		Upcoming:        []*appointment.Appointment{},
		RecentMovements: recent,
		Alerts:          []Alert{},
		GeneratedAt:     now,
	}
	if sum.RecentMovements == nil {
		sum.RecentMovements = []*financial.Movement{}
	}

	var soon, pending int
	for _, a := range appts {
		if a.Date == today {
			sum.Today.Appointments = append(sum.Today.Appointments, a)
			if a.Status == appointment.StatusScheduled || a.Status == appointment.StatusInProgress {
				pending++
			}
		}
		if a.Status == appointment.StatusCancelled {
			continue
		}
		if a.Date >= tomorrow && len(sum.Upcoming) < UpcomingLimit {
			sum.Upcoming = append(sum.Upcoming, a)
		}
		if a.Date == today || a.Date == tomorrow {
			start, err := s.zone.At(a.Date, a.StartTime)
			if err != nil {
				continue
			}
			if !start.Before(now) && !start.After(now.Add(UpcomingWindow)) {
				soon++
			}
		}
	}
	sum.Today.ByStatus = countByStatus(sum.Today.Appointments)

	if soon > 0 {
		sum.Alerts = append(sum.Alerts, Alert{
			Type:    AlertUpcoming,
			Message: fmt.Sprintf("%d appointment(s) start within the next %d hours", soon, int(UpcomingWindow.Hours())),
			Count:   soon,
		})
	}
	if pending > 0 {
		sum.Alerts = append(sum.Alerts, Alert{
			Type:    AlertPending,
			Message: fmt.Sprintf("%d appointment(s) today are still open", pending),
			Count:   pending,
		})
	}
	if finance.Balance.IsNegative() {
		sum.Alerts = append(sum.Alerts, Alert{
			Type:    AlertNegativeBalance,
			Message: "today's balance is negative: " + finance.Balance.StringFixed(2),
			Count:   1,
		})
	}
	return sum, nil
}

var periodDays = map[string]int{
	"week":  7,
	"month": 30,
	"year":  365,
}

type Stats struct {
	Period           string                `json:"period"`
	From             string                `json:"from"`
	To               string                `json:"to"`
	Appointments     int                   `json:"appointments"`
	ByStatus         map[string]int        `json:"by_status"`
	ByCategory       map[string]int        `json:"by_category"`
	DistinctPatients int                   `json:"distinct_patients"`
	Finance          financial.Totals      `json:"finance"`
	Days             []financial.DayBucket `json:"days"`
}

// Stats aggregates the period ending today. period is week, month or year;
// empty means week.
func (s *Service) Stats(ctx context.Context, owner uuid.UUID, period string) (*Stats, error) {
	if period == "" {
		period = "week"
	}
	days, ok := periodDays[period]
	if !ok {
		return nil, apperr.Validation("period must be week, month or year")
	}
	to := s.zone.Today()
	from, err := s.zone.AddDays(to, -(days - 1))
	if err != nil {
		return nil, apperr.Internal(err)
	}

	appts, err := s.appointments.ListRange(ctx, owner, from, to)
	if err != nil {
		return nil, err
	}
	movements, err := s.movements.Range(ctx, owner, from, to)
	if err != nil {
		return nil, err
	}
	totals, err := financial.Summarize(movements)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	buckets, err := financial.DailyBuckets(s.zone, movements, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	st := &Stats{
		Period:       period,
		From:         from,
		To:           to,
		Appointments: len(appts),
		ByStatus:     countByStatus(appts),
		ByCategory:   make(map[string]int, len(appointment.Categories)),
		Finance:      totals,
		Days:         buckets,
	}
	for _, c := range appointment.Categories {
		st.ByCategory[c] = 0
	}
	patients := make(map[uuid.UUID]struct{})
	for _, a := range appts {
		st.ByCategory[a.Category]++
		if a.Status != appointment.StatusCancelled && a.Status != appointment.StatusNoShow {
			patients[a.PatientID] = struct{}{}
		}
	}
	st.DistinctPatients = len(patients)
	return st, nil
}
