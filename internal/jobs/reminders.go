package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/appointment"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
)

type ReminderSource interface {
	ListPendingReminders(ctx context.Context, owner uuid.UUID, date string) ([]*appointment.Appointment, error)
}

// Reminders logs tomorrow's scheduled appointments that have not been
// reminded. It has no persisted side effect.
type Reminders struct {
	users        UserSource
	appointments ReminderSource
	zone         *dateutil.Zone
	logger       zerolog.Logger
}

func NewReminders(users UserSource, appointments ReminderSource, zone *dateutil.Zone, logger zerolog.Logger) *Reminders {
	return &Reminders{
		users:        users,
		appointments: appointments,
		zone:         zone,
		logger:       logger.With().Str("job", ReminderJob).Logger(),
	}
}

// Check returns the number of pending reminders found across all users.
func (r *Reminders) Check(ctx context.Context) (int, error) {
	users, err := r.users.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active users: %w", err)
	}
	date := r.zone.Tomorrow()
	total := 0
	for _, u := range users {
		items, err := r.appointments.ListPendingReminders(ctx, u.ID, date)
		if err != nil {
			r.logger.Error().Err(err).Str("user_id", u.ID.String()).Msg("list pending reminders")
			continue
		}
		for _, a := range items {
			r.logger.Info().
				Str("user_id", u.ID.String()).
				Str("appointment_id", a.ID.String()).
				Str("patient", a.PatientName).
				Str("date", a.Date).
				Str("start", a.StartTime).
				Msg("pending appointment reminder")
		}
		total += len(items)
	}
	r.logger.Debug().Str("date", date).Int("pending", total).Msg("reminder check finished")
	return total, nil
}

func (r *Reminders) Execute(ctx context.Context) error {
	_, err := r.Check(ctx)
	return err
}
