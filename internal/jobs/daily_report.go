// Package jobs holds the bodies of the scheduled tasks: the daily report
// batch, the reminder check and the artifact cleanup.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/report"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/user"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/notification"
)

const DefaultUserTimeout = 2 * time.Minute

type UserSource interface {
	ListActive(ctx context.Context) ([]*user.User, error)
}

type ReportGenerator interface {
	GenerateFor(ctx context.Context, owner report.Owner, date string) (*report.Report, *report.DayData, error)
	MarkSent(ctx context.Context, owner, id uuid.UUID, at time.Time) error
}

// Outcome is the result of the daily report for one user.
type Outcome struct {
	UserID   uuid.UUID `json:"user_id"`
	Email    string    `json:"email"`
	ReportID uuid.UUID `json:"report_id,omitempty"`
	Error    string    `json:"error,omitempty"`
}

type BatchResult struct {
	Date      string    `json:"date"`
	Succeeded []Outcome `json:"succeeded"`
	Failed    []Outcome `json:"failed"`
}

type DailyReportConfig struct {
	// Recipients overrides the owner's own address when non-empty.
	Recipients  []string
	UserTimeout time.Duration
}

// DailyReport generates, delivers and marks the report of every active
// user for the current day.
type DailyReport struct {
	users     UserSource
	reports   ReportGenerator
	sender    notification.EmailSender
	templates *notification.TemplateEngine
	zone      *dateutil.Zone
	cfg       DailyReportConfig
	logger    zerolog.Logger
}

func NewDailyReport(users UserSource, reports ReportGenerator, sender notification.EmailSender, templates *notification.TemplateEngine, zone *dateutil.Zone, cfg DailyReportConfig, logger zerolog.Logger) *DailyReport {
	if cfg.UserTimeout <= 0 {
		cfg.UserTimeout = DefaultUserTimeout
	}
	if templates == nil {
		templates = notification.NewTemplateEngine()
	}
	return &DailyReport{
		users:     users,
		reports:   reports,
		sender:    sender,
		templates: templates,
		zone:      zone,
		cfg:       cfg,
		logger:    logger.With().Str("job", DailyReportJob).Logger(),
	}
}

// Run processes every active user. A failing user is logged and recorded in
// the result; the batch itself only errors when the user list cannot be
// loaded.
func (d *DailyReport) Run(ctx context.Context) (*BatchResult, error) {
	users, err := d.users.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active users: %w", err)
	}
	res := &BatchResult{Date: d.zone.Today(), Succeeded: []Outcome{}, Failed: []Outcome{}}
	d.logger.Info().Str("date", res.Date).Int("users", len(users)).Msg("daily report batch started")

	for _, u := range users {
		if ctx.Err() != nil {
			res.Failed = append(res.Failed, Outcome{UserID: u.ID, Email: u.Email, Error: ctx.Err().Error()})
			continue
		}
		out := d.runOne(ctx, u, res.Date)
		if out.Error != "" {
			d.logger.Error().Str("user_id", u.ID.String()).Str("error", out.Error).Msg("daily report failed")
			res.Failed = append(res.Failed, out)
			continue
		}
		res.Succeeded = append(res.Succeeded, out)
	}

	d.logger.Info().
		Str("date", res.Date).
		Int("succeeded", len(res.Succeeded)).
		Int("failed", len(res.Failed)).
		Msg("daily report batch finished")
	return res, nil
}

func (d *DailyReport) runOne(ctx context.Context, u *user.User, date string) (out Outcome) {
	out = Outcome{UserID: u.ID, Email: u.Email}
	defer func() {
		if rec := recover(); rec != nil {
			out.Error = fmt.Sprintf("panic: %v", rec)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, d.cfg.UserTimeout)
	defer cancel()

	owner := report.Owner{ID: u.ID, Name: u.Name, Email: u.Email}
	rep, data, err := d.reports.GenerateFor(ctx, owner, date)
	if err != nil {
		out.Error = "generate: " + err.Error()
		return out
	}
	out.ReportID = rep.ID

	if err := d.deliver(ctx, owner, data); err != nil {
		out.Error = "deliver: " + err.Error()
		return out
	}
	if err := d.reports.MarkSent(ctx, u.ID, rep.ID, d.zone.Now()); err != nil {
		out.Error = "mark sent: " + err.Error()
	}
	return out
}

func (d *DailyReport) recipients(owner report.Owner) []string {
	if len(d.cfg.Recipients) > 0 {
		return d.cfg.Recipients
	}
	return []string{owner.Email}
}

func (d *DailyReport) deliver(ctx context.Context, owner report.Owner, data *report.DayData) error {
	st := data.Stats
	subject, body, err := d.templates.Render(notification.TemplateDailyReport, map[string]string{
		"name":          owner.Name,
		"date":          data.Date,
		"appointments":  fmt.Sprint(st.TotalAppointments),
		"patients_seen": fmt.Sprint(st.TotalPatients),
		"income":        "Q " + st.Finance.Income.StringFixed(2),
		"expenses":      "Q " + st.Finance.Expenses.StringFixed(2),
		"balance":       "Q " + st.Finance.Balance.StringFixed(2),
	})
	if err != nil {
		return err
	}
	return d.sender.SendEmail(ctx, notification.Email{
		To:          d.recipients(owner),
		Subject:     subject,
		Body:        body,
		Attachments: []notification.Attachment{{Name: data.FileName, Data: data.PDF}},
	})
}

// Execute adapts Run to the runner. Partial failures surface as the job's
// last error.
func (d *DailyReport) Execute(ctx context.Context) error {
	res, err := d.Run(ctx)
	if err != nil {
		return err
	}
	if n := len(res.Failed); n > 0 {
		return fmt.Errorf("%d of %d reports failed", n, n+len(res.Succeeded))
	}
	return nil
}
