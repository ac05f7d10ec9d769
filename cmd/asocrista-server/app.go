package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/config"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/appointment"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/audit"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/dashboard"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/financial"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/patient"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/report"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/user"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/jobs"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/blobstore"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
	sched "github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/jobs"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/notification"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/render"
)

// newLogger picks the log format from the configured environment. Development
// logs to the console and warns that error responses include internal detail.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if !cfg.IsDev() {
		return zerolog.New(out).With().Timestamp().Logger()
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	logger.Warn().Msg("ENV=development; error responses expose internal details, set ENV=production for deployments")
	return logger
}

// loadConfig reads and validates the configuration.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// app holds every wired component. The serve command and the CLI
// subcommands share it so both run the same code paths.
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	zone   *dateutil.Zone
	pool   *pgxpool.Pool

	redis    *redis.Client
	denylist auth.Denylist
	issuer   *auth.Issuer
	recorder *audit.Recorder
	store    blobstore.Store

	auditSvc     *audit.Service
	users        *user.Service
	patients     *patient.Service
	appointments *appointment.Service
	movements    *financial.Service
	dashboard    *dashboard.Service
	reports      *report.Service

	runner    *sched.Runner
	daily     *jobs.DailyReport
	reminders *jobs.Reminders
	cleanup   *jobs.Cleanup
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	zone, err := dateutil.NewZone(cfg.TimeZone)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, zone: zone}

	a.pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns, cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info().Str("timezone", cfg.TimeZone).Msg("connected to database")

	if cfg.RedisURL != "" {
		a.redis, err = auth.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.pool.Close()
			return nil, err
		}
		a.denylist = auth.NewRedisDenylist(a.redis)
		logger.Info().Msg("token denylist backed by redis")
	} else {
		a.denylist = auth.NewMemoryDenylist()
		logger.Warn().Msg("REDIS_URL not set, token revocations are kept in memory")
	}

	a.store, err = newStore(ctx, cfg)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	// Audit trail
	auditRepo := audit.NewRepoPG(a.pool)
	a.auditSvc = audit.NewService(auditRepo)
	a.recorder = audit.NewRecorder(auditRepo, logger, 0)

	// Domain services
	a.issuer = auth.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTTTL)
	a.users = user.NewService(user.NewRepoPG(a.pool), a.issuer, a.denylist, a.recorder)
	a.patients = patient.NewService(patient.NewRepoPG(a.pool), zone, a.recorder)
	a.appointments = appointment.NewService(appointment.NewRepoPG(a.pool), a.patients, db.NewTxRunner(a.pool), zone, a.recorder)
	a.movements = financial.NewService(financial.NewRepoPG(a.pool), a.patients, a.appointments, zone, a.recorder)
	a.dashboard = dashboard.NewService(a.patients, a.appointments, a.movements, zone)

	reportRepo := report.NewRepoPG(a.pool)
	builder := report.NewBuilder(reportRepo, a.appointments, a.movements, render.NewPDF(), a.store, zone)
	a.reports = report.NewService(builder, reportRepo, a.store, a.users, zone, a.recorder)

	// Scheduled jobs
	var sender notification.EmailSender = notification.NoopSender{}
	if cfg.SMTPConfigured() {
		sender = notification.NewSMTPSender(notification.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		logger.Warn().Msg("SMTP_HOST not set, daily reports will not be emailed")
	}
	a.daily = jobs.NewDailyReport(a.users, a.reports, sender, notification.NewTemplateEngine(), zone, jobs.DailyReportConfig{
		Recipients:  cfg.ReportRecipients,
		UserTimeout: cfg.ReportUserTimeout,
	}, logger)
	a.reminders = jobs.NewReminders(a.users, a.appointments, zone, logger)
	a.cleanup = jobs.NewCleanup(a.store, zone, cfg.ReportRetentionDays, logger)

	a.runner = sched.NewRunner(zone.Location(), logger)
	err = jobs.Register(a.runner, jobs.Schedules{
		Report:   cfg.ReportCron,
		Reminder: cfg.ReminderCron,
		Cleanup:  cfg.CleanupCron,
	}, a.daily, a.reminders, a.cleanup)
	if err != nil {
		a.Close(ctx)
		return nil, err
	}

	return a, nil
}

// newStore picks Cloud Storage when a bucket is configured and the local
// report directory otherwise.
func newStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if cfg.GCSBucket != "" {
		return blobstore.NewGCSStore(ctx, cfg.GCSBucket, "reports", cfg.GCSCredentialsFile)
	}
	return blobstore.NewLocalStore(cfg.ReportDir)
}

// Close stops the jobs, drains pending audit writes and releases
// connections.
func (a *app) Close(ctx context.Context) {
	if a.runner != nil {
		if err := a.runner.StopAll(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("jobs did not stop in time")
		}
	}
	if a.recorder != nil {
		if err := a.recorder.Close(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("audit queue not drained")
		}
	}
	if c, ok := a.store.(io.Closer); ok {
		c.Close()
	}
	if d, ok := a.denylist.(*auth.MemoryDenylist); ok {
		d.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
