package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/appointment"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/audit"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/dashboard"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/financial"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/patient"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/report"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/user"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
	sched "github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/jobs"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/middleware"
)

const version = "1.0.0"

// newEcho builds the HTTP surface: global middleware, the JWT gate and every
// domain route under /api/v1.
func newEcho(a *app) *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(a.logger, cfg.IsDev())

	// Global middleware
	e.Use(middleware.Recovery(a.logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(a.logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth middleware
	e.Use(auth.JWTMiddleware(auth.JWTConfig{
		SigningKey: []byte(cfg.JWTSecret),
		Users:      a.users,
		Denylist:   a.denylist,
		Skipper:    auth.AuthSkipper,
	}))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(a.pool))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))

	user.NewHandler(a.users).RegisterRoutes(apiV1)
	patient.NewHandler(a.patients).RegisterRoutes(apiV1)
	appointment.NewHandler(a.appointments).RegisterRoutes(apiV1)
	financial.NewHandler(a.movements).RegisterRoutes(apiV1)
	dashboard.NewHandler(a.dashboard).RegisterRoutes(apiV1)
	report.NewHandler(a.reports).RegisterRoutes(apiV1)
	audit.NewHandler(a.auditSvc, a.zone).RegisterRoutes(apiV1)
	sched.NewHandler(a.runner).RegisterRoutes(apiV1)

	return e
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	ctx := context.Background()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}

	e := newEcho(a)

	if a.cfg.JobsEnabled {
		a.runner.StartAll()
		for _, st := range a.runner.Status() {
			ev := logger.Info().Str("job", st.Name).Str("schedule", st.Schedule)
			if st.NextRun != nil {
				ev = ev.Time("next_run", *st.NextRun)
			}
			ev.Msg("job enabled")
		}
	} else {
		logger.Info().Msg("JOBS_ENABLED=false, scheduled jobs are registered but stopped")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + a.cfg.Port
		logger.Info().Str("addr", addr).Str("env", a.cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
	}
	a.Close(shutdownCtx)
	logger.Info().Msg("server stopped")
	return nil
}

