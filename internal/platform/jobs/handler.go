package jobs

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/pkg/response"
)

// Handler exposes job status and manual triggering to administrators. Manual
// runs are detached from the request and reported through the job status.
type Handler struct {
	runner *Runner
}

func NewHandler(runner *Runner) *Handler {
	return &Handler{runner: runner}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := api.Group("/jobs", auth.RequireRole(auth.RoleAdmin))
	admin.GET("", h.List)
	admin.POST("/:name/run", h.Run)
	admin.POST("/:name/start", h.Start)
	admin.POST("/:name/stop", h.Stop)
}

func (h *Handler) List(c echo.Context) error {
	return response.OK(c, "jobs", h.runner.Status())
}

func (h *Handler) Run(c echo.Context) error {
	name := c.Param("name")
	if err := h.runner.Trigger(name); err != nil {
		return jobError(name, err)
	}
	return response.Accepted(c, "job triggered", map[string]string{"name": name})
}

func (h *Handler) Start(c echo.Context) error {
	name := c.Param("name")
	if err := h.runner.Start(name); err != nil {
		return jobError(name, err)
	}
	return response.OK(c, "job started", map[string]string{"name": name})
}

func (h *Handler) Stop(c echo.Context) error {
	name := c.Param("name")
	if err := h.runner.Stop(name); err != nil {
		return jobError(name, err)
	}
	return response.OK(c, "job stopped", map[string]string{"name": name})
}

func jobError(name string, err error) error {
	switch {
	case errors.Is(err, ErrUnknownJob):
		return apperr.NotFound("job " + name)
	case errors.Is(err, ErrJobBusy):
		return apperr.Conflict("JOB_BUSY", "job is already executing")
	default:
		return apperr.Internal(err)
	}
}
