package appointment

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/pkg/pagination"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/appointments", auth.RequireRole(auth.RoleStaff))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/day/:date", h.ListByDay)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PATCH("/:id/status", h.ChangeStatus)
	g.DELETE("/:id", h.Delete)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid id")
	}
	return id, nil
}

func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.Create(ctx, owner, &a); err != nil {
		return err
	}
	return response.Created(c, "appointment created", a)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := Filter{
		Date:     c.QueryParam("date"),
		From:     c.QueryParam("from"),
		To:       c.QueryParam("to"),
		Status:   c.QueryParam("status"),
		Category: c.QueryParam("category"),
	}
	if v := c.QueryParam("patient_id"); v != "" {
		pid, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid patient_id")
		}
		f.PatientID = &pid
	}
	items, total, err := h.svc.List(ctx, owner, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, "appointments", total, pg))
}

func (h *Handler) ListByDay(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	items, err := h.svc.ListByDay(ctx, owner, c.Param("date"))
	if err != nil {
		return err
	}
	if items == nil {
		items = []*Appointment{}
	}
	return response.OK(c, "appointments for "+c.Param("date"), items)
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	return response.OK(c, "appointment", a)
}

func (h *Handler) Update(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var patch Patch
	if err := c.Bind(&patch); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.Update(ctx, owner, id, patch)
	if err != nil {
		return err
	}
	return response.OK(c, "appointment updated", a)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	a, err := h.svc.ChangeStatus(ctx, owner, id, req.Status)
	if err != nil {
		return err
	}
	return response.OK(c, "appointment status updated", a)
}

func (h *Handler) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(ctx, owner, id); err != nil {
		return err
	}
	return response.OK(c, "appointment deleted", nil)
}
