package financial

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
	g := api.Group("/movements", auth.RequireRole(auth.RoleStaff))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/balance/:date", h.Balance)
	g.GET("/history", h.History)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
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
	var m Movement
	if err := c.Bind(&m); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.Create(ctx, owner, &m); err != nil {
		return err
	}
	return response.Created(c, "movement created", m)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := Filter{
		Date:          c.QueryParam("date"),
		From:          c.QueryParam("from"),
		To:            c.QueryParam("to"),
		Direction:     c.QueryParam("direction"),
		Category:      c.QueryParam("category"),
		PaymentMethod: c.QueryParam("payment_method"),
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
	return c.JSON(http.StatusOK, pagination.NewResponse(items, "movements", total, pg))
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
	m, err := h.svc.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	return response.OK(c, "movement", m)
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
	m, err := h.svc.Update(ctx, owner, id, patch)
	if err != nil {
		return err
	}
	return response.OK(c, "movement updated", m)
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
	return response.OK(c, "movement deleted", nil)
}

func (h *Handler) Balance(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	b, err := h.svc.BalanceByDate(ctx, owner, c.Param("date"))
	if err != nil {
		return err
	}
	return response.OK(c, "balance", b)
}

func (h *Handler) History(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	hist, err := h.svc.History(ctx, owner, c.QueryParam("from"), c.QueryParam("to"))
	if err != nil {
		return err
	}
	return response.OK(c, "history", hist)
}
