package report

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
	g := api.Group("/reports", auth.RequireRole(auth.RoleStaff))
	g.POST("/generate", h.Generate)
	g.GET("", h.List)
	g.GET("/date/:date", h.GetByDate)
	g.GET("/:id", h.Get)
	g.GET("/:id/download", h.Download)
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid id")
	}
	return id, nil
}

type generateRequest struct {
	Date string `json:"date"`
}

func (h *Handler) Generate(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	var req generateRequest
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return apperr.Validation("invalid request body")
		}
	}
	rep, data, err := h.svc.Generate(ctx, owner, req.Date)
	if err != nil {
		return err
	}
	return response.Created(c, "report generated", map[string]interface{}{
		"report": rep,
		"stats":  data.Stats,
	})
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := ListFilter{From: c.QueryParam("from"), To: c.QueryParam("to")}
	items, total, err := h.svc.List(ctx, owner, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, "reports", total, pg))
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
	rep, err := h.svc.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	return response.OK(c, "report", rep)
}

func (h *Handler) GetByDate(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	rep, err := h.svc.GetByDate(ctx, owner, c.Param("date"))
	if err != nil {
		return err
	}
	return response.OK(c, "report", rep)
}

func (h *Handler) Download(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	rc, name, err := h.svc.Download(ctx, owner, id)
	if err != nil {
		return err
	}
	defer rc.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`"`)
	return c.Stream(http.StatusOK, "application/pdf", rc)
}
