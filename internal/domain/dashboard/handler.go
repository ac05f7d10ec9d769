package dashboard

import (
	"github.com/labstack/echo/v4"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/dashboard", auth.RequireRole(auth.RoleStaff))
	g.GET("/summary", h.Summary)
	g.GET("/stats", h.Stats)
}

func (h *Handler) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	sum, err := h.svc.Summary(ctx, owner)
	if err != nil {
		return err
	}
	return response.OK(c, "dashboard summary", sum)
}

func (h *Handler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	st, err := h.svc.Stats(ctx, owner, c.QueryParam("period"))
	if err != nil {
		return err
	}
	return response.OK(c, "dashboard stats", st)
}
