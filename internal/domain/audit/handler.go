package audit

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/pkg/pagination"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/pkg/response"
)

type Handler struct {
	svc  *Service
	zone *dateutil.Zone
}

func NewHandler(svc *Service, zone *dateutil.Zone) *Handler {
	return &Handler{svc: svc, zone: zone}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/audit", auth.RequireRole(auth.RoleStaff))
	g.POST("", h.Create)
	g.GET("", h.List)
}

type createRequest struct {
	Action      string                 `json:"action"`
	Description string                 `json:"description"`
	EntityType  *string                `json:"entity_type"`
	EntityID    *uuid.UUID             `json:"entity_id"`
	Metadata    map[string]interface{} `json:"metadata"`
}

func (h *Handler) Create(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	e := &Entry{
		OwnerID:     owner,
		Action:      req.Action,
		Description: req.Description,
		EntityType:  req.EntityType,
		EntityID:    req.EntityID,
		Metadata:    req.Metadata,
	}
	if err := h.svc.Create(ctx, e); err != nil {
		return err
	}
	return response.Created(c, "audit entry recorded", e)
}

func (h *Handler) List(c echo.Context) error {
	ctx := c.Request().Context()
	owner, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}

	f := Filter{
		Action:     c.QueryParam("action"),
		EntityType: c.QueryParam("entity_type"),
	}
	if v := c.QueryParam("entity_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return apperr.Validation("invalid entity_id")
		}
		f.EntityID = &id
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := h.zone.ParseDate(v)
		if err != nil {
			return apperr.Validation("invalid from: %v", err)
		}
		f.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := h.zone.ParseDate(v)
		if err != nil {
			return apperr.Validation("invalid to: %v", err)
		}
		end := t.AddDate(0, 0, 1)
		f.To = &end
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(ctx, owner, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, "audit entries", total, pg))
}
