package user

import (
	"github.com/labstack/echo/v4"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the auth endpoints. /auth/login is public through the
// JWT skipper; every other route needs a valid token.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	a := api.Group("/auth")
	a.POST("/login", h.Login)
	a.POST("/logout", h.Logout)
	a.GET("/profile", h.GetProfile)
	a.PUT("/profile", h.UpdateProfile)
	a.PUT("/password", h.ChangePassword)

	admin := api.Group("/users", auth.RequireRole(auth.RoleAdmin))
	admin.POST("", h.Create)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	res, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return response.OK(c, "login successful", res)
}

func (h *Handler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	if err := h.svc.Logout(ctx, auth.ClaimsFromContext(ctx)); err != nil {
		return err
	}
	return response.OK(c, "logged out", nil)
}

func (h *Handler) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	u, err := h.svc.Profile(ctx, id)
	if err != nil {
		return err
	}
	return response.OK(c, "profile", u)
}

func (h *Handler) UpdateProfile(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	var patch ProfilePatch
	if err := c.Bind(&patch); err != nil {
		return apperr.Validation("invalid request body")
	}
	u, err := h.svc.UpdateProfile(ctx, id, patch)
	if err != nil {
		return err
	}
	return response.OK(c, "profile updated", u)
}

func (h *Handler) ChangePassword(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := auth.RequireUser(ctx)
	if err != nil {
		return err
	}
	var req PasswordChange
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := h.svc.ChangePassword(ctx, id, req); err != nil {
		return err
	}
	return response.OK(c, "password changed", nil)
}

func (h *Handler) Create(c echo.Context) error {
	var req NewUser
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	u, err := h.svc.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return response.Created(c, "user created", u)
}
