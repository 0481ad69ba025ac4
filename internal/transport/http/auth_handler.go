package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/hellotrader/ops-api/internal/service"
	"github.com/hellotrader/ops-api/internal/util"
)

// RegisterAuth wires the operator login endpoints.
func RegisterAuth(e *echo.Echo, auth *service.AuthService) {
	h := &authHandler{auth: auth}
	g := e.Group("/v1/auth")
	g.POST("/login", h.login)
	g.POST("/google", h.loginWithGoogle)

	authed := g.Group("", RequireAuth(auth))
	authed.GET("/me", h.me)
	authed.POST("/logout", h.logout)
}

type authHandler struct {
	auth *service.AuthService
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type googleLoginRequest struct {
	IDToken string `json:"id_token"`
}

func (h *authHandler) login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	result, err := h.auth.LoginWithEmail(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return authError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       result.User,
	})
}

func (h *authHandler) loginWithGoogle(c echo.Context) error {
	var req googleLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	result, err := h.auth.LoginWithGoogle(c.Request().Context(), req.IDToken)
	if err != nil {
		return authError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"token":      result.Token,
		"expires_at": result.ExpiresAt,
		"user":       result.User,
	})
}

func (h *authHandler) me(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user": user,
		"has_transaction_password": user.HasTransactionPassword(),
	})
}

func (h *authHandler) logout(c echo.Context) error {
	token, _ := c.Get(contextTokenKey).(string)
	if err := h.auth.Logout(c.Request().Context(), token); err != nil {
		return authError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}

func authError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, util.Error("invalid credentials"))
	case errors.Is(err, service.ErrInvalidSession):
		return c.JSON(http.StatusUnauthorized, util.Error("invalid or expired session"))
	default:
		c.Logger().Errorf("auth: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Error("internal error"))
	}
}
