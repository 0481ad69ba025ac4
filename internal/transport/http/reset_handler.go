package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hellotrader/ops-api/internal/service"
	"github.com/hellotrader/ops-api/internal/util"
)

const resetRequestedMessage = "If the email exists, a reset code has been sent"

// RegisterReset wires the three-step transaction-password reset flow. All
// endpoints are public: the caller is by definition locked out of their
// credential.
func RegisterReset(e *echo.Echo, resets *service.ResetService) {
	h := &resetHandler{resets: resets}
	g := e.Group("/v1/transaction-password")
	g.POST("/request-reset", h.requestReset)
	g.POST("/verify-otp", h.verifyOTP)
	g.POST("/reset", h.commitReset)
}

type resetHandler struct {
	resets *service.ResetService
}

func (h *resetHandler) requestReset(c echo.Context) error {
	var req ResetRequestBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}

	userID, err := h.resets.RequestReset(c.Request().Context(), req.Email, c.RealIP())
	if err != nil {
		return resetError(c, err)
	}

	resp := ResetRequestResponse{Message: resetRequestedMessage}
	if userID != nil {
		id := userID.String()
		resp.UserID = &id
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *resetHandler) verifyOTP(c echo.Context) error {
	var req VerifyOTPBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid or expired reset code"))
	}

	token, err := h.resets.VerifyCode(c.Request().Context(), userID, req.OTP, c.RealIP())
	if err != nil {
		return resetError(c, err)
	}
	return c.JSON(http.StatusOK, VerifyOTPResponse{Message: "Code verified", ResetToken: token})
}

func (h *resetHandler) commitReset(c echo.Context) error {
	var req CommitResetBody
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid request body"))
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("invalid or expired reset code"))
	}

	if err := h.resets.CommitReset(c.Request().Context(), userID, req.ResetToken, req.NewPassword); err != nil {
		return resetError(c, err)
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Transaction password updated"})
}

// resetError maps service errors onto the wire. Validation failures carry a
// field-level message; every challenge mismatch shares one generic body so the
// response never reveals which precondition failed.
func resetError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrInvalidOTP),
		errors.Is(err, util.ErrPasswordTooShort):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrInvalidOrExpired):
		return c.JSON(http.StatusBadRequest, util.Error("invalid or expired reset code"))
	case errors.Is(err, service.ErrRateLimited):
		return c.JSON(http.StatusTooManyRequests, util.Error("too many attempts, try again later"))
	default:
		c.Logger().Errorf("reset: %v", err)
		return c.JSON(http.StatusInternalServerError, util.Error("internal error"))
	}
}
