package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/velmark/soundwave/internal/service/users"
)

type AuthHandler struct {
	Users *users.Service
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	msg, err := h.Users.Register(c.Request().Context(), req.Username, req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, messageResponse{Message: msg})
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, err := h.Users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": token})
}

func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	msg, err := h.Users.VerifyEmail(c.Request().Context(), uint(id), c.Param("token"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	msg, err := h.Users.SendResetPassword(c.Request().Context(), req.Email)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

// GetResetPassword validates the emailed link before the client shows the
// reset form.
func (h *AuthHandler) GetResetPassword(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	if err := h.Users.ValidateResetToken(c.Request().Context(), uint(id), c.Param("token")); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "valid reset password link"})
}

func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req struct {
		UserID             uint   `json:"userId"`
		ResetPasswordToken string `json:"resetPasswordToken"`
		NewPassword        string `json:"newPassword"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.NewPassword == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "new password is required")
	}

	msg, err := h.Users.ResetPassword(c.Request().Context(), req.UserID, req.ResetPasswordToken, req.NewPassword)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}
