package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/velmark/soundwave/internal/jwtmiddleware"
	"github.com/velmark/soundwave/internal/mediastore"
	"github.com/velmark/soundwave/internal/service/users"
)

type UserHandler struct {
	Users *users.Service
	Media mediastore.Store
}

func (h *UserHandler) Current(c echo.Context) error {
	claims := jwtmiddleware.CurrentClaims(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	user, err := h.Users.GetCurrentUser(c.Request().Context(), claims.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) GetAll(c echo.Context) error {
	all, err := h.Users.GetAll(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, all)
}

func (h *UserHandler) Update(c echo.Context) error {
	claims := jwtmiddleware.CurrentClaims(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	var req struct {
		Username *string `json:"username"`
		Password *string `json:"password"`
		Email    *string `json:"email"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, msg, err := h.Users.Update(c.Request().Context(), claims.UserID, users.UpdateParams{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
	})
	if err != nil {
		return httpError(err)
	}
	if msg != "" {
		return c.JSON(http.StatusOK, messageResponse{Message: msg})
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid user id")
	}

	msg, err := h.Users.Delete(c.Request().Context(), uint(id), jwtmiddleware.CurrentClaims(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, messageResponse{Message: msg})
}

func (h *UserHandler) UploadProfileImage(c echo.Context) error {
	claims := jwtmiddleware.CurrentClaims(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	fh, err := c.FormFile("profile-image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "profile image file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer f.Close()

	res, err := h.Media.Upload(c.Request().Context(), f, fh.Filename, mediastore.KindImage)
	if err != nil {
		return httpError(err)
	}

	user, err := h.Users.SetProfileImage(c.Request().Context(), claims.UserID, res.SecureURL)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}

func (h *UserHandler) RemoveProfileImage(c echo.Context) error {
	claims := jwtmiddleware.CurrentClaims(c)
	if claims == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	user, err := h.Users.RemoveProfileImage(c.Request().Context(), claims.UserID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, user)
}
