// Package handlers is the HTTP boundary: request binding, authorization
// gating and mapping of workflow errors onto status codes.
package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/velmark/soundwave/internal/mediastore"
	"github.com/velmark/soundwave/internal/repository"
	"github.com/velmark/soundwave/internal/service/songs"
	"github.com/velmark/soundwave/internal/service/users"
)

type messageResponse struct {
	Message string `json:"message"`
}

// httpError maps workflow errors to the API error taxonomy. Upstream
// provider failures surface as a generic 502 so provider internals never
// reach the client.
func httpError(err error) error {
	switch {
	case errors.Is(err, users.ErrEmailTaken):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, users.ErrInvalidCredentials):
		return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	case errors.Is(err, users.ErrNotVerified),
		errors.Is(err, users.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, users.ErrNoVerificationToken),
		errors.Is(err, users.ErrNoResetToken),
		errors.Is(err, songs.ErrNotFound),
		errors.Is(err, repository.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, users.ErrInvalidVerification),
		errors.Is(err, users.ErrInvalidResetToken),
		errors.Is(err, users.ErrNoProfileImage),
		errors.Is(err, mediastore.ErrUnsupportedType),
		errors.Is(err, mediastore.ErrMalformedURL):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, mediastore.ErrUpstream):
		return echo.NewHTTPError(http.StatusBadGateway, "upstream service failure")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
