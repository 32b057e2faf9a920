package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/velmark/soundwave/internal/oauth"
	"github.com/velmark/soundwave/internal/service/users"
)

const stateCookie = "oauth_state"

type GoogleHandler struct {
	Users  *users.Service
	Google *oauth.GoogleClient
}

// Login redirects to the provider consent screen with a CSRF state cookie.
func (h *GoogleHandler) Login(c echo.Context) error {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	state := hex.EncodeToString(buf)

	c.SetCookie(&http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.Google.AuthCodeURL(state))
}

func (h *GoogleHandler) Callback(c echo.Context) error {
	cookie, err := c.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid oauth state")
	}

	profile, err := h.Google.Exchange(c.Request().Context(), c.QueryParam("code"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "oauth exchange failure")
	}

	user, token, err := h.Users.HandleGoogleLogin(c.Request().Context(), profile)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": token, "user": user})
}
