package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/velmark/soundwave/internal/handlers"
	"github.com/velmark/soundwave/internal/jwtmiddleware"
	"github.com/velmark/soundwave/internal/models"
)

type Deps struct {
	JWTSecret     []byte
	AuthHandler   *handlers.AuthHandler
	UserHandler   *handlers.UserHandler
	SongHandler   *handlers.SongHandler
	SearchHandler *handlers.SearchHandler
	GoogleHandler *handlers.GoogleHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	auth := jwtmiddleware.JWT(d.JWTSecret)

	api := e.Group("/api")

	u := api.Group("/users")
	u.POST("/register", d.AuthHandler.Register)
	u.POST("/login", d.AuthHandler.Login)
	u.GET("/verify-email/:id/:token", d.AuthHandler.VerifyEmail)
	u.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	u.GET("/reset-password/:id/:token", d.AuthHandler.GetResetPassword)
	u.POST("/reset-password", d.AuthHandler.ResetPassword)

	u.GET("/current", d.UserHandler.Current, auth)
	u.GET("", d.UserHandler.GetAll, auth, jwtmiddleware.RequireRoles(models.RoleAdmin))
	u.PATCH("", d.UserHandler.Update, auth)
	u.DELETE("/:id", d.UserHandler.Delete, auth)
	u.POST("/profile-image", d.UserHandler.UploadProfileImage, auth)
	u.DELETE("/profile-image", d.UserHandler.RemoveProfileImage, auth)

	s := api.Group("/songs")
	s.POST("", d.SongHandler.Create, auth,
		jwtmiddleware.RequireRoles(models.RoleAdmin, models.RoleArtist, models.RoleModerator))
	s.GET("", d.SongHandler.GetAll, auth)
	s.GET("/:id", d.SongHandler.GetOne)
	s.PATCH("/:id", d.SongHandler.Patch, auth, jwtmiddleware.RequireRoles(models.RoleAdmin))
	s.DELETE("/:id", d.SongHandler.Delete, auth, jwtmiddleware.RequireRoles(models.RoleAdmin))
	s.PATCH("/:id/image", d.SongHandler.UpdateImage, auth)
	s.PATCH("/:id/audio", d.SongHandler.UpdateAudio, auth)

	api.GET("/search", d.SearchHandler.Search)

	g := api.Group("/auth/google")
	g.GET("/login", d.GoogleHandler.Login)
	g.GET("/callback", d.GoogleHandler.Callback)
}
