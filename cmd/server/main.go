package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/velmark/soundwave/internal/config"
	"github.com/velmark/soundwave/internal/es"
	"github.com/velmark/soundwave/internal/handlers"
	"github.com/velmark/soundwave/internal/logging"
	"github.com/velmark/soundwave/internal/mediastore"
	"github.com/velmark/soundwave/internal/mykafka"
	"github.com/velmark/soundwave/internal/notify"
	"github.com/velmark/soundwave/internal/oauth"
	"github.com/velmark/soundwave/internal/repository"
	"github.com/velmark/soundwave/internal/service/songs"
	"github.com/velmark/soundwave/internal/service/users"
	"github.com/velmark/soundwave/internal/tokens"
	httpserver "github.com/velmark/soundwave/internal/transport/http"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(cfg.LOG_LEVEL)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	esClient, err := es.NewClient(cfg)
	if err != nil {
		log.Fatalf("elasticsearch init error: %v", err)
	}
	songIndex := es.NewSongIndex(esClient, "songs")

	producer := mykafka.NewProducer([]string{cfg.KAFKA_ADDRESS})

	media := mediastore.NewClient(cfg.MEDIA_CLOUD, cfg.MEDIA_API_KEY, cfg.MEDIA_API_SECRET)
	mailer := notify.NewEmailMailer(notify.SMTPConfig{
		Host:     cfg.SMTP_HOST,
		Port:     cfg.SMTP_PORT,
		User:     cfg.SMTP_USER,
		Password: cfg.SMTP_PASSWORD,
		From:     cfg.MAIL_FROM,
	})
	google := oauth.NewGoogleClient(cfg.GOOGLE_CLIENT_ID, cfg.GOOGLE_CLIENT_SECRET, cfg.GOOGLE_REDIRECT_URL)

	tokenManager := tokens.NewManager(
		[]byte(cfg.JWT_SECRET),
		time.Duration(cfg.TOKEN_TTL_DAYS)*24*time.Hour,
	)

	userService := &users.Service{
		Repo:      &repository.UserRepo{DB: db},
		Tokens:    tokenManager,
		Mail:      mailer,
		Media:     media,
		Events:    producer,
		PublicURL: cfg.PUBLIC_URL,
	}
	songService := &songs.Service{
		Repo:   &repository.SongRepo{DB: db},
		Media:  media,
		Index:  songIndex,
		Events: producer,
	}

	e := echo.New()
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := logging.IntoContext(c.Request().Context(), logger)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		JWTSecret:     []byte(cfg.JWT_SECRET),
		AuthHandler:   &handlers.AuthHandler{Users: userService},
		UserHandler:   &handlers.UserHandler{Users: userService, Media: media},
		SongHandler:   &handlers.SongHandler{Songs: songService, Media: media},
		SearchHandler: &handlers.SearchHandler{Index: songIndex},
		GoogleHandler: &handlers.GoogleHandler{Users: userService, Google: google},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":" + cfg.PORT,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("http server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("db close error: %v", err)
		}
	}

	if err := producer.Close(); err != nil {
		log.Printf("kafka close error: %v", err)
	}

	log.Println("shutdown complete")
}
