package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/velmark/soundwave/internal/models"
)

type Config struct {
	PORT                 string
	LOG_LEVEL            string
	PUBLIC_URL           string
	DB_HOST              string
	DB_PORT              string
	DB_USER              string
	DB_PASSWORD          string
	DB_NAME              string
	JWT_SECRET           string
	TOKEN_TTL_DAYS       int
	ES_URL               string
	ES_USER              string
	ES_PASSWORD          string
	KAFKA_ADDRESS        string
	SMTP_HOST            string
	SMTP_PORT            int
	SMTP_USER            string
	SMTP_PASSWORD        string
	MAIL_FROM            string
	MEDIA_CLOUD          string
	MEDIA_API_KEY        string
	MEDIA_API_SECRET     string
	GOOGLE_CLIENT_ID     string
	GOOGLE_CLIENT_SECRET string
	GOOGLE_REDIRECT_URL  string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	config := &Config{
		PORT:                 getenvDefault("PORT", "8080"),
		LOG_LEVEL:            getenvDefault("LOG_LEVEL", "info"),
		PUBLIC_URL:           getenvDefault("PUBLIC_URL", "http://localhost:8080"),
		DB_HOST:              os.Getenv("DB_HOST"),
		DB_PORT:              os.Getenv("DB_PORT"),
		DB_USER:              os.Getenv("DB_USER"),
		DB_PASSWORD:          os.Getenv("DB_PASSWORD"),
		DB_NAME:              os.Getenv("DB_NAME"),
		JWT_SECRET:           os.Getenv("JWT_SECRET"),
		TOKEN_TTL_DAYS:       getenvInt("TOKEN_TTL_DAYS", 30),
		ES_URL:               os.Getenv("ES_URL"),
		ES_USER:              os.Getenv("ES_USER"),
		ES_PASSWORD:          os.Getenv("ES_PASSWORD"),
		KAFKA_ADDRESS:        os.Getenv("KAFKA_ADDRESS"),
		SMTP_HOST:            os.Getenv("SMTP_HOST"),
		SMTP_PORT:            getenvInt("SMTP_PORT", 587),
		SMTP_USER:            os.Getenv("SMTP_USER"),
		SMTP_PASSWORD:        os.Getenv("SMTP_PASSWORD"),
		MAIL_FROM:            os.Getenv("MAIL_FROM"),
		MEDIA_CLOUD:          os.Getenv("MEDIA_CLOUD"),
		MEDIA_API_KEY:        os.Getenv("MEDIA_API_KEY"),
		MEDIA_API_SECRET:     os.Getenv("MEDIA_API_SECRET"),
		GOOGLE_CLIENT_ID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GOOGLE_CLIENT_SECRET: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GOOGLE_REDIRECT_URL:  os.Getenv("GOOGLE_REDIRECT_URL"),
	}

	return config, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DB_USER, cfg.DB_PASSWORD, cfg.DB_HOST, cfg.DB_PORT, cfg.DB_NAME,
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Song{}); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	return db, nil
}
