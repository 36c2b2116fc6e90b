package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPHost        string
	HTTPPort        string
	MySQLDSN        string
	JWTSecret       string
	SessionSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	Google          GoogleConfig
	FrontendURL     string
	AutoMigrate     bool
	LogLevel        string
	LogFormat       string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignores error if not found)
	_ = godotenv.Load()

	mysqlDSN := os.Getenv("DATABASE_URL")
	if mysqlDSN == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}

	// The OAuth state cookie is signed with its own secret, not the JWT one.
	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		return nil, errors.New("SESSION_SECRET environment variable is required")
	}

	googleClientID := os.Getenv("GOOGLE_CLIENT_ID")
	googleClientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	if googleClientID == "" || googleClientSecret == "" {
		return nil, errors.New("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET environment variables are required")
	}

	return &Config{
		HTTPHost:        getEnv("HTTP_HOST", ""),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		MySQLDSN:        mysqlDSN,
		JWTSecret:       jwtSecret,
		SessionSecret:   sessionSecret,
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 7*24*time.Hour),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 14*24*time.Hour),
		Google: GoogleConfig{
			ClientID:     googleClientID,
			ClientSecret: googleClientSecret,
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/auth/callback/google"),
			Scopes:       []string{"openid", "email", "profile"},
		},
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		AutoMigrate: getBoolEnv("AUTO_MIGRATE", true),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}, nil
}

func (c *Config) DSN() string {
	return c.MySQLDSN
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if minutes, err := strconv.Atoi(value); err == nil {
			return time.Duration(minutes) * time.Minute
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
