package config

import (
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port                 string
	Environment          string
	AllowedOrigins       []string
	OAuthConfig          OAuthConfig
	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int
	FrontendURL          string
	SessionSecret        string
	RedisURL             string
	RedisPassword        string
	RateLimitPerMinute   int
	SlowDownAfter        int
	SlowDownDelay        time.Duration
	TrackImportLimit     int
	RoomIdleTTL          time.Duration
}

var AppConfig *Config

func LoadConfig() *Config {
	port := GetEnv("PORT", "4000")
	environment := GetEnv("ENVIRONMENT", "development")

	// Frontend & CORS
	frontendURL := strings.TrimRight(GetEnv("FRONTEND_URL", "https://blindify.vercel.app"), "/")
	allowedOriginsStr := GetEnv("ALLOWED_ORIGINS", "")

	allowedOrigins := []string{
		frontendURL,
		"http://localhost:3000", // Next.js dev server
	}
	if allowedOriginsStr != "" {
		for _, origin := range strings.Split(allowedOriginsStr, ",") {
			trimmed := strings.TrimSpace(origin)
			if trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	// Hosted Postgres needs TLS, localhost usually doesn't
	dbURL := GetEnv("DATABASE_URL", "")
	if dbURL != "" {
		if u, err := url.Parse(dbURL); err == nil {
			q := u.Query()
			if q.Get("sslmode") == "" {
				if strings.Contains(u.Host, "localhost") || strings.HasPrefix(u.Host, "127.0.0.1") {
					q.Set("sslmode", "disable")
				} else {
					q.Set("sslmode", "require")
				}
				u.RawQuery = q.Encode()
				dbURL = u.String()
			}
		}
	}

	AppConfig = &Config{
		Port:                 port,
		Environment:          environment,
		AllowedOrigins:       allowedOrigins,
		OAuthConfig:          *LoadOAuthConfig(),
		DatabaseURL:          dbURL,
		DBMaxOpenConns:       GetEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       GetEnvAsInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetimeMin: GetEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 5),
		FrontendURL:          frontendURL,
		SessionSecret:        GetEnv("SESSION_SECRET", "change-me-blindify-session-secret"),
		RedisURL:             GetEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:        GetEnv("REDIS_PASSWORD", ""),
		RateLimitPerMinute:   GetEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		SlowDownAfter:        GetEnvAsInt("SLOWDOWN_AFTER", 30),
		SlowDownDelay:        time.Duration(GetEnvAsInt("SLOWDOWN_DELAY_MS", 200)) * time.Millisecond,
		TrackImportLimit:     GetEnvAsInt("TRACK_IMPORT_LIMIT", 500),
		RoomIdleTTL:          time.Duration(GetEnvAsInt("ROOM_IDLE_TTL_MINUTES", 120)) * time.Minute,
	}

	if AppConfig.SessionSecret == "change-me-blindify-session-secret" && environment == "production" {
		log.Println("[CONFIG] Warning: SESSION_SECRET is not set, using the development default")
	}

	return AppConfig
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
