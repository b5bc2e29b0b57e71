package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env  string
	Port int

	DBURL string

	// Session tokens
	JWTSecret      string
	SessionTTLDays int
	CookieName     string

	// Elevated-role signup gate. Injected, never hardcoded.
	AdminSignupKey string

	// Seed admin account (optional)
	AdminEmail    string
	AdminPassword string
	AdminName     string

	// Where password-reset links point at
	ClientURL      string
	AllowedOrigins []string

	// Redis for the dashboard cache. Empty addr disables it.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Outbound mail
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// Tracing
	OTLPEndpoint string
}

func Load() Config {
	return Config{
		Env:   getEnv("APP_ENV", "dev"),
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		JWTSecret:      getEnv("JWT_SECRET", ""),
		SessionTTLDays: getEnvInt("SESSION_TTL_DAYS", 7),
		CookieName:     getEnv("SESSION_COOKIE_NAME", "session_token"),

		AdminSignupKey: getEnv("ADMIN_SIGNUP_KEY", ""),

		AdminEmail:    getEnv("SEED_ADMIN_EMAIL", ""),
		AdminPassword: getEnv("SEED_ADMIN_PASSWORD", ""),
		AdminName:     getEnv("SEED_ADMIN_NAME", "Administrator"),

		ClientURL:      getEnv("CLIENT_URL", "http://localhost:5173"),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SMTPHost: getEnv("SMTP_HOST", ""),
		SMTPPort: getEnvInt("SMTP_PORT", 587),
		SMTPUser: getEnv("SMTP_USER", ""),
		SMTPPass: getEnv("SMTP_PASS", ""),
		MailFrom: getEnv("MAIL_FROM", "no-reply@incidenthub.local"),

		OTLPEndpoint: getEnv("OTLP_ENDPOINT", ""),
	}
}

func buildDBURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "incidenthub")
	pass := getEnv("DB_PASSWORD", "incidenthub")
	name := getEnv("DB_NAME", "incidenthub")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

// SessionTTL is the lifetime of an issued session token and its cookie.
func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}

	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			fmt.Println(err)
			return fallback
		}

		return num
	}
	return fallback
}
