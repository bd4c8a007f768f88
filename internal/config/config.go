package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-classroom/internal/quiz"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	SiteID   string

	DBDriver string
	DBDSN    string

	AuthHMACSecret  string
	EnableLocalAuth bool

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// Quiz rules
	MaxAttempts             int
	CooldownHours           int
	CountPrivilegedAttempts bool
	ConditionalWrites       bool
	SessionTTL              time.Duration

	// Empty RedisAddr keeps session locks in-process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		SiteID:             envOr("SITE_ID", "local"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		AuthHMACSecret:     envOr("AUTH_HMAC_SECRET", "supersecret-dev-key"),
		EnableLocalAuth:    envBool("ENABLE_LOCAL_AUTH", true),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://lms.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010"),

		MaxAttempts:             envInt("QUIZ_MAX_ATTEMPTS", quiz.DefaultMaxAttempts),
		CooldownHours:           envInt("QUIZ_COOLDOWN_HOURS", quiz.DefaultCooldownHours),
		CountPrivilegedAttempts: envBool("QUIZ_COUNT_PRIVILEGED_ATTEMPTS", true),
		ConditionalWrites:       envBool("QUIZ_CONDITIONAL_WRITES", true),
		SessionTTL:              envDuration("QUIZ_SESSION_TTL", quiz.DefaultSessionTTL),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),
	}
}

// Limits maps the quiz settings onto the attempt policy.
func (c Config) Limits() quiz.Limits {
	return quiz.Limits{
		MaxAttempts:             c.MaxAttempts,
		Cooldown:                time.Duration(c.CooldownHours) * time.Hour,
		CountPrivilegedAttempts: c.CountPrivilegedAttempts,
	}
}

// CORSOrigins picks the allow-list for the current mode.
func (c Config) CORSOrigins() []string {
	if c.Mode == ModeOnline {
		return c.CORSOriginsOnline
	}
	return c.CORSOriginsOffline
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(k)); err == nil {
		return v
	}
	return def
}
func envDuration(k string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(k)); err == nil && v > 0 {
		return v
	}
	return def
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
