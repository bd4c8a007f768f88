package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"MODE", "QUIZ_MAX_ATTEMPTS", "QUIZ_COOLDOWN_HOURS", "QUIZ_COUNT_PRIVILEGED_ATTEMPTS",
		"QUIZ_CONDITIONAL_WRITES", "QUIZ_SESSION_TTL", "REDIS_ADDR", "CORS_ORIGINS_OFFLINE"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	if c.Mode != ModeOffline || c.DBDriver != "sqlite" || c.HTTPAddr != ":8080" {
		t.Fatalf("config = %+v", c)
	}
	lim := c.Limits()
	if lim.MaxAttempts != 2 || lim.Cooldown != 48*time.Hour || !lim.CountPrivilegedAttempts {
		t.Fatalf("limits = %+v", lim)
	}
	if !c.ConditionalWrites || c.SessionTTL != 2*time.Hour || c.RedisAddr != "" {
		t.Fatalf("config = %+v", c)
	}
	if got := c.CORSOrigins(); len(got) != 2 || got[0] != "http://localhost:3000" {
		t.Fatalf("origins = %v", got)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("MODE", "online")
	t.Setenv("QUIZ_MAX_ATTEMPTS", "3")
	t.Setenv("QUIZ_COOLDOWN_HOURS", "24")
	t.Setenv("QUIZ_COUNT_PRIVILEGED_ATTEMPTS", "false")
	t.Setenv("QUIZ_CONDITIONAL_WRITES", "0")
	t.Setenv("QUIZ_SESSION_TTL", "30m")
	t.Setenv("CORS_ORIGINS_ONLINE", " https://a.example , ,https://b.example")
	t.Setenv("REDIS_DB", "not-a-number")

	c := FromEnv()
	lim := c.Limits()
	if lim.MaxAttempts != 3 || lim.Cooldown != 24*time.Hour || lim.CountPrivilegedAttempts {
		t.Fatalf("limits = %+v", lim)
	}
	if c.ConditionalWrites || c.SessionTTL != 30*time.Minute || c.RedisDB != 0 {
		t.Fatalf("config = %+v", c)
	}
	got := c.CORSOrigins()
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("origins = %q", got)
	}
}
