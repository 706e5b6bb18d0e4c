package config

import (
	"testing"
	"time"
)

// setRequired sets the minimum environment for Load to succeed.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TOKEN_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("default port: %s", cfg.Port)
	}
	if cfg.MessageRetention != 14*24*time.Hour {
		t.Fatalf("default retention: %v", cfg.MessageRetention)
	}
	if cfg.BanThreshold != 3 {
		t.Fatalf("default ban threshold: %d", cfg.BanThreshold)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Fatalf("default base path: %s", cfg.APIBasePath)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("default gin mode: %s", cfg.GinMode)
	}
	if cfg.OTEL.Enabled {
		t.Fatal("OTEL must default to disabled")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("MESSAGE_RETENTION", "72h")
	t.Setenv("BAN_THRESHOLD", "5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("GIN_MODE", "TEST")
	t.Setenv("RATE_RPS", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("port override: %s", cfg.Port)
	}
	if cfg.MessageRetention != 72*time.Hour {
		t.Fatalf("retention override: %v", cfg.MessageRetention)
	}
	if cfg.BanThreshold != 5 {
		t.Fatalf("threshold override: %d", cfg.BanThreshold)
	}
	if len(cfg.CORS.AllowedOrigins) != 2 || cfg.CORS.AllowedOrigins[1] != "https://b.example" {
		t.Fatalf("cors parsing: %v", cfg.CORS.AllowedOrigins)
	}
	if cfg.GinMode != "test" {
		t.Fatalf("gin mode must be lowercased: %s", cfg.GinMode)
	}
	if cfg.RateRPS != 2.5 {
		t.Fatalf("rps override: %v", cfg.RateRPS)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("MESSAGE_RETENTION", "not-a-duration")
	t.Setenv("RATE_BURST", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MessageRetention != 14*24*time.Hour {
		t.Fatalf("bad duration must fall back: %v", cfg.MessageRetention)
	}
	if cfg.RateBurst != 10 {
		t.Fatalf("bad int must fall back: %d", cfg.RateBurst)
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"TOKEN_SECRET": ""}},
		{"bad port", map[string]string{"TOKEN_SECRET": "s", "PORT": "http"}},
		{"zero threshold", map[string]string{"TOKEN_SECRET": "s", "BAN_THRESHOLD": "0"}},
		{"negative retention", map[string]string{"TOKEN_SECRET": "s", "MESSAGE_RETENTION": "-1h"}},
		{"bad gin mode", map[string]string{"TOKEN_SECRET": "s", "GIN_MODE": "verbose"}},
		{"bad sample ratio", map[string]string{"TOKEN_SECRET": "s", "OTEL_TRACES_SAMPLER_ARG": "1.5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"/":       "",
		"api":     "/api",
		"/api/":   "/api",
		"/api/v1": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
