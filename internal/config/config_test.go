package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET": "secret",
	}))
	if err != nil {
		t.Fatalf("LoadWith() error = %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Port = %q, want 8000", cfg.Port)
	}
	if cfg.Tokens.AccessTTL != 60*time.Minute {
		t.Errorf("AccessTTL = %v, want 60m", cfg.Tokens.AccessTTL)
	}
	if cfg.Tokens.RefreshTTL != 7*24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", cfg.Tokens.RefreshTTL)
	}
	if cfg.Tokens.EmailTTL != 7*24*time.Hour {
		t.Errorf("EmailTTL = %v, want 168h", cfg.Tokens.EmailTTL)
	}
	if cfg.Tokens.ResetTTL != 10*time.Minute {
		t.Errorf("ResetTTL = %v, want 10m", cfg.Tokens.ResetTTL)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache should be enabled by default")
	}
	if cfg.Storage.Enabled() {
		t.Error("storage should be disabled without an endpoint")
	}
}

func TestLoadWith_MissingSecret(t *testing.T) {
	_, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	if err == nil {
		t.Fatal("LoadWith() should fail without JWT_SECRET")
	}
}

func TestRedisConfig_Address(t *testing.T) {
	r := RedisConfig{Addr: "cache:6379"}
	if got := r.Address(); got != "cache:6379" {
		t.Errorf("Address() = %q, want cache:6379", got)
	}
	r.Host, r.Port = "redis", "6380"
	if got := r.Address(); got != "redis:6380" {
		t.Errorf("Address() = %q, want redis:6380", got)
	}
}

func TestRateLimitConfig_Normalized(t *testing.T) {
	c := RateLimitConfig{RefillInterval: 2 * time.Second}.Normalized()
	if c.Capacity != 1 || c.RefillTokens != 1 {
		t.Errorf("Normalized() capacity=%d refill=%d, want 1/1", c.Capacity, c.RefillTokens)
	}
	if c.TTL != 10*time.Second {
		t.Errorf("TTL = %v, want 10s", c.TTL)
	}
}

func TestRateLimitConfig_Anonymous(t *testing.T) {
	cases := map[string]string{
		"user":       "ip",
		"ip_user":    "ip",
		"user_route": "ip_route",
		"":           "ip_route",
		"ip":         "ip",
		"route":      "route",
	}
	for in, want := range cases {
		if got := (RateLimitConfig{KeyStrategy: in}).Anonymous().KeyStrategy; got != want {
			t.Errorf("Anonymous(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLoadWith_HTTP(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"JWT_SECRET":   "secret",
		"APP_BASE_URL": "https://contacts.example.com//",
		"CORS_ORIGINS": "https://a.example.com,https://b.example.com",
	}))
	if err != nil {
		t.Fatalf("LoadWith() error = %v", err)
	}
	if got := cfg.HTTP.PublicURL(); got != "https://contacts.example.com/" {
		t.Errorf("PublicURL() = %q", got)
	}
	if len(cfg.HTTP.CORSOrigins) != 2 || cfg.HTTP.CORSOrigins[1] != "https://b.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.HTTP.CORSOrigins)
	}

	cfg, _ = LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{"JWT_SECRET": "secret"}))
	if cfg.HTTP.PublicURL() != "" {
		t.Errorf("PublicURL() without APP_BASE_URL = %q, want empty", cfg.HTTP.PublicURL())
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "https://localhost:8000" {
		t.Errorf("default CORSOrigins = %v", cfg.HTTP.CORSOrigins)
	}
}

func TestConfig_ValidateServe(t *testing.T) {
	cases := []struct {
		env, base string
		want      error
	}{
		{"dev", "", nil},
		{"test", "", nil},
		{"prod", "", ErrNoPublicURL},
		{"prod", "https://contacts.example.com", nil},
	}
	for _, tc := range cases {
		cfg := Config{Env: tc.env, HTTP: HTTPConfig{BaseURL: tc.base}}
		if err := cfg.ValidateServe(); !errors.Is(err, tc.want) {
			t.Errorf("ValidateServe(%s, %q) = %v, want %v", tc.env, tc.base, err, tc.want)
		}
	}
}
