package config

import (
	"testing"
	"time"
)

func setEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("GinMode = %q, want release", cfg.GinMode)
	}
	if cfg.DBDriver != "sqlite" || cfg.DBPath != "coupons.db" {
		t.Fatalf("store defaults = %q/%q", cfg.DBDriver, cfg.DBPath)
	}
	if cfg.CouponTTL != 10*time.Minute {
		t.Fatalf("CouponTTL = %v, want 10m", cfg.CouponTTL)
	}
	if cfg.MintRetries != 3 {
		t.Fatalf("MintRetries = %d, want 3", cfg.MintRetries)
	}
	if cfg.APIBasePath != "/api" {
		t.Fatalf("APIBasePath = %q, want /api", cfg.APIBasePath)
	}
	if cfg.OTEL.ServiceName != "go-coupon-backend" {
		t.Fatalf("OTEL.ServiceName = %q", cfg.OTEL.ServiceName)
	}
}

func TestLoadOverrides(t *testing.T) {
	setEnv(t, map[string]string{
		"PORT":          "9090",
		"LOG_LEVEL":     "Warning",
		"GIN_MODE":      "weird",
		"COUPON_TTL":    "5m",
		"MINT_RETRIES":  "7",
		"RATE_RPS":      "2.5",
		"API_BASE_PATH": "api/v2/",
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9090" {
		t.Fatalf("Port = %q", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Fatalf("GinMode = %q, want release fallback", cfg.GinMode)
	}
	if cfg.CouponTTL != 5*time.Minute {
		t.Fatalf("CouponTTL = %v", cfg.CouponTTL)
	}
	if cfg.MintRetries != 7 {
		t.Fatalf("MintRetries = %d", cfg.MintRetries)
	}
	if cfg.RateRPS != 2.5 {
		t.Fatalf("RateRPS = %v", cfg.RateRPS)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Fatalf("APIBasePath = %q, want /api/v2", cfg.APIBasePath)
	}
}

func TestLoadPostgresRequiresDSN(t *testing.T) {
	setEnv(t, map[string]string{"DB_DRIVER": "postgres"})
	if _, err := Load(); err == nil {
		t.Fatal("expected error when DATABASE_URL missing")
	}
	setEnv(t, map[string]string{"DATABASE_URL": "postgres://u:p@localhost:5432/coupons"})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		t.Fatalf("DBDriver = %q", cfg.DBDriver)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := []map[string]string{
		{"LOG_LEVEL": "verbose"},
		{"DB_DRIVER": "oracle"},
		{"COUPON_TTL": "-1m"},
		{"MINT_RETRIES": "0"},
		{"RATE_BURST": "0"},
		{"OTEL_TRACES_SAMPLER_ARG": "1.5"},
	}
	for _, kv := range cases {
		t.Run("", func(t *testing.T) {
			setEnv(t, kv)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %v", kv)
			}
		})
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":      "/",
		"/":     "/",
		"api":   "/api",
		"/api/": "/api",
		"/v1//": "/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}
