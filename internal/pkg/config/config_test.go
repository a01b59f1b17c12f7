package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func baseEnv() map[string]string {
	return map[string]string{
		"ACCESS_TOKEN_SECRET":  "access-secret",
		"REFRESH_TOKEN_SECRET": "refresh-secret",
	}
}

func TestLoadWith_Defaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(baseEnv()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("port: got %q", cfg.Port)
	}
	if cfg.Token.AccessTTL != 15*time.Minute {
		t.Errorf("access ttl: got %v", cfg.Token.AccessTTL)
	}
	if cfg.Token.RefreshTTL != 240*time.Hour {
		t.Errorf("refresh ttl: got %v", cfg.Token.RefreshTTL)
	}
	if cfg.RateLimit.Window != 2*time.Minute || cfg.RateLimit.Max != 5 {
		t.Errorf("rate limit: got %v/%d", cfg.RateLimit.Window, cfg.RateLimit.Max)
	}
	if cfg.RateLimit.Backend != RateLimitMemory {
		t.Errorf("backend: got %q", cfg.RateLimit.Backend)
	}
	if !cfg.Token.RotationGuard {
		t.Error("rotation guard should default to enabled")
	}
	if cfg.Store != StoreMongo {
		t.Errorf("store: got %q", cfg.Store)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development env by default")
	}
}

func TestLoadWith_Overrides(t *testing.T) {
	env := baseEnv()
	env["RATE_LIMIT_BACKEND"] = "redis"
	env["REFRESH_ROTATION_GUARD"] = "false"
	env["CORS_ORIGINS"] = "https://codexi.dev,https://www.codexi.dev"

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RateLimit.Backend != RateLimitRedis {
		t.Errorf("backend: got %q", cfg.RateLimit.Backend)
	}
	if cfg.Token.RotationGuard {
		t.Error("rotation guard should be disabled")
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("cors origins: got %v", cfg.CORSOrigins)
	}
}

func TestLoadWith_TrustedProxies(t *testing.T) {
	env := baseEnv()
	env["TRUSTED_PROXIES"] = "10.0.0.0/8,192.0.2.10"
	env["REDIS_PASSWORD"] = "s3cret"

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nets, err := cfg.TrustedProxyNets()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(nets) != 2 {
		t.Fatalf("trusted proxies: got %v", nets)
	}
	if nets[0].String() != "10.0.0.0/8" || nets[1].String() != "192.0.2.10/32" {
		t.Errorf("trusted proxies: got %s, %s", nets[0], nets[1])
	}
	if cfg.Redis.Password != "s3cret" {
		t.Errorf("redis password: got %q", cfg.Redis.Password)
	}
}

func TestLoadWith_NoTrustedProxiesByDefault(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(baseEnv()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	nets, err := cfg.TrustedProxyNets()
	if err != nil || len(nets) != 0 {
		t.Fatalf("expected no trusted proxies, got %v (err %v)", nets, err)
	}
}

func TestLoadWith_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		wantErr string
	}{
		{
			name:    "missing access secret",
			mutate:  func(m map[string]string) { delete(m, "ACCESS_TOKEN_SECRET") },
			wantErr: "ACCESS_TOKEN_SECRET",
		},
		{
			name:    "identical secrets",
			mutate:  func(m map[string]string) { m["REFRESH_TOKEN_SECRET"] = m["ACCESS_TOKEN_SECRET"] },
			wantErr: "must differ",
		},
		{
			name:    "unknown backend",
			mutate:  func(m map[string]string) { m["RATE_LIMIT_BACKEND"] = "memcached" },
			wantErr: "RATE_LIMIT_BACKEND",
		},
		{
			name:    "unknown store",
			mutate:  func(m map[string]string) { m["STORE_BACKEND"] = "postgres" },
			wantErr: "STORE_BACKEND",
		},
		{
			name:    "bad trusted proxy",
			mutate:  func(m map[string]string) { m["TRUSTED_PROXIES"] = "10.0.0.0/99" },
			wantErr: "TRUSTED_PROXIES",
		},
		{
			name:    "zero max",
			mutate:  func(m map[string]string) { m["RATE_LIMIT_MAX"] = "0" },
			wantErr: "RATE_LIMIT_MAX",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := baseEnv()
			tt.mutate(env)
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(env))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
