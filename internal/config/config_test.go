package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("JWT_EXPIRATION_HOURS", "")
	t.Setenv("PAGE_FETCH_RPS", "")
	t.Setenv("POSTGRES_MAX_CONNS", "")

	cfg := Load()
	if cfg.APIPort != "3000" {
		t.Errorf("APIPort = %q, want 3000", cfg.APIPort)
	}
	if cfg.JWTExpiration != 24*time.Hour {
		t.Errorf("JWTExpiration = %v, want 24h", cfg.JWTExpiration)
	}
	if cfg.PageFetchRPS != 2 {
		t.Errorf("PageFetchRPS = %v, want 2", cfg.PageFetchRPS)
	}
	if cfg.PostgresMaxConns != 20 {
		t.Errorf("PostgresMaxConns = %d, want 20", cfg.PostgresMaxConns)
	}
	if cfg.TONProofTTL != 5*time.Minute {
		t.Errorf("TONProofTTL = %v, want 5m", cfg.TONProofTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("API_PORT", "8080")
	t.Setenv("PAGE_REFRESH_INTERVAL_MINUTES", "15")
	t.Setenv("PAGE_FETCH_RPS", "0.5")
	t.Setenv("TON_PROOF_ALLOWED_DOMAINS", " spark.fund, ,app.spark.fund ")
	t.Setenv("LITE_SERVER_PORT", "not-a-number")

	cfg := Load()
	if cfg.APIPort != "8080" {
		t.Errorf("APIPort = %q, want 8080", cfg.APIPort)
	}
	if cfg.PageRefreshInterval != 15*time.Minute {
		t.Errorf("PageRefreshInterval = %v, want 15m", cfg.PageRefreshInterval)
	}
	if cfg.PageFetchRPS != 0.5 {
		t.Errorf("PageFetchRPS = %v, want 0.5", cfg.PageFetchRPS)
	}
	if cfg.LiteServerPort != 4443 {
		t.Errorf("LiteServerPort = %d, want fallback 4443", cfg.LiteServerPort)
	}
	want := []string{"spark.fund", "app.spark.fund"}
	if len(cfg.TONProofAllowedDomains) != len(want) {
		t.Fatalf("domains = %v, want %v", cfg.TONProofAllowedDomains, want)
	}
	for i := range want {
		if cfg.TONProofAllowedDomains[i] != want[i] {
			t.Errorf("domains[%d] = %q, want %q", i, cfg.TONProofAllowedDomains[i], want[i])
		}
	}
}
