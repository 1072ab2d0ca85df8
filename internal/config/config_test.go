package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("database:\n  path: test.db\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Quotes.Provider != ProviderMOEX {
		t.Errorf("provider = %q, want %q", cfg.Quotes.Provider, ProviderMOEX)
	}
	if cfg.Optimizer.RiskFreeRate != 0.01 {
		t.Errorf("risk free rate = %v, want 0.01", cfg.Optimizer.RiskFreeRate)
	}
	if cfg.Optimizer.Tolerance != 1e-9 {
		t.Errorf("tolerance = %v, want 1e-9", cfg.Optimizer.Tolerance)
	}
	if cfg.QuoteTimeout() != 10*time.Second {
		t.Errorf("quote timeout = %v, want 10s", cfg.QuoteTimeout())
	}
	if cfg.QuoteCacheTTL() != 0 {
		t.Errorf("cache must be disabled by default, got %v", cfg.QuoteCacheTTL())
	}
	start, end := cfg.SessionWindow()
	if start != 600 || end != 1130 {
		t.Errorf("session window = %d-%d, want 600-1130", start, end)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"tinkoff needs token", "quotes:\n  provider: tinkoff\n", "tinkoff.token"},
		{"unknown provider", "quotes:\n  provider: yahoo\n", "unknown quotes.provider"},
		{"bad interval", "scheduler:\n  interval: often\n", "scheduler.interval"},
		{"bad session", "scheduler:\n  session_start: 25:99\n", "session_start"},
		{"telegram needs chat", "telegram:\n  enabled: true\n  bot_token: x\n", "telegram.chat_id"},
		{"short lookback", "optimizer:\n  lookback_days: 1\n", "lookback_days"},
		{"valid tinkoff", "quotes:\n  provider: tinkoff\ntinkoff:\n  token: t\n", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("web:\n  port: 9090\ntimezone: UTC\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Web.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Web.Port)
	}
	if cfg.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", cfg.Location())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
