package config

import "testing"

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		t.Setenv("AUTH_SECRET", "test-secret")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Port != "8080" {
			t.Fatalf("expected default port 8080, got %s", cfg.Port)
		}
		if cfg.DatabaseURL == "" {
			t.Fatalf("expected a default database URL")
		}
		if len(cfg.CORSOrigins) != 2 {
			t.Fatalf("expected 2 default CORS origins, got %v", cfg.CORSOrigins)
		}
		if cfg.PaymentRelayURL != "" {
			t.Fatalf("expected no default relay URL")
		}
	})

	t.Run("explicit values win", func(t *testing.T) {
		t.Setenv("AUTH_SECRET", "test-secret")
		t.Setenv("PORT", "9999")
		t.Setenv("CORS_ORIGINS", "https://tickets.example.com")
		t.Setenv("PAYMENT_RELAY_URL", "https://relay.example.com")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Port != "9999" {
			t.Fatalf("expected port 9999, got %s", cfg.Port)
		}
		if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "https://tickets.example.com" {
			t.Fatalf("unexpected CORS origins: %v", cfg.CORSOrigins)
		}
		if cfg.PaymentRelayURL != "https://relay.example.com" {
			t.Fatalf("unexpected relay URL: %s", cfg.PaymentRelayURL)
		}
	})

	t.Run("missing auth secret fails", func(t *testing.T) {
		t.Setenv("AUTH_SECRET", "")

		if _, err := Load(); err == nil {
			t.Fatalf("expected error for missing AUTH_SECRET")
		}
	})
}
