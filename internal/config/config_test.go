package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATA_PATH", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("MENU_CACHE_TTL_SECONDS", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DataPath != "warungpos.db" {
		t.Fatalf("expected default data path, got %q", cfg.DataPath)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token ttl 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.MenuCacheTTLSeconds != 30 {
		t.Fatalf("expected default menu cache ttl 30, got %d", cfg.MenuCacheTTLSeconds)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080 address, got %q", cfg.Address())
	}
}

func TestLoadRejectsMalformedTTL(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "not-a-number")

	cfg := Load()
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected malformed ttl to fall back to 480, got %d", cfg.AccessTokenTTLMinutes)
	}
}
