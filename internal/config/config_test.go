package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr :8080, got %s", cfg.ListenAddr)
	}
	if cfg.MongoDatabase != "whisper" {
		t.Errorf("expected default database whisper, got %s", cfg.MongoDatabase)
	}
	if len(cfg.AllowedOrigins) == 0 {
		t.Error("expected default allowed origins")
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example , https://b.example")
	t.Setenv("DEBUG", "true")

	cfg := Load()

	if cfg.ListenAddr != ":9999" {
		t.Errorf("expected :9999, got %s", cfg.ListenAddr)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Errorf("expected JWT secret to load, got %q", cfg.JWTSecret)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://a.example" || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("expected trimmed origin list, got %v", cfg.AllowedOrigins)
	}
	if !cfg.Debug {
		t.Error("expected debug mode")
	}
}
