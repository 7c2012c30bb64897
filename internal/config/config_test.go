package config

import (
	"reflect"
	"testing"
	"time"
)

// TestParseCSVEnv проверяет разбор списка email из ENV.
func TestParseCSVEnv(t *testing.T) {
	t.Setenv("ADMIN_EMAILS", " Admin@example.com, ,USER@Example.com ")

	got := parseCSVEnv("ADMIN_EMAILS")
	want := []string{"admin@example.com", "user@example.com"}

	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

// TestParseCSVEnvMissing проверяет поведение при отсутствии переменной.
func TestParseCSVEnvMissing(t *testing.T) {
	got := parseCSVEnv("MISSING_ENV")
	if got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

// TestLoadDefaults проверяет значения по умолчанию для экономики и ИИ.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "gemini-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Economy.LevelCount != 100 {
		t.Fatalf("expected 100 levels, got %d", cfg.Economy.LevelCount)
	}
	if cfg.Economy.StartingBalance != 0 {
		t.Fatalf("expected zero starting balance, got %d", cfg.Economy.StartingBalance)
	}
	if cfg.AI.APIKey != "gemini-key" {
		t.Fatalf("expected provider key fallback, got %q", cfg.AI.APIKey)
	}
	if cfg.AI.NewsCacheTTL != 30*time.Minute {
		t.Fatalf("unexpected news cache ttl %v", cfg.AI.NewsCacheTTL)
	}
	if !cfg.Database.MigrationsEnabled {
		t.Fatal("expected migrations to be enabled by default")
	}
}

// TestLoadRejectsUnknownProvider проверяет валидацию AI_PROVIDER.
func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("AI_PROVIDER", "claude")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}

// TestLoadRejectsNegativeBalance проверяет валидацию стартового баланса.
func TestLoadRejectsNegativeBalance(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ECONOMY_STARTING_BALANCE", "-5")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for negative starting balance")
	}
}

// TestParseBoolEnv проверяет разбор логических флагов.
func TestParseBoolEnv(t *testing.T) {
	t.Setenv("MIGRATIONS_ENABLED", "false")

	got, err := parseBoolEnv("MIGRATIONS_ENABLED", true)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got {
		t.Fatal("expected false")
	}

	t.Setenv("MIGRATIONS_ENABLED", "maybe")
	if _, err := parseBoolEnv("MIGRATIONS_ENABLED", true); err == nil {
		t.Fatal("expected error for invalid boolean")
	}
}

// TestLoadOfflineSkipsSecrets проверяет, что CLI-конфигурация не требует JWT_SECRET.
func TestLoadOfflineSkipsSecrets(t *testing.T) {
	t.Setenv("ENV_FILE", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("ECONOMY_LEVEL_COUNT", "40")

	db, economy, err := LoadOffline()
	if err != nil {
		t.Fatalf("load offline: %v", err)
	}
	if economy.LevelCount != 40 {
		t.Fatalf("expected 40 levels, got %d", economy.LevelCount)
	}
	if db.Port == 0 {
		t.Fatal("expected default database port")
	}
}
