package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ORIGIN", "DATA_DIR", "CONVERSATIONS_DIR", "CONVERSATION_TTL",
		"GRPC_HEALTH_ADDR", "LEADERBOARD_BACKEND", "LEADERBOARD_PATH", "DB_PATH",
		"LEADERBOARD_SIZE", "LLM_PROVIDER", "LLM_API_KEY", "OPENROUTER_API_KEY",
		"GEMINI_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "LLM_MAX_ATTEMPTS",
		"LLM_RETRY_DELAY", "ENABLE_API_LOGGING", "API_LOG_DIR", "API_LOG_QUEUE_SIZE",
		"ENABLE_DEBUG_LOGGING", "DEBUG_LOG_PATH", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoad_MissingAPIKey(t *testing.T) {
	clearEnv(t)
	if _, err := Load(); err == nil {
		t.Fatal("expected error when no API key is set")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "test-key")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "3001" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3001")
	}
	if cfg.LLM.Provider != ProviderOpenRouter {
		t.Errorf("Provider = %q, want %q", cfg.LLM.Provider, ProviderOpenRouter)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Errorf("APIKey = %q, want %q", cfg.LLM.APIKey, "test-key")
	}
	if cfg.LLM.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.LLM.MaxAttempts)
	}
	if cfg.LLM.RetryDelay != time.Second {
		t.Errorf("RetryDelay = %v, want 1s", cfg.LLM.RetryDelay)
	}
	if cfg.Leaderboard.Backend != BackendJSON {
		t.Errorf("Backend = %q, want %q", cfg.Leaderboard.Backend, BackendJSON)
	}
	if cfg.Leaderboard.Size != 5 {
		t.Errorf("Size = %d, want 5", cfg.Leaderboard.Size)
	}
	if want := filepath.Join("./data", "conversations"); cfg.ConversationsDir != want {
		t.Errorf("ConversationsDir = %q, want %q", cfg.ConversationsDir, want)
	}
	if cfg.APILog.Enabled || cfg.DebugLog.Enabled {
		t.Error("logging should be disabled by default")
	}
	if !cfg.IsDevelopment() {
		t.Error("wildcard CORS should count as development")
	}
}

func TestLoad_CustomEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("GEMINI_API_KEY", "g-key")
	t.Setenv("DATA_DIR", "/srv/arena")
	t.Setenv("LEADERBOARD_BACKEND", "sqlite")
	t.Setenv("CORS_ORIGIN", "https://arena.example.com, https://www.arena.example.com")
	t.Setenv("ENABLE_API_LOGGING", "yes")
	t.Setenv("LLM_RETRY_DELAY", "250ms")
	t.Setenv("CONVERSATION_TTL", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LLM.APIKey != "g-key" {
		t.Errorf("APIKey = %q, want %q", cfg.LLM.APIKey, "g-key")
	}
	if cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q, want gemini default", cfg.LLM.Model)
	}
	if cfg.Leaderboard.DBPath != filepath.Join("/srv/arena", "arena.db") {
		t.Errorf("DBPath = %q", cfg.Leaderboard.DBPath)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://www.arena.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.IsDevelopment() {
		t.Error("explicit production origins should not count as development")
	}
	if !cfg.APILog.Enabled {
		t.Error("expected API logging enabled")
	}
	if cfg.LLM.RetryDelay != 250*time.Millisecond {
		t.Errorf("RetryDelay = %v", cfg.LLM.RetryDelay)
	}
	if cfg.ConversationTTL != 30*time.Minute {
		t.Errorf("ConversationTTL = %v", cfg.ConversationTTL)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "k")
	t.Setenv("LEADERBOARD_BACKEND", "redis")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "k")
	t.Setenv("LEADERBOARD_SIZE", "many")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Leaderboard.Size != 5 {
		t.Errorf("Size = %d, want fallback 5", cfg.Leaderboard.Size)
	}
}
