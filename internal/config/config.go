// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Leaderboard storage backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// LLM providers.
const (
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
)

// Config holds all application configuration.
type Config struct {
	Port             string
	CORSOrigins      []string
	DataDir          string
	ConversationsDir string
	ConversationTTL  time.Duration
	GRPCHealthAddr   string
	Leaderboard      LeaderboardConfig
	LLM              LLMConfig
	APILog           APILogConfig
	DebugLog         DebugLogConfig
	RateLimit        RateLimitConfig
}

// LeaderboardConfig selects and configures the leaderboard store.
type LeaderboardConfig struct {
	Backend string
	Path    string
	DBPath  string
	Size    int
}

// LLMConfig configures the completion provider.
type LLMConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxAttempts int
	RetryDelay  time.Duration
}

// APILogConfig controls per-session API request logging.
type APILogConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// DebugLogConfig controls the diagnostic text log.
type DebugLogConfig struct {
	Enabled bool
	Path    string
}

// RateLimitConfig bounds LLM proxy calls per player.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dataDir := getEnv("DATA_DIR", "./data")
	provider := strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenRouter))

	cfg := &Config{
		Port:             getEnv("PORT", "3001"),
		CORSOrigins:      splitList(getEnv("CORS_ORIGIN", "*")),
		DataDir:          dataDir,
		ConversationsDir: getEnv("CONVERSATIONS_DIR", filepath.Join(dataDir, "conversations")),
		ConversationTTL:  getEnvDuration("CONVERSATION_TTL", 2*time.Hour),
		GRPCHealthAddr:   getEnv("GRPC_HEALTH_ADDR", ""),
		Leaderboard: LeaderboardConfig{
			Backend: strings.ToLower(getEnv("LEADERBOARD_BACKEND", BackendJSON)),
			Path:    getEnv("LEADERBOARD_PATH", filepath.Join(dataDir, "leaderboard.json")),
			DBPath:  getEnv("DB_PATH", filepath.Join(dataDir, "arena.db")),
			Size:    getEnvInt("LEADERBOARD_SIZE", 5),
		},
		LLM: LLMConfig{
			Provider:    provider,
			APIKey:      providerKey(provider),
			BaseURL:     getEnv("LLM_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:       getEnv("LLM_MODEL", defaultModel(provider)),
			MaxAttempts: getEnvInt("LLM_MAX_ATTEMPTS", 3),
			RetryDelay:  getEnvDuration("LLM_RETRY_DELAY", time.Second),
		},
		APILog: APILogConfig{
			Enabled:   getEnvBool("ENABLE_API_LOGGING", false),
			Dir:       getEnv("API_LOG_DIR", filepath.Join(dataDir, "logs", "api")),
			QueueSize: getEnvInt("API_LOG_QUEUE_SIZE", 1000),
		},
		DebugLog: DebugLogConfig{
			Enabled: getEnvBool("ENABLE_DEBUG_LOGGING", false),
			Path:    getEnv("DEBUG_LOG_PATH", filepath.Join(dataDir, "logs", "debug.log")),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 30),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.ConversationsDir == "" {
		return fmt.Errorf("CONVERSATIONS_DIR cannot be empty")
	}
	if c.ConversationTTL <= 0 {
		return fmt.Errorf("CONVERSATION_TTL must be > 0")
	}
	switch c.Leaderboard.Backend {
	case BackendJSON:
		if c.Leaderboard.Path == "" {
			return fmt.Errorf("LEADERBOARD_PATH cannot be empty")
		}
	case BackendSQLite:
		if c.Leaderboard.DBPath == "" {
			return fmt.Errorf("DB_PATH cannot be empty")
		}
	default:
		return fmt.Errorf("LEADERBOARD_BACKEND must be %q or %q, got %q", BackendJSON, BackendSQLite, c.Leaderboard.Backend)
	}
	if c.Leaderboard.Size <= 0 {
		return fmt.Errorf("LEADERBOARD_SIZE must be > 0")
	}
	switch c.LLM.Provider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderOpenRouter, ProviderGemini, c.LLM.Provider)
	}
	if c.LLM.APIKey == "" {
		return fmt.Errorf("an API key is required for LLM provider %q", c.LLM.Provider)
	}
	if c.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("LLM_MAX_ATTEMPTS must be > 0")
	}
	if c.APILog.Enabled && c.APILog.QueueSize <= 0 {
		return fmt.Errorf("API_LOG_QUEUE_SIZE must be > 0")
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS and RATE_LIMIT_WINDOW must be > 0")
	}
	return nil
}

// IsDevelopment returns true if CORS is wide open or pointed at a local frontend.
func (c *Config) IsDevelopment() bool {
	for _, o := range c.CORSOrigins {
		if o == "*" || strings.Contains(o, "localhost") || strings.Contains(o, "127.0.0.1") {
			return true
		}
	}
	return false
}

func providerKey(provider string) string {
	if v := getEnv("LLM_API_KEY", ""); v != "" {
		return v
	}
	if provider == ProviderGemini {
		return getEnv("GEMINI_API_KEY", "")
	}
	return getEnv("OPENROUTER_API_KEY", "")
}

func defaultModel(provider string) string {
	if provider == ProviderGemini {
		return "gemini-2.5-flash"
	}
	return "openai/gpt-4o-mini"
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
