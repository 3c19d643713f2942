package profile

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is configuration to start the main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol).
	// All providers (zai, deepseek, openai, siliconflow, ollama) use the same config.
	LLMProvider    string  // Provider identifier: zai, deepseek, openai, siliconflow, dashscope, ollama
	LLMAPIKey      string  // LLM API key
	LLMBaseURL     string  // LLM base URL (optional, has default per provider)
	LLMModel       string  // Model name: glm-4, deepseek-chat, gpt-4o, etc.
	LLMTemperature float32 // Default sampling temperature
	LLMMaxTokens   int     // Default completion budget
	LLMTimeout     int     // LLM request timeout in seconds (default: 60)

	// Embedding configuration
	EmbeddingProvider string
	EmbeddingModel    string
	EmbeddingAPIKey   string
	EmbeddingBaseURL  string

	// Database configuration
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// Connection pool configuration
	DBPoolSize    int // max open connections
	DBMaxOverflow int // max idle connections
	DBPoolTimeout int // connection acquire timeout, seconds
	DBPoolRecycle int // max connection lifetime, seconds

	// Security configuration
	JWTSecret     string
	TokenTTLHours int

	// Memory engine configuration
	BatchSize int // messages per cleaning round; production intent is ~50

	// Server configuration
	Mode        string
	Addr        string
	Port        int
	CORSOrigins []string
	LogLevel    string
	Version     string
}

// Provider default configurations for LLM.
// Used when MATE_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"zai": {
		BaseURL: "https://open.bigmodel.cn/api/paas/v4",
		Model:   "glm-4",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-72B-Instruct",
	},
	"dashscope": {
		BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
		Model:   "qwen-max-latest",
	},
	"ollama": {
		BaseURL: "http://localhost:11434",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// DSN builds the lib/pq connection string.
func (p *Profile) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		p.DBHost, p.DBPort, p.DBName, p.DBUser, p.DBPassword)
}

// TokenTTL returns the bearer token lifetime.
func (p *Profile) TokenTTL() time.Duration {
	return time.Duration(p.TokenTTLHours) * time.Hour
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(f)
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	// LLM configuration
	p.LLMProvider = getEnvOrDefault("MATE_LLM_PROVIDER", "zai")
	p.LLMAPIKey = getEnvOrDefault("MATE_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("MATE_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("MATE_LLM_MODEL", "")
	p.LLMTemperature = getEnvOrDefaultFloat("MATE_LLM_TEMPERATURE", 0.7)
	p.LLMMaxTokens = getEnvOrDefaultInt("MATE_LLM_MAX_TOKENS", 2000)
	p.LLMTimeout = getEnvOrDefaultInt("MATE_LLM_TIMEOUT_SECONDS", 60)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		p.LLMProvider = "zai"
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	// Embedding configuration
	p.EmbeddingProvider = getEnvOrDefault("MATE_EMBEDDING_PROVIDER", "siliconflow")
	p.EmbeddingModel = getEnvOrDefault("MATE_EMBEDDING_MODEL", "BAAI/bge-m3")
	p.EmbeddingAPIKey = getEnvOrDefault("MATE_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("MATE_EMBEDDING_BASE_URL", "https://api.siliconflow.cn/v1")

	// Database configuration
	p.DBHost = getEnvOrDefault("MATE_DB_HOST", "localhost")
	p.DBPort = getEnvOrDefaultInt("MATE_DB_PORT", 5432)
	p.DBName = getEnvOrDefault("MATE_DB_NAME", "mate_db")
	p.DBUser = getEnvOrDefault("MATE_DB_USER", "mate")
	p.DBPassword = getEnvOrDefault("MATE_DB_PASSWORD", "")
	p.DBPoolSize = getEnvOrDefaultInt("MATE_DB_POOL_SIZE", 20)
	p.DBMaxOverflow = getEnvOrDefaultInt("MATE_DB_MAX_OVERFLOW", 30)
	p.DBPoolTimeout = getEnvOrDefaultInt("MATE_DB_POOL_TIMEOUT", 30)
	p.DBPoolRecycle = getEnvOrDefaultInt("MATE_DB_POOL_RECYCLE", 3600)

	// Security configuration
	p.JWTSecret = getEnvOrDefault("MATE_JWT_SECRET", "")
	p.TokenTTLHours = getEnvOrDefaultInt("MATE_TOKEN_TTL_HOURS", 24*7)

	// Memory engine configuration
	p.BatchSize = getEnvOrDefaultInt("MATE_BATCH_SIZE", 6)

	// Server configuration
	if origins := getEnvOrDefault("MATE_CORS_ORIGINS", ""); origins != "" {
		p.CORSOrigins = nil
		for _, origin := range strings.Split(origins, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				p.CORSOrigins = append(p.CORSOrigins, origin)
			}
		}
	}
	p.LogLevel = getEnvOrDefault("MATE_LOG_LEVEL", "info")
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.JWTSecret == "" {
		if p.Mode == "prod" {
			return errors.New("MATE_JWT_SECRET must be set in prod mode")
		}
		p.JWTSecret = "mate-insecure-dev-secret"
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 6
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	return nil
}
