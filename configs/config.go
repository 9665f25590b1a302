// config.go - Configuration loaded from environment variables

package configs

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

var (
	// Server Configuration
	PORT             string
	ALLOWED_ORIGINS  string
	MAX_UPLOAD_BYTES int64

	// Logging
	LOG_LEVEL  string
	LOG_PRETTY bool

	// Gemini
	GEMINI_API_KEY     string
	GEMINI_MODEL       string
	GEMINI_DAILY_LIMIT int64
	GEMINI_RPM         int

	// Together AI
	TOGETHER_API_KEY      string
	TOGETHER_MODEL        string
	TOGETHER_VISION_MODEL string
	TOGETHER_DAILY_LIMIT  int64
	TOGETHER_RPM          int

	// Mistral
	MISTRAL_API_KEY     string
	MISTRAL_MODEL       string
	MISTRAL_OCR_MODEL   string
	MISTRAL_DAILY_LIMIT int64
	MISTRAL_RPM         int

	// Groq
	GROQ_API_KEY     string
	GROQ_MODEL       string
	GROQ_DAILY_LIMIT int64
	GROQ_RPM         int

	// Routing and quotas. Zero limits and empty models keep the built-in
	// provider table values.
	QUOTA_SAFE_PERCENT int
	PROVIDER_TIMEOUT   time.Duration
	PROVIDERS_FILE     string

	// Optional shared quota store
	REDIS_URL string

	// Optional audit log storage
	MONGO_URI     string
	MONGO_DB_NAME string

	// Offline OCR engine
	TESSERACT_PATH    string
	LOCAL_OCR_TIMEOUT time.Duration
)

// LoadConfig loads configuration from environment variables.
// No credential is mandatory: a provider without a key is simply absent.
func LoadConfig() {
	// Load .env file if exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}

	PORT = getEnv("PORT", "8080")
	ALLOWED_ORIGINS = getEnv("ALLOWED_ORIGINS", "*")
	MAX_UPLOAD_BYTES = getEnvInt64("MAX_UPLOAD_BYTES", 10<<20)

	LOG_LEVEL = getEnv("LOG_LEVEL", "info")
	LOG_PRETTY = getEnvBool("LOG_PRETTY", false)

	GEMINI_API_KEY = getEnv("GEMINI_API_KEY", "")
	GEMINI_MODEL = getEnv("GEMINI_MODEL", "")
	GEMINI_DAILY_LIMIT = getEnvInt64("GEMINI_DAILY_LIMIT", 0)
	GEMINI_RPM = getEnvInt("GEMINI_RPM", 0)

	TOGETHER_API_KEY = getEnv("TOGETHER_API_KEY", "")
	TOGETHER_MODEL = getEnv("TOGETHER_MODEL", "")
	TOGETHER_VISION_MODEL = getEnv("TOGETHER_VISION_MODEL", "")
	TOGETHER_DAILY_LIMIT = getEnvInt64("TOGETHER_DAILY_LIMIT", 0)
	TOGETHER_RPM = getEnvInt("TOGETHER_RPM", 0)

	MISTRAL_API_KEY = getEnv("MISTRAL_API_KEY", "")
	MISTRAL_MODEL = getEnv("MISTRAL_MODEL", "")
	MISTRAL_OCR_MODEL = getEnv("MISTRAL_OCR_MODEL", "")
	MISTRAL_DAILY_LIMIT = getEnvInt64("MISTRAL_DAILY_LIMIT", 0)
	MISTRAL_RPM = getEnvInt("MISTRAL_RPM", 0)

	GROQ_API_KEY = getEnv("GROQ_API_KEY", "")
	GROQ_MODEL = getEnv("GROQ_MODEL", "")
	GROQ_DAILY_LIMIT = getEnvInt64("GROQ_DAILY_LIMIT", 0)
	GROQ_RPM = getEnvInt("GROQ_RPM", 0)

	QUOTA_SAFE_PERCENT = getEnvInt("QUOTA_SAFE_PERCENT", 80)
	PROVIDER_TIMEOUT = getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second)
	PROVIDERS_FILE = getEnv("PROVIDERS_FILE", "")

	REDIS_URL = getEnv("REDIS_URL", "")

	MONGO_URI = getEnv("MONGO_URI", "")
	MONGO_DB_NAME = getEnv("MONGO_DB_NAME", "expense_ai")

	TESSERACT_PATH = getEnv("TESSERACT_PATH", "")
	LOCAL_OCR_TIMEOUT = getEnvDuration("LOCAL_OCR_TIMEOUT", 20*time.Second)

	log.Debug().Msg("configuration loaded")
}

// AllowedOrigins splits ALLOWED_ORIGINS on commas.
func AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(ALLOWED_ORIGINS, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("45s") or plain seconds ("45").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
